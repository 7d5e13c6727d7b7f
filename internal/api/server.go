package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"pubgraph/internal/config"
	"pubgraph/internal/graph"
	"pubgraph/internal/storage"
	"pubgraph/internal/store"
	"pubgraph/internal/workflows"

	"github.com/google/uuid"
	enumspb "go.temporal.io/api/enums/v1"
	tclient "go.temporal.io/sdk/client"
)

type Server struct {
	cfg      config.Config
	db       *storage.DB
	graph    *storage.GraphStore
	runRepo  *storage.RunRepo
	temporal tclient.Client
}

func NewServer(cfg config.Config) *Server {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	db, err := storage.NewDB(ctx, cfg.PostgresURL, cfg.PostgresMaxConns)
	if err != nil {
		panic(err)
	}
	tc, err := tclient.Dial(tclient.Options{HostPort: cfg.TemporalAddress})
	if err != nil {
		panic(err)
	}
	return &Server{
		cfg:      cfg,
		db:       db,
		graph:    storage.NewGraphStore(db),
		runRepo:  storage.NewRunRepo(db),
		temporal: tc,
	}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/imports", s.handleImports)
	mux.HandleFunc("/imports/", s.handleImportScoped)
	mux.HandleFunc("/graph/summary", s.handleGraphSummary)
	mux.HandleFunc("/graph/entity", s.handleGraphEntity)
	mux.HandleFunc("/graph/edges", s.handleGraphEdges)
	return withCORS(mux)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleImports(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		limit := 0
		if v := r.URL.Query().Get("limit"); v != "" {
			limit, _ = strconv.Atoi(v)
		}
		runs, err := s.runRepo.ListRuns(r.Context(), limit)
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
	case http.MethodPost:
		var req struct {
			ManifestPath  string `json:"manifest_path"`
			DiscoverDir   string `json:"discover_dir"`
			MaxConcurrent int    `json:"max_concurrent"`
			Reconcile     *bool  `json:"reconcile"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
			return
		}
		req.ManifestPath = strings.TrimSpace(req.ManifestPath)
		req.DiscoverDir = strings.TrimSpace(req.DiscoverDir)
		if req.ManifestPath == "" && req.DiscoverDir == "" {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("manifest_path or discover_dir is required"))
			return
		}
		reconcile := s.cfg.ReconcileOnImport
		if req.Reconcile != nil {
			reconcile = *req.Reconcile
		}
		if req.MaxConcurrent <= 0 {
			req.MaxConcurrent = s.cfg.ImportMaxParallel
		}

		runID := uuid.NewString()
		we, err := s.temporal.ExecuteWorkflow(r.Context(), tclient.StartWorkflowOptions{
			ID:                                       "import-" + runID,
			TaskQueue:                                s.cfg.TemporalTaskQueue,
			WorkflowIDReusePolicy:                    enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
			WorkflowExecutionErrorWhenAlreadyStarted: true,
		}, workflows.GraphImportWorkflow, workflows.GraphImportInput{
			RunID:         runID,
			ManifestPath:  req.ManifestPath,
			DiscoverDir:   req.DiscoverDir,
			MaxConcurrent: req.MaxConcurrent,
			Reconcile:     reconcile,
		})
		if err != nil {
			writeErr(w, http.StatusConflict, err)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]any{"import_run_id": runID, "workflow_id": we.GetID(), "run_id": we.GetRunID()})
	default:
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
	}
}

func (s *Server) handleImportScoped(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/imports/"), "/"), "/")
	if len(parts) < 1 || parts[0] == "" {
		writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
		return
	}
	runID := parts[0]

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
			return
		}
		run, ok, err := s.runRepo.GetRun(r.Context(), runID)
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		if !ok {
			writeErr(w, http.StatusNotFound, fmt.Errorf("run not found"))
			return
		}
		writeJSON(w, http.StatusOK, run)
		return
	}

	switch parts[1] {
	case "progress":
		if r.Method != http.MethodGet {
			writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
			return
		}
		var prog workflows.GraphImportProgress
		resp, err := s.temporal.QueryWorkflow(r.Context(), "import-"+runID, "", workflows.QueryGetImportProgress)
		if err != nil {
			// Fallback to the run row when no active workflow query is available.
			run, ok, rErr := s.runRepo.GetRun(r.Context(), runID)
			if rErr != nil {
				writeErr(w, http.StatusInternalServerError, rErr)
				return
			}
			if !ok {
				writeErr(w, http.StatusNotFound, fmt.Errorf("run not found"))
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"run_id": runID, "status": run.Status})
			return
		}
		if err := resp.Get(&prog); err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, prog)
	case "report":
		if r.Method != http.MethodGet {
			writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
			return
		}
		run, ok, err := s.runRepo.GetRun(r.Context(), runID)
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		if !ok {
			writeErr(w, http.StatusNotFound, fmt.Errorf("run not found"))
			return
		}
		if run.ReportPath == "" {
			writeJSON(w, http.StatusOK, map[string]any{"status": run.Status})
			return
		}
		b, err := os.ReadFile(run.ReportPath)
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(b)
	default:
		writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
	}
}

func (s *Server) handleGraphSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	sum, err := s.graph.Summary(r.Context())
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entities":       sum.Entities,
		"edges":          sum.Edges,
		"total_entities": sum.TotalEntities(),
		"total_edges":    sum.TotalEdges(),
	})
}

func (s *Server) handleGraphEntity(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	ref, err := refFromQuery(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	ent, ok, err := s.graph.GetEntity(r.Context(), ref.Type, ref.NaturalKey)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	if !ok {
		writeErr(w, http.StatusNotFound, fmt.Errorf("entity not found"))
		return
	}
	writeJSON(w, http.StatusOK, ent)
}

func (s *Server) handleGraphEdges(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	ref, err := refFromQuery(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	kind := graph.RelKind(strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("kind"))))
	if kind != "" && !graph.IsRelKind(kind) {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("unknown relationship kind %q", kind))
		return
	}
	dir := store.DirBoth
	switch strings.ToLower(strings.TrimSpace(r.URL.Query().Get("direction"))) {
	case "", "both":
	case "out":
		dir = store.DirOut
	case "in":
		dir = store.DirIn
	default:
		writeErr(w, http.StatusBadRequest, fmt.Errorf("direction must be out, in or both"))
		return
	}
	edges, err := s.graph.GetEdges(r.Context(), ref, kind, dir)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"edges": edges, "count": len(edges)})
}

// refFromQuery accepts either a composite key param or a type+key pair.
func refFromQuery(r *http.Request) (graph.EntityRef, error) {
	q := r.URL.Query()
	if raw := strings.TrimSpace(q.Get("id")); raw != "" {
		return graph.ParseKey(raw)
	}
	typ := graph.EntityType(strings.TrimSpace(q.Get("type")))
	key := strings.TrimSpace(q.Get("key"))
	if typ == "" || key == "" {
		return graph.EntityRef{}, fmt.Errorf("id or type and key are required")
	}
	if !graph.IsEntityType(typ) {
		return graph.EntityRef{}, fmt.Errorf("unknown entity type %q", typ)
	}
	return graph.EntityRef{Type: typ, NaturalKey: key}, nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, err error) {
	apiErr := toAPIError(code, err)
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"code":    apiErr.Code,
			"message": apiErr.Message,
		},
	})
}

type apiError struct {
	Code    string
	Message string
}

func toAPIError(status int, err error) apiError {
	msg := "Request failed."
	code := "PG-API-4000"
	raw := ""
	if err != nil {
		raw = strings.ToLower(err.Error())
	}

	switch {
	case status >= 500:
		switch {
		case strings.Contains(raw, "relation") && strings.Contains(raw, "does not exist"):
			return apiError{
				Code:    "PG-DB-5001",
				Message: "Database schema is not initialized. Run migrations and retry.",
			}
		case strings.Contains(raw, "connect"), strings.Contains(raw, "dial tcp"), strings.Contains(raw, "connection refused"):
			return apiError{
				Code:    "PG-DB-5002",
				Message: "Database connection is unavailable. Check local services and retry.",
			}
		default:
			return apiError{
				Code:    "PG-API-5000",
				Message: "Internal server error. Please retry or check service logs.",
			}
		}
	case status == http.StatusBadRequest:
		code = "PG-API-4001"
		msg = "Invalid request. Check inputs and retry."
	case status == http.StatusNotFound:
		code = "PG-API-4004"
		msg = "Requested resource was not found."
	case status == http.StatusConflict:
		code = "PG-API-4009"
		msg = "Operation conflicts with current state. Retry after checking status."
	case status == http.StatusMethodNotAllowed:
		code = "PG-API-4005"
		msg = "This endpoint does not support the requested method."
	}

	// For 4xx, keep user-safe validation context only.
	if status >= 400 && status < 500 && err != nil {
		low := strings.ToLower(err.Error())
		switch {
		case strings.Contains(low, "manifest_path or discover_dir"):
			msg = "Either a manifest path or a discovery directory is required."
		case strings.Contains(low, "id or type and key"):
			msg = "Provide a composite id or both type and key."
		case strings.Contains(low, "unknown entity type"):
			msg = "Unknown entity type."
		case strings.Contains(low, "unknown relationship kind"):
			msg = "Unknown relationship kind."
		case strings.Contains(low, "invalid json"):
			msg = "Malformed JSON request body."
		}
	}

	return apiError{Code: code, Message: msg}
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
