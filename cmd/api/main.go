package main

import (
	"log"
	"net/http"

	"pubgraph/internal/api"
	"pubgraph/internal/config"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load(".env")
	cfg := config.Load()
	h := api.NewServer(cfg)
	log.Printf("pubgraph api listening on %s postgres=%t", cfg.APIAddr, cfg.PostgresURL != "")
	if err := http.ListenAndServe(cfg.APIAddr, h.Routes()); err != nil {
		log.Fatal(err)
	}
}
