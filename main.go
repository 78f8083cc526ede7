// main.go
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ibis-project/ibis-examples/config"
	"github.com/ibis-project/ibis-examples/converter"
	"github.com/ibis-project/ibis-examples/database"
	"github.com/ibis-project/ibis-examples/handlers"
	"github.com/ibis-project/ibis-examples/scraper"
	"github.com/ibis-project/ibis-examples/services"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (defaults are used when empty)")
	mode := flag.String("mode", services.PipelineCampaign, "campaign, tutorial, all, preview, status or serve")
	previewRows := flag.Int("n", 5, "rows to print in preview mode")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	downloader := scraper.NewDownloader(cfg.HTTP.Timeout, cfg.HTTP.S3Region)
	downloader.S3Endpoint = cfg.HTTP.S3Endpoint
	downloader.GCSEndpoint = cfg.HTTP.GCSEndpoint
	defer downloader.Close()
	conv := converter.New(converter.OptionsFromConfig(cfg.Campaign))

	var store *database.Store
	if cfg.Database.Enabled() {
		store, err = database.Open(ctx, cfg.Database)
		if err != nil {
			log.Fatalf("Error initializing database: %v", err)
		}
		defer store.Close()
		if err := store.EnsureSchema(ctx); err != nil {
			log.Fatalf("Error preparing artifact ledger: %v", err)
		}
	}

	pipeline := services.NewPipeline(cfg, downloader, conv, nil)
	if store != nil {
		pipeline.Recorder = store
	}

	switch *mode {
	case services.PipelineCampaign, services.PipelineTutorial, "all":
		reports, err := pipeline.Run(ctx, *mode)
		if err != nil {
			log.Fatalf("Error running %s pipeline: %v", *mode, err)
		}
		for _, r := range reports {
			log.Printf("Pipeline %s complete: %d of %d stages produced output", r.Pipeline, r.Produced(), len(r.Stages))
		}

	case "preview":
		rows, err := converter.Preview(cfg.ExtractedPath(), converter.OptionsFromConfig(cfg.Campaign), *previewRows)
		if err != nil {
			log.Fatalf("Error previewing %s: %v", cfg.ExtractedPath(), err)
		}
		printJSON(rows)

	case "status":
		status, err := pipeline.Status()
		if err != nil {
			log.Fatalf("Error reading artifact status: %v", err)
		}
		printJSON(status)

	case "serve":
		h := &handlers.AdminHandler{Runner: pipeline}
		if store != nil {
			h.Ledger = store
		}
		srv := &http.Server{Addr: ":" + cfg.Server.Port, Handler: handlers.NewRouter(h)}
		go func() {
			<-ctx.Done()
			if err := srv.Shutdown(context.Background()); err != nil {
				log.Printf("Error shutting down server: %v", err)
			}
		}()
		log.Printf("Server starting on http://localhost%s\n", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Error starting server: %v", err)
		}

	default:
		log.Fatalf("Unknown mode %q", *mode)
	}
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Fatalf("Error encoding output: %v", err)
	}
}
