package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"load_profile/internal/config"
	"load_profile/internal/ingest"
	"load_profile/internal/metrics"
	"load_profile/internal/mqtt"
	"load_profile/internal/numeric"
	"load_profile/internal/pipeline"
	"load_profile/internal/store"
	"load_profile/internal/ws"
)

func main() {
	configPath := flag.String("config", "", "profile config file (default $LOADPROFILE_CONFIG)")
	frontendDir := flag.String("frontend-dir", "frontend/build", "directory containing frontend build")
	addr := flag.String("addr", "", "listen address (default $LISTEN_ADDR or :8080)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Config: %v", err)
	}
	if *addr != "" {
		cfg.ListenAddr = *addr
	}
	defaults, err := pipeline.OptionsFromConfig(cfg)
	if err != nil {
		log.Fatalf("Config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load inputs once; every generation reads from the store.
	dataStore := store.New()
	if err := ingest.Load(ctx, cfg, dataStore); err != nil {
		log.Fatalf("Failed to load inputs: %v", err)
	}
	tr, ok := dataStore.GlobalTimeRange()
	if !ok {
		log.Fatal("No history loaded")
	}
	log.Printf("History loaded: %s to %s (%d records)", tr.Start.Format("2006-01-02"), tr.End.Format("2006-01-02"), dataStore.Count())

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	runMetrics := metrics.New(reg)

	hub := ws.NewHub()
	hub.OnDrop(runMetrics.DroppedMessage)
	bridge := ws.NewBridge(hub)
	sinks := pipeline.Callbacks{bridge}

	var pubWG sync.WaitGroup
	pubCtx, stopPub := context.WithCancel(context.Background())
	defer func() {
		stopPub()
		pubWG.Wait()
	}()
	var publisher *mqtt.Publisher
	if cfg.MQTT.Broker != "" {
		client, err := mqtt.NewClient(mqtt.ClientConfig{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Username: cfg.MQTT.Username,
			Password: cfg.MQTT.Password,
		})
		if err != nil {
			log.Printf("MQTT disabled: %v", err)
		} else {
			defer client.Close()
			publisher = mqtt.NewPublisher(client.Native(), mqtt.PublisherConfig{Topic: cfg.MQTT.Topic})
			sinks = append(sinks, publisher)
			pubWG.Add(1)
			go func() {
				defer pubWG.Done()
				publisher.Start(pubCtx)
			}()
		}
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	engine := pipeline.New(numeric.DefaultToolkit(), logger)
	engine.SetCallback(sinks)

	handler := ws.NewHandler(hub, bridge, engine, dataStore, defaults, cfg.ForecastModel)
	handler.OnResult(func(res *pipeline.Result) {
		runMetrics.Observe(res)
		if publisher != nil {
			publisher.OnResult(res)
		}
	})

	mux := newMux(handler, dataStore, reg)

	// Serve frontend static files
	if _, err := os.Stat(*frontendDir); err == nil {
		log.Printf("Serving frontend from %s", *frontendDir)
		mux.Handle("/", http.FileServer(http.Dir(*frontendDir)))
	}

	srv := &http.Server{Addr: cfg.ListenAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		log.Println("Shutting down...")
		handler.Cancel()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Shutdown: %v", err)
		}
		hub.Close()
	}()

	log.Printf("Starting server on %s", cfg.ListenAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
	handler.Wait()
}

type healthResponse struct {
	Status  string `json:"status"`
	Records int    `json:"records"`
	Running bool   `json:"running"`
}

type runState interface {
	http.Handler
	Running() bool
}

func newMux(handler runState, s *store.Store, reg *prometheus.Registry) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(healthResponse{
			Status:  "ok",
			Records: s.Count(),
			Running: handler.Running(),
		}); err != nil {
			log.Printf("health: %v", err)
		}
	})
	mux.HandleFunc("GET /sources", func(w http.ResponseWriter, r *http.Request) {
		sources := s.Sources()
		infos := make([]ws.SourceInfo, 0, len(sources))
		for _, src := range sources {
			infos = append(infos, ws.SourceFromStore(src))
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(infos); err != nil {
			http.Error(w, fmt.Sprintf("encoding sources: %v", err), http.StatusInternalServerError)
		}
	})
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.Handle("/ws", handler)
	return mux
}
