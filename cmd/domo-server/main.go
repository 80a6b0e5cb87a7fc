package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"domo/internal/config"
	"domo/internal/db"
	"domo/internal/domain"
	"domo/internal/fallback"
	"domo/internal/interp"
	"domo/internal/mqtt"
	"domo/internal/vocab"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg, err := config.LoadServerConfig()
	if err != nil {
		logger.Error("load config failed", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := db.New(ctx, cfg.DBDSN)
	if err != nil {
		logger.Error("connect db failed", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	if err := store.Migrate(ctx); err != nil {
		logger.Error("migrate db failed", "error", err)
		os.Exit(1)
	}

	devices, rooms, err := store.Snapshot(ctx)
	if err != nil {
		logger.Error("load device snapshot failed", "error", err)
		os.Exit(1)
	}
	table, err := vocab.NewTable(devices, rooms)
	if err != nil {
		logger.Error("build vocabulary failed", "error", err)
		os.Exit(1)
	}
	logger.Info("vocabulary loaded", "devices", len(devices), "rooms", len(rooms))

	publisher := mqtt.NewPublisher(mqtt.Config{
		BrokerURL:   cfg.MQTTBrokerURL,
		ClientID:    cfg.MQTTClientID,
		Username:    cfg.MQTTUsername,
		Password:    cfg.MQTTPassword,
		TopicPrefix: cfg.MQTTTopicPrefix,
	}, logger)
	if publisher.Enabled() {
		if err := publisher.Start(ctx); err != nil {
			logger.Error("start mqtt publisher failed", "error", err)
			os.Exit(1)
		}
	} else {
		logger.Warn("mqtt publisher disabled, commands will not be dispatched")
	}

	fb := fallback.NewClient(cfg.OllamaBaseURL, cfg.OllamaModel, cfg.FallbackTimeout, table.Devices)
	svc := interp.New(interp.Config{
		IntentThreshold: cfg.IntentThreshold,
		DeviceThreshold: cfg.DeviceThreshold,
		FallbackTimeout: cfg.FallbackTimeout,
	}, table, fb, logger)

	deviceHandlers := &deviceAPI{store: store, svc: svc, pub: publisher, logger: logger}

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		probeCtx, probeCancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer probeCancel()
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":                 true,
			"devices":            len(table.Devices()),
			"fallback_available": fb.Available(probeCtx),
		})
	})

	r.Post("/v1/interpret", func(w http.ResponseWriter, req *http.Request) {
		var in domain.InterpretRequest
		if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
			return
		}

		// Blank text is interpretable: it yields Unknown, never an error.
		result := svc.Interpret(req.Context(), in.Text)
		requestID := uuid.NewString()

		if err := store.LogInterpretation(req.Context(), requestID, in.Text, result); err != nil {
			logger.Warn("log interpretation failed", "error", err)
		}

		if publisher.Enabled() && shouldDispatch(result) {
			cmd := domain.DeviceCommand{
				RequestID: requestID,
				DeviceKey: result.Device,
				Action:    result.Intent.Action(),
				Source:    string(result.Source),
			}
			if err := publisher.PublishCommand(req.Context(), cmd); err != nil {
				logger.Error("publish command failed", "request_id", requestID, "device", result.Device, "error", err)
			}
		}

		writeJSON(w, http.StatusOK, domain.InterpretResponse{
			Success:        true,
			Data:           result.Payload(),
			OriginalText:   in.Text,
			ConfidenceNote: result.Note,
		})
	})

	r.Route("/v1/devices", func(r chi.Router) {
		r.Get("/", deviceHandlers.list)
		r.Post("/", deviceHandlers.create)
		r.Post("/reload", deviceHandlers.reload)
		r.Get("/{deviceKey}", deviceHandlers.get)
		r.Put("/{deviceKey}", deviceHandlers.update)
		r.Patch("/{deviceKey}", deviceHandlers.update)
		r.Delete("/{deviceKey}", deviceHandlers.remove)
		r.Get("/{deviceKey}/endpoint/{action}", deviceHandlers.endpoint)
	})

	r.Get("/v1/interpretations", func(w http.ResponseWriter, req *http.Request) {
		entries, err := store.RecentInterpretations(req.Context(), 50)
		if err != nil {
			logger.Error("list interpretations failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal error"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "entries": entries})
	})

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("domo server started", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		logger.Info("received shutdown signal")
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", "error", err)
	}
}

// shouldDispatch gates command publishing: only affirmative, actionable
// interpretations with a resolved device reach the broker. Negated commands
// are acknowledged but never executed.
func shouldDispatch(result domain.Interpretation) bool {
	if result.Negated || result.Device == "" {
		return false
	}
	switch result.Intent {
	case domain.IntentTurnOn, domain.IntentTurnOff, domain.IntentOpen, domain.IntentClose, domain.IntentToggle:
		return true
	default:
		return false
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
