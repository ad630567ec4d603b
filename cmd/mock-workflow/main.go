package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"sync/atomic"

	"github.com/josh-kwaku/order-replay/internal/logging"
	"github.com/josh-kwaku/order-replay/internal/service"
)

func main() {
	logging.Init("mock-workflow", os.Getenv("LOG_LEVEL"), os.Getenv("APP_ENV"))

	addr := os.Getenv("ADDR")
	if addr == "" {
		addr = ":8081"
	}

	var received atomic.Int64

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "received": received.Load()})
	})
	mux.HandleFunc("POST /actions", func(w http.ResponseWriter, r *http.Request) {
		var msg service.ActionMessage
		if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid action message"})
			return
		}

		received.Add(1)
		slog.Info("action command received",
			"command_id", msg.CommandID,
			"order_id", msg.OrderID,
			"action", msg.Action,
			"state", msg.State,
			"idempotency_key", r.Header.Get("Idempotency-Key"),
		)
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
	})

	slog.Info("mock workflow started", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}
