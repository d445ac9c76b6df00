package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/go-uuid"

	"github.com/vk/crewplan/internal/ctxlog"
	"github.com/vk/crewplan/internal/solverproc"
)

// serve exposes the solve contract over HTTP. Each POST /solve spawns its
// own isolated worker, so concurrent callers never share solver state. The
// endpoint speaks the same wire contract as the worker itself: the request
// body is a solve Request, the response body a solve Response.
func (a *App) serve(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /solve", a.solveHandler(ctx))
	mux.HandleFunc("GET /healthz", a.healthHandler(ctx))

	server := &http.Server{
		Addr:    a.config.ListenAddr,
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Solve server starting.", "address", a.config.ListenAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		logger.Info("Shutting down solve server...")
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (a *App) healthHandler(ctx context.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctxlog.FromContext(ctx).Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr)
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "OK")
	}
}

func (a *App) solveHandler(ctx context.Context) http.HandlerFunc {
	baseLogger := ctxlog.FromContext(ctx)

	return func(w http.ResponseWriter, r *http.Request) {
		requestID, err := uuid.GenerateUUID()
		if err != nil {
			requestID = "unknown"
		}
		logger := baseLogger.With("request_id", requestID)
		reqCtx := ctxlog.WithLogger(r.Context(), logger)

		var req solverproc.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Warn("Rejected malformed solve request.", "error", err)
			writeJSON(w, http.StatusBadRequest, &solverproc.Response{
				OK:    false,
				Error: "malformed request: " + err.Error(),
			})
			return
		}

		logger.Info("Solve request accepted.",
			"remote_addr", r.RemoteAddr,
			"operations", len(req.Operations),
			"workers", len(req.Workers),
		)

		sched, err := a.client.Solve(reqCtx, req.Problem())
		if err != nil {
			logger.Error("Solve request failed.", "error", err)
			writeJSON(w, http.StatusInternalServerError, &solverproc.Response{
				OK:    false,
				Error: err.Error(),
			})
			return
		}

		writeJSON(w, http.StatusOK, &solverproc.Response{OK: true, Result: sched})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
