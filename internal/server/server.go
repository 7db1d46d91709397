// Package server provides HTTP server initialization and lifecycle
// management for the Casetrail API.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/scrypster/casetrail/internal/config"
	"github.com/scrypster/casetrail/internal/engine"
	"github.com/scrypster/casetrail/internal/storage"
	"github.com/scrypster/casetrail/web/handlers"
)

// securityHeadersMiddleware adds security headers to all HTTP responses.
func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// methodMux dispatches a route by HTTP method.
func methodMux(routes map[string]http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if handler, ok := routes[r.Method]; ok {
			handler(w, r)
			return
		}
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// Start initializes and starts the HTTP server. It returns the actual
// address being listened on (useful for testing with port 0). The server
// shuts down gracefully when ctx is cancelled.
func Start(ctx context.Context, cfg *config.Config, store storage.GraphStore, logger *zap.Logger) (string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	timelineEngine := engine.NewTimelineEngine(store, logger)
	reminderEngine := engine.NewReminderEngine(store, logger)
	subjectEngine := engine.NewSubjectEngine(store, logger)
	aggregator := engine.NewCalendarAggregator(
		reminderEngine, timelineEngine, cfg.Calendar.ImportantEventTypes, logger)

	timelineHandlers := handlers.NewTimelineHandlers(timelineEngine)
	reminderHandlers := handlers.NewReminderHandlers(reminderEngine)
	calendarHandlers := handlers.NewCalendarHandlers(aggregator)
	lovedOneHandlers := handlers.NewLovedOneHandlers(subjectEngine)

	apiMux := http.NewServeMux()

	apiMux.HandleFunc("GET /calendar/events", calendarHandlers.GetCalendarEvents)

	apiMux.HandleFunc("/reminders", methodMux(map[string]http.HandlerFunc{
		http.MethodGet:  reminderHandlers.ListReminders,
		http.MethodPost: reminderHandlers.CreateReminder,
	}))
	apiMux.HandleFunc("GET /reminders/upcoming", reminderHandlers.UpcomingReminders)
	apiMux.HandleFunc("/reminders/{id}", methodMux(map[string]http.HandlerFunc{
		http.MethodGet:    reminderHandlers.GetReminder,
		http.MethodPut:    reminderHandlers.UpdateReminder,
		http.MethodDelete: reminderHandlers.DeleteReminder,
	}))

	apiMux.HandleFunc("GET /timeline/events", timelineHandlers.ListEvents)
	apiMux.HandleFunc("GET /timeline/events/grouped", timelineHandlers.GroupedEvents)
	apiMux.HandleFunc("/timeline/events/{id}", methodMux(map[string]http.HandlerFunc{
		http.MethodPut:    timelineHandlers.UpdateEvent,
		http.MethodDelete: timelineHandlers.DeleteEvent,
	}))
	apiMux.HandleFunc("/timeline/loved-ones/{id}/events", methodMux(map[string]http.HandlerFunc{
		http.MethodGet:  timelineHandlers.SubjectEvents,
		http.MethodPost: timelineHandlers.CreateEvent,
	}))
	apiMux.HandleFunc("POST /timeline/backfill", timelineHandlers.Backfill)

	apiMux.HandleFunc("POST /loved-ones", lovedOneHandlers.CreateLovedOne)
	apiMux.HandleFunc("GET /loved-ones/{id}", lovedOneHandlers.GetLovedOne)

	mux := http.NewServeMux()

	// Health endpoint, no auth required. Used by monitoring.
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	mux.Handle("/", handlers.RequireAuth(apiMux, cfg))

	rateLimiter := handlers.NewRateLimiter(50.0, 100)
	handler := handlers.RateLimitMiddleware(mux, rateLimiter)
	handler = securityHeadersMiddleware(handler)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	actualAddr := listener.Addr().String()

	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", zap.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", zap.Error(err))
		}
	}()

	logger.Info("server listening", zap.String("addr", actualAddr))
	return actualAddr, nil
}
