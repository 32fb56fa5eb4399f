// Package http exposes the JSON API: expense, vehicle and document CRUD,
// period statistics, AI insights and the chat assistant.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"autocare/internal/advisor"
	"autocare/internal/chat"
	applog "autocare/internal/log"
	"autocare/internal/services"
	"autocare/internal/stats"
)

type Server struct {
	http.Server

	svc      *services.ExpenseService
	analyzer *advisor.Analyzer
	chatCtl  *chat.Controller

	aiTimeout time.Duration

	statsCache  *lruCache[stats.Summary]
	rateLimiter *rateLimiter

	sessionMu sync.Mutex
	session   *chat.Session
}

// NewServer configures routes and middleware, returning a ready-to-run
// server. analyzer and chatCtl may be nil when no AI backend is
// configured; the corresponding endpoints degrade gracefully.
func NewServer(addr string, svc *services.ExpenseService, analyzer *advisor.Analyzer, chatCtl *chat.Controller, aiTimeout time.Duration, logger *applog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           applog.RequestMiddleware(logger)(mux),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      2 * time.Minute,
			IdleTimeout:       2 * time.Minute,
		},
		svc:         svc,
		analyzer:    analyzer,
		chatCtl:     chatCtl,
		aiTimeout:   aiTimeout,
		statsCache:  newLRUCache[stats.Summary](8, 5*time.Minute),
		rateLimiter: newRateLimiter(),
	}

	mux.HandleFunc("GET /healthz", handleHealth)

	mux.HandleFunc("GET /api/expenses", s.secure(s.handleListExpenses))
	mux.HandleFunc("POST /api/expenses", s.secure(s.handleCreateExpense))
	mux.HandleFunc("PUT /api/expenses/{id}", s.secure(s.handleUpdateExpense))
	mux.HandleFunc("DELETE /api/expenses/{id}", s.secure(s.handleDeleteExpense))

	mux.HandleFunc("GET /api/vehicle", s.secure(s.handleGetVehicle))
	mux.HandleFunc("PUT /api/vehicle", s.secure(s.handleSaveVehicle))

	mux.HandleFunc("GET /api/documents", s.secure(s.handleListDocuments))
	mux.HandleFunc("POST /api/documents", s.secure(s.handleCreateDocument))
	mux.HandleFunc("DELETE /api/documents/{id}", s.secure(s.handleDeleteDocument))

	mux.HandleFunc("GET /api/stats", s.secure(s.handleStats))
	mux.HandleFunc("GET /api/insights", s.secure(s.handleInsights))

	mux.HandleFunc("GET /api/chat", s.secure(s.handleChatTranscript))
	mux.HandleFunc("POST /api/chat", s.secure(s.handleChatSend))
	mux.HandleFunc("POST /api/chat/reset", s.secure(s.handleChatReset))

	return s
}

// secure adds security headers and rate-limits mutating requests.
func (s *Server) secure(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP) {
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		next(w, r)
	}
}

// Shutdown stops the HTTP server and the rate limiter cleanup goroutine.
func (s *Server) Shutdown(ctx context.Context) error {
	s.rateLimiter.stop()
	return s.Server.Shutdown(ctx)
}

func (s *Server) invalidateStats() {
	for _, p := range []string{"all", "month", "quarter", "year"} {
		s.statsCache.Delete(p)
	}
}

// aiContext bounds advisory calls so a stuck backend cannot hold a
// handler forever.
func (s *Server) aiContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.aiTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.aiTimeout)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
