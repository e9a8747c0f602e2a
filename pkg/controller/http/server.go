package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/secmon-lab/lexiconnect/pkg/domain/model"
	"github.com/secmon-lab/lexiconnect/pkg/usecase"
	"github.com/secmon-lab/lexiconnect/pkg/utils/logging"
)

// ToastQueue hands pending toasts to the rendering layer
type ToastQueue interface {
	// Take returns the pending toast and clears it, or nil when none is pending
	Take() *model.Toast
	// Peek returns the pending toast without clearing it
	Peek() *model.Toast
}

type Server struct {
	router   *chi.Mux
	uc       *usecase.UseCases
	toasts   ToastQueue
	apiToken string
}

type Options func(*Server)

// WithToastQueue enables GET /api/toast
func WithToastQueue(q ToastQueue) Options {
	return func(s *Server) {
		s.toasts = q
	}
}

// WithAPIToken requires "Authorization: Bearer <token>" on /api routes
func WithAPIToken(token string) Options {
	return func(s *Server) {
		s.apiToken = token
	}
}

func New(uc *usecase.UseCases, opts ...Options) *Server {
	r := chi.NewRouter()

	s := &Server{
		router: r,
		uc:     uc,
	}
	for _, opt := range opts {
		opt(s)
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(accessLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", healthHandler)

	r.Route("/api", func(r chi.Router) {
		if s.apiToken != "" {
			r.Use(tokenAuthMiddleware(s.apiToken))
		}

		r.Get("/unread", s.unreadHandler)

		r.Route("/cases/{caseID}", func(r chi.Router) {
			r.Get("/conversation", s.conversationHandler)
			r.Post("/read", s.markReadHandler)
			r.Post("/dismiss", s.dismissHandler)
			r.Delete("/dismiss", s.undismissHandler)
		})

		if s.toasts != nil {
			r.Get("/toast", s.toastHandler)
		}

		r.Route("/watch", func(r chi.Router) {
			r.Get("/", s.watchSnapshotHandler)
			r.Put("/", s.watchSelectHandler)
			r.Post("/refresh", s.watchRefreshHandler)
		})
	})

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// accessLogger is a middleware that logs HTTP requests
func accessLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			logging.Default().Info("access",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
				"request_id", middleware.GetReqID(r.Context()),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}
