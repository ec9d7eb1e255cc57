package api

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const shutdownTimeout = 10 * time.Second

// Server handles HTTP requests for bill splitting
type Server struct {
	service   *Service
	basicAuth BasicAuth
	mux       *http.ServeMux
}

// BasicAuth holds basic authentication credentials
type BasicAuth struct {
	Username string
	Password string
}

// NewServer creates a new Server with default mux
func NewServer(service *Service, basicAuth BasicAuth) *Server {
	return NewServerWithMux(service, basicAuth, http.NewServeMux())
}

// NewServerWithMux creates a new Server with a custom mux for testing
func NewServerWithMux(service *Service, basicAuth BasicAuth, mux *http.ServeMux) *Server {
	s := &Server{
		service:   service,
		basicAuth: basicAuth,
		mux:       mux,
	}
	s.registerRoutes()
	return s
}

// enabled reports whether credentials were configured
func (a BasicAuth) enabled() bool {
	return a.Username != "" || a.Password != ""
}

// authenticate checks basic auth credentials
func (s *Server) authenticate(r *http.Request) bool {
	if !s.basicAuth.enabled() {
		return true
	}

	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Basic ") {
		return false
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(auth, "Basic "))
	if err != nil {
		return false
	}

	user, pass, ok := strings.Cut(string(decoded), ":")
	if !ok {
		return false
	}

	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(s.basicAuth.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(s.basicAuth.Password)) == 1
	return userOK && passOK
}

// corsMiddleware adds CORS headers and answers preflight requests
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setCORSHeaders(w)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireAuth middleware
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.authenticate(r) {
			w.Header().Set("WWW-Authenticate", `Basic realm="Splitsy"`)
			writeError(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// registerRoutes registers all API routes on the server's mux
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)

	s.mux.HandleFunc("POST /api/extract", s.requireAuth(s.handleExtract))
	s.mux.HandleFunc("POST /api/bills/normalize", s.requireAuth(s.handleNormalize))
	s.mux.HandleFunc("POST /api/sessions/resize", s.requireAuth(s.handleResize))
	s.mux.HandleFunc("POST /api/sessions/items/edit", s.requireAuth(s.handleEditItem))
	s.mux.HandleFunc("POST /api/sessions/items/remove", s.requireAuth(s.handleRemoveItem))
	s.mux.HandleFunc("POST /api/sessions/items", s.requireAuth(s.handleAddItem))
	s.mux.HandleFunc("POST /api/sessions/charges", s.requireAuth(s.handleCharges))
	s.mux.HandleFunc("POST /api/sessions/method", s.requireAuth(s.handleMethod))
	s.mux.HandleFunc("POST /api/sessions/participants/remove", s.requireAuth(s.handleRemoveParticipant))
	s.mux.HandleFunc("POST /api/sessions/participants/rename", s.requireAuth(s.handleRenameParticipant))
	s.mux.HandleFunc("POST /api/sessions/participants", s.requireAuth(s.handleAddParticipant))
	s.mux.HandleFunc("POST /api/sessions/assignments/toggle", s.requireAuth(s.handleToggleAssignment))
	s.mux.HandleFunc("POST /api/sessions", s.requireAuth(s.handleNewSession))
	s.mux.HandleFunc("POST /api/split", s.requireAuth(s.handleSplit))
	s.mux.HandleFunc("POST /api/summary", s.requireAuth(s.handleSummary))
}

// Handler returns the mux wrapped with CORS handling
func (s *Server) Handler() http.Handler {
	return s.corsMiddleware(s.mux)
}

// Start serves on addr until ctx is done, then drains in-flight requests for
// up to shutdownTimeout
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting server", "address", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ServeHTTP implements http.Handler for testing
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Handler().ServeHTTP(w, r)
}
