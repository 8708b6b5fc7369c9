// Package gateway is the HTTP front door of the leasing agent: the JSON query
// endpoint the messaging platform calls, the triage endpoint, a websocket chat
// for testing agents interactively and the Prometheus scrape endpoint.
package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"vla/internal/domain"
	"vla/internal/metrics"
	"vla/internal/router"
)

// ErrInvalidPort is returned when gateway port is not in 0..65535.
var ErrInvalidPort = errors.New("gateway port must be 0-65535")

// ErrNotListening is returned by Serve before Listen succeeded.
var ErrNotListening = errors.New("gateway: Serve called before Listen")

// shutdownGrace bounds how long in-flight conversations may finish.
const shutdownGrace = 5 * time.Second

// Agent answers a prospect message in its conversation. *router.Router
// satisfies it.
type Agent interface {
	Route(ctx context.Context, req router.Request) (string, error)
}

// Triage decides whether a message should be answered by the agent.
type Triage interface {
	AnswerableFor(ctx context.Context, communityID, message string) (bool, error)
}

// Deps are the services the gateway exposes. Nil members disable their
// endpoints (503), except /ws which falls back to echo.
type Deps struct {
	Agent  Agent
	Triage Triage
	Logger *slog.Logger
}

// Server binds the gateway port and serves the leasing endpoints.
type Server struct {
	port   int
	http   *http.Server
	logger *slog.Logger
	ln     net.Listener
}

// netListen and serverShutdown are replaced in tests.
var (
	netListen      = net.Listen
	serverShutdown = func(ctx context.Context, srv *http.Server) error { return srv.Shutdown(ctx) }
)

// NewServer builds the gateway. A nil cfg means port 8000 without auth;
// port 0 picks a free port at Listen.
func NewServer(cfg *domain.GatewayConfig, deps Deps) (*Server, error) {
	if cfg == nil {
		cfg = &domain.GatewayConfig{Port: 8000}
	}
	if cfg.Port < 0 || cfg.Port > 65535 {
		return nil, ErrInvalidPort
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		port:   cfg.Port,
		logger: logger,
		http: &http.Server{
			Handler:           routes(cfg, deps, logger),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       seconds(cfg.ReadTimeout, 30),
			WriteTimeout:      seconds(cfg.WriteTimeout, 120),
		},
	}, nil
}

// routes assembles the mux behind request logging and bearer auth.
func routes(cfg *domain.GatewayConfig, deps Deps, logger *slog.Logger) http.Handler {
	h := &handlers{agent: deps.Agent, triage: deps.Triage, logger: logger}
	checkOrigin := OriginChecker(cfg.AllowedOrigins)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.root)
	mux.HandleFunc("POST /query-vla-llm/client_id/{client_id}/group_id/{group_id}", h.query)
	mux.HandleFunc("POST /answerable", h.answerable)
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		HandleWS(w, r, deps.Agent, logger, checkOrigin)
	})
	mux.Handle("GET /metrics", metrics.Handler())

	return RequestLogger(logger)(BearerAuth(cfg.Auth.AuthToken)(mux))
}

func seconds(n, def int) time.Duration {
	if n <= 0 {
		n = def
	}
	return time.Duration(n) * time.Second
}

// Handler exposes the routed handler for tests that skip binding.
func (s *Server) Handler() http.Handler { return s.http.Handler }

// Listen binds the configured port and returns the bound address.
func (s *Server) Listen() (string, error) {
	ln, err := netListen("tcp", ":"+strconv.Itoa(s.port))
	if err != nil {
		return "", err
	}
	s.ln = ln
	return ln.Addr().String(), nil
}

// Serve handles requests on the bound listener until ctx is done, then
// drains in-flight requests for up to shutdownGrace.
func (s *Server) Serve(ctx context.Context) error {
	if s.ln == nil {
		return ErrNotListening
	}
	s.logger.Info("gateway listening", "addr", s.ln.Addr().String())

	served := make(chan error, 1)
	go func() { served <- s.http.Serve(s.ln) }()

	select {
	case err := <-served:
		return err
	case <-ctx.Done():
	}
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownGrace)
	defer cancel()
	if err := serverShutdown(sctx, s.http); err != nil {
		return err
	}
	if err := <-served; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
