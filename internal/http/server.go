package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"ledger/internal/auth"
	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/metrics"
	"ledger/internal/middleware/security"
	"ledger/internal/middleware/trace"
)

// ExpenseAPI is what the handlers need from the expense service.
type ExpenseAPI interface {
	List(ctx context.Context, month string) (core.ExpenseList, error)
	Get(ctx context.Context, id int64) (*core.ExpenseEntry, error)
	Create(ctx context.Context, in core.ExpenseInput) (int64, error)
	Update(ctx context.Context, id int64, in core.ExpenseInput) (bool, error)
	Delete(ctx context.Context, id int64) error
}

// Options configures NewServer.
type Options struct {
	Addr     string
	Expenses ExpenseAPI
	Gate     *auth.Gate

	// LoginPath is where the guard redirects; defaults to auth.DefaultLoginPath.
	LoginPath string
	// ProtectReads also guards the expense list and lookup.
	ProtectReads bool

	Proxies *security.ProxyResolver
	// Ready backs /readyz; nil means always ready.
	Ready  func(ctx context.Context) error
	Logger *log.Logger
}

type Server struct {
	http.Server
	expenses  ExpenseAPI
	gate      *auth.Gate
	guard     *auth.Guard
	proxies   *security.ProxyResolver
	ready     func(ctx context.Context) error
	loginPath string

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(opts Options) *Server {
	loginPath := opts.LoginPath
	if loginPath == "" {
		loginPath = auth.DefaultLoginPath
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}

	s := &Server{
		expenses:  opts.Expenses,
		gate:      opts.Gate,
		guard:     auth.NewGuard(opts.Gate, loginPath),
		proxies:   opts.Proxies,
		ready:     opts.Ready,
		loginPath: loginPath,
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("GET /api/session", s.handleSession)
	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.HandleFunc("POST /api/logout", s.handleLogout)

	read := func(h http.HandlerFunc) http.HandlerFunc {
		if opts.ProtectReads {
			return s.guard.Wrap(h)
		}
		return h
	}
	mux.HandleFunc("GET /api/expenses", read(s.handleListExpenses))
	mux.HandleFunc("GET /api/expenses/{id}", read(s.handleGetExpense))
	mux.HandleFunc("POST /api/expenses", s.guard.Wrap(s.handleCreateExpense))
	mux.HandleFunc("PUT /api/expenses/{id}", s.guard.Wrap(s.handleUpdateExpense))
	mux.HandleFunc("POST /api/expenses/{id}", s.guard.Wrap(s.handleUpdateExpense))
	mux.HandleFunc("DELETE /api/expenses/{id}", s.guard.Wrap(s.handleDeleteExpense))
	mux.HandleFunc("POST /api/expenses/{id}/delete", s.guard.Wrap(s.handleDeleteExpense))

	var handler http.Handler = mux
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig(), opts.Proxies).Middleware(handler)
	handler = trace.NewMiddleware(opts.Proxies.ClientIP).Middleware(handler)
	handler = log.Middleware(logger)(handler)
	handler = metrics.InstrumentHandler(handler)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Shutdown gracefully shuts down the server. Repeated calls are no-ops.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// scheme is the scheme the client used, as seen through trusted proxies.
func (s *Server) scheme(r *http.Request) string {
	return s.proxies.Scheme(r)
}
