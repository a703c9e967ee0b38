// Package api serves the marketplace over HTTP: JSON endpoints for the
// token catalog, trade and creation forms, and a WebSocket live feed.
package api

import (
	"bufio"
	"context"
	"errors"
	"math/big"
	"net"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"pumpcore/internal/contract"
	"pumpcore/internal/creation"
	"pumpcore/internal/domain"
	"pumpcore/internal/observability"
)

// Catalog answers token queries. *catalog.Service satisfies it.
type Catalog interface {
	List(ctx context.Context, query string) ([]*domain.TokenInfo, error)
	Get(ctx context.Context, addr common.Address) (*domain.TokenInfo, error)
	Chart(ctx context.Context, addr common.Address) (domain.Chart, error)
	History(ctx context.Context, addr common.Address, limit int) ([]*domain.TokenSnapshot, error)
	FromTokensResult(ctx context.Context, addr common.Address, out []any) (*domain.TokenInfo, error)
}

// Session submits writes and streams read updates.
// *connection.Connection satisfies it.
type Session interface {
	creation.Session
	Subscribe(call contract.Call, fn func([]any)) (unsubscribe func())
}

// Options configures Server.
type Options struct {
	Addr            string
	Catalog         Catalog
	Session         Session
	Pinner          creation.Pinner // optional
	RequiredChainID *big.Int
	Deposit         *big.Int
	// Status, when set, is served as JSON on /status.
	Status func() any
	Logger *zap.Logger
}

// Server provides the HTTP API.
type Server struct {
	catalog         Catalog
	session         Session
	pinner          creation.Pinner
	requiredChainID *big.Int
	deposit         *big.Int
	status          func() any
	logger          *zap.Logger

	started  time.Time
	upgrader websocket.Upgrader
	clients  atomic.Int64

	router *mux.Router
	http   *http.Server
}

// NewServer creates the API server and registers its routes.
func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	s := &Server{
		catalog:         opts.Catalog,
		session:         opts.Session,
		pinner:          opts.Pinner,
		requiredChainID: opts.RequiredChainID,
		deposit:         opts.Deposit,
		status:          opts.Status,
		logger:          opts.Logger.Named("api"),
		started:         time.Now(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	r := mux.NewRouter()
	r.Use(s.instrument)

	// Service endpoints
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", observability.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)

	// Token endpoints
	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/tokens", s.handleListTokens).Methods(http.MethodGet)
	api.HandleFunc("/tokens", s.handleCreateToken).Methods(http.MethodPost)
	api.HandleFunc("/tokens/{address}", s.handleGetToken).Methods(http.MethodGet)
	api.HandleFunc("/tokens/{address}/chart", s.handleChart).Methods(http.MethodGet)
	api.HandleFunc("/tokens/{address}/history", s.handleHistory).Methods(http.MethodGet)
	api.HandleFunc("/tokens/{address}/estimate", s.handleEstimate).Methods(http.MethodGet)
	api.HandleFunc("/tokens/{address}/buy", s.handleTrade).Methods(http.MethodPost)
	api.HandleFunc("/tokens/{address}/sell", s.handleTrade).Methods(http.MethodPost)

	// Live feed
	r.HandleFunc("/ws/tokens/{address}", s.handleLiveToken).Methods(http.MethodGet)

	s.router = r
	s.http = &http.Server{
		Addr:              opts.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Stop is called. It returns nil after a clean shutdown.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// instrument records one request metric per route template and status code.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		observability.RecordHTTPRequest(route, strconv.Itoa(rec.status))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack lets the WebSocket upgrader take over the connection.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

// StatusResponse is the JSON response for /status when no provider is set.
type StatusResponse struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
	Live   int64  `json:"liveClients"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	if s.status != nil {
		writeJSON(w, http.StatusOK, s.status())
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{
		Status: "running",
		Uptime: time.Since(s.started).Round(time.Second).String(),
		Live:   s.clients.Load(),
	})
}
