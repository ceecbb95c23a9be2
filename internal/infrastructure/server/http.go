package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"
)

type HTTPConfig struct {
	Addr        string
	ReadTimeout time.Duration
	IdleTimeout time.Duration
}

type HTTPServer struct {
	cfg     HTTPConfig
	handler http.Handler

	mu    sync.Mutex
	srv   *http.Server
	ready chan struct{}
	addr  net.Addr
}

var _ Server = (*HTTPServer)(nil)

func NewHTTPServer(cfg HTTPConfig, handler http.Handler) *HTTPServer {
	return &HTTPServer{
		cfg:     cfg,
		handler: handler,
		ready:   make(chan struct{}),
	}
}

// Start listens on the configured address and serves until Stop is called.
func (h *HTTPServer) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", h.cfg.Addr)
	if err != nil {
		return err
	}

	h.mu.Lock()
	// No write timeout: SSE streams stay open for the life of the client.
	h.srv = &http.Server{
		Handler:     h.handler,
		ReadTimeout: h.cfg.ReadTimeout,
		IdleTimeout: h.cfg.IdleTimeout,
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	h.addr = ln.Addr()
	srv := h.srv
	h.mu.Unlock()
	close(h.ready)

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Addr blocks until the server is listening and returns its address.
func (h *HTTPServer) Addr(ctx context.Context) (net.Addr, error) {
	select {
	case <-h.ready:
		h.mu.Lock()
		defer h.mu.Unlock()
		return h.addr, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h *HTTPServer) Stop(ctx context.Context) error {
	h.mu.Lock()
	srv := h.srv
	h.mu.Unlock()

	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
