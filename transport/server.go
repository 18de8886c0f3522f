// Package transport provides the asynchronous TCP transport consumed by the
// telnet console engine: per-address-family listening servers with an accept
// callback, callback-driven connections with ordered send completions, and a
// pool of recycled outbound buffers. The engine only depends on the Conn
// interface, so tests and other transports can substitute their own.
package transport

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/cyberinferno/telnet-console/logger"
)

// AcceptFunc is called once per inbound connection from the server's accept
// goroutine, or with a nil Conn and an error when an accept attempt fails.
// The callee owns the Conn and must eventually Close it.
type AcceptFunc func(conn Conn, err error)

// Server listens on one address family and hands accepted connections to an
// AcceptFunc. It keeps a registry of live connections so Stop can close
// them all, and runs its accept loop in a goroutine.
type Server struct {
	family string
	addr   string
	pool   *BufferPool
	log    logger.Logger

	listener net.Listener
	running  atomic.Bool
	nextID   atomic.Uint32
	wg       sync.WaitGroup

	mu    sync.Mutex
	conns map[uint32]*tcpConn
}

// NewServer creates a Server for the given family ("tcp4" or "tcp6") and
// listen address. Outbound buffers for the server's connections come from
// pool.
//
// Parameters:
//   - family: The network to listen on, "tcp4" or "tcp6"
//   - addr: The listen address, e.g. ":23"
//   - pool: Pool supplying outbound buffers to connections
//   - log: Logger; nil for no logging
//
// Returns:
//   - A new Server, not yet listening
func NewServer(family, addr string, pool *BufferPool, log logger.Logger) *Server {
	if log == nil {
		log = logger.NewNop()
	}

	return &Server{
		family: family,
		addr:   addr,
		pool:   pool,
		log:    log.With(logger.Field{Key: "family", Value: family}),
		conns:  make(map[uint32]*tcpConn),
	}
}

// Start binds the listener and begins the accept loop in a goroutine.
//
// Parameters:
//   - accept: Callback receiving each accepted connection
//
// Returns:
//   - An error if the server is already running or the bind fails
func (s *Server) Start(accept AcceptFunc) error {
	if s.running.Load() {
		return fmt.Errorf("transport: %s server already running", s.family)
	}

	ln, err := net.Listen(s.family, s.addr)
	if err != nil {
		s.log.Error("listen failed", logger.Field{Key: "error", Value: err})
		return fmt.Errorf("transport: listen %s %s: %w", s.family, s.addr, err)
	}

	s.listener = ln
	s.running.Store(true)
	s.log.Info("listener started", logger.Field{Key: "addr", Value: ln.Addr().String()})

	s.wg.Add(1)
	go s.acceptLoop(accept)

	return nil
}

// Addr returns the listener's bound address, or nil before Start. Useful
// when listening on an ephemeral port.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Family returns the server's address family ("tcp4" or "tcp6").
func (s *Server) Family() string {
	return s.family
}

func (s *Server) acceptLoop(accept AcceptFunc) {
	defer s.wg.Done()

	for s.running.Load() {
		nc, err := s.listener.Accept()
		if err != nil {
			if !s.running.Load() {
				return
			}

			s.log.Error("accept error", logger.Field{Key: "error", Value: err})
			accept(nil, err)
			continue
		}

		id := s.nextID.Add(1)
		c := newTCPConn(id, nc, s.pool)
		c.onClose = func() { s.removeConn(id) }

		s.mu.Lock()
		s.conns[id] = c
		s.mu.Unlock()

		accept(c, nil)
	}
}

func (s *Server) removeConn(id uint32) {
	s.mu.Lock()
	delete(s.conns, id)
	s.mu.Unlock()
}

// Stop closes the listener and every live connection, then waits for the
// accept loop to exit. Safe to call when the server is not running.
func (s *Server) Stop() {
	if !s.running.Load() {
		return
	}

	s.running.Store(false)
	if s.listener != nil {
		_ = s.listener.Close()
	}

	s.mu.Lock()
	conns := make([]*tcpConn, 0, len(s.conns))
	for _, c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		_ = c.Close()
	}

	s.wg.Wait()
	s.log.Info("listener stopped")
}
