// Package telnetconsole implements a remote console engine over Telnet: it
// intercepts the process-wide character output stream, buffers it into a
// fixed-size ring of line slots, and drains completed lines to a single
// connected client through an asynchronous transport. Client input flows
// back through a minimal Telnet filter into a pre-allocated line pool and
// completed-lines queue.
//
// The engine enforces a single-client policy, evicts the oldest buffered
// line when output outruns the network, and tears all session state down
// through one idempotent path on any transport failure.
package telnetconsole

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	cache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"

	"github.com/cyberinferno/telnet-console/linebuffer"
	"github.com/cyberinferno/telnet-console/lineinput"
	"github.com/cyberinferno/telnet-console/logger"
	"github.com/cyberinferno/telnet-console/metrics"
	"github.com/cyberinferno/telnet-console/transport"
)

// telnetIAC is the Telnet "Interpret As Command" escape byte. Payloads
// starting with it carry option negotiation, which the engine ignores by
// dropping the whole message.
const telnetIAC = 255

// Console is the telnet console engine. Create one with New, optionally
// set Metrics and call RegisterInput, then Start it. A Console runs until
// Stop and cannot be restarted.
type Console struct {
	cfg     Config
	log     logger.Logger
	hooks   HookRegistry
	bufPool *transport.BufferPool

	// Metrics is optional and may be set before Start; a nil value counts
	// nothing.
	Metrics *metrics.Metrics

	mu        sync.Mutex
	ring      *linebuffer.Ring
	client    transport.Conn
	outBuf    *transport.Buffer
	prevHook  OutputHook
	flushStop chan struct{}
	pool      *lineinput.Pool
	queue     *lineinput.Queue

	// generation identifies the current session; teardown bumps it so
	// late callbacks from a torn-down connection are detected and ignored.
	generation atomic.Uint32

	serversMu sync.Mutex
	servers   []*transport.Server

	sendSignal   chan struct{}
	flushRestart chan struct{}
	done         chan struct{}
	wg           sync.WaitGroup
	running      atomic.Bool

	rejectLog *cache.Cache
}

// New creates a Console with the given configuration.
//
// Parameters:
//   - cfg: Engine configuration; see DefaultConfig
//   - hooks: Registry owning the process-wide output hook; nil for a
//     fresh OutputSink
//   - log: Logger; nil for no logging
//
// Returns:
//   - A new Console, or an error if the configuration is invalid
func New(cfg Config, hooks HookRegistry, log logger.Logger) (*Console, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if hooks == nil {
		hooks = NewOutputSink(nil)
	}
	if log == nil {
		log = logger.NewNop()
	}

	return &Console{
		cfg:          cfg,
		log:          log,
		hooks:        hooks,
		bufPool:      transport.NewBufferPool(cfg.LineSize),
		ring:         linebuffer.NewRing(cfg.LineCount, cfg.LineSize),
		sendSignal:   make(chan struct{}, 1),
		flushRestart: make(chan struct{}, 1),
		done:         make(chan struct{}),
		rejectLog:    cache.New(cfg.RejectLogTTL, cfg.RejectLogTTL),
	}, nil
}

// RegisterInput wires the external line-input collaborators: a pool of
// free line buffers and the queue where completed input lines are
// delivered. Until both are registered, client input is dropped.
//
// Parameters:
//   - pool: Source of free input buffers
//   - queue: Destination for completed input lines
func (c *Console) RegisterInput(pool *lineinput.Pool, queue *lineinput.Queue) {
	c.mu.Lock()
	c.pool = pool
	c.queue = queue
	c.mu.Unlock()
}

// Start opens one listener per enabled address family and starts the
// sender. The address families are independent: a family whose listener
// fails is logged and disabled, the other proceeds. Start returns an error
// only when every enabled family failed.
//
// Returns:
//   - An error if the console is already started or no listener could be
//     opened
func (c *Console) Start() error {
	if !c.running.CompareAndSwap(false, true) {
		return fmt.Errorf("telnetconsole: already started")
	}

	addr := fmt.Sprintf(":%d", c.cfg.Port)
	var families []string
	if c.cfg.EnableIPv4 {
		families = append(families, "tcp4")
	}
	if c.cfg.EnableIPv6 {
		families = append(families, "tcp6")
	}

	var g errgroup.Group
	for _, family := range families {
		family := family
		g.Go(func() error {
			srv := transport.NewServer(family, addr, c.bufPool, c.log)
			if err := srv.Start(c.handleAccept); err != nil {
				return err
			}

			c.serversMu.Lock()
			c.servers = append(c.servers, srv)
			c.serversMu.Unlock()
			return nil
		})
	}

	err := g.Wait()
	if len(c.Addrs()) == 0 {
		c.running.Store(false)
		return fmt.Errorf("telnetconsole: no listener could be started: %w", err)
	}
	if err != nil {
		c.log.Warn("telnet console listening on a subset of address families",
			logger.Field{Key: "error", Value: err})
	}

	c.wg.Add(1)
	go c.sendLoop()

	c.log.Info("telnet console initialized", logger.Field{Key: "port", Value: c.cfg.Port})
	return nil
}

// Addrs returns the bound listener addresses, one per active address
// family. Useful when listening on an ephemeral port.
func (c *Console) Addrs() []net.Addr {
	c.serversMu.Lock()
	defer c.serversMu.Unlock()

	addrs := make([]net.Addr, 0, len(c.servers))
	for _, srv := range c.servers {
		if a := srv.Addr(); a != nil {
			addrs = append(addrs, a)
		}
	}

	return addrs
}

// Stop tears down any active session, closes the listeners, and stops the
// sender. Idempotent.
func (c *Console) Stop() {
	if !c.running.CompareAndSwap(true, false) {
		return
	}

	c.teardown()

	c.serversMu.Lock()
	servers := c.servers
	c.serversMu.Unlock()
	for _, srv := range servers {
		srv.Stop()
	}

	close(c.done)
	c.wg.Wait()
	c.log.Info("telnet console stopped")
}

// handleAccept is the transport accept callback. It enforces the
// single-client policy and performs session setup: save the current output
// hook, install the producer, start the flush timer, begin reception.
func (c *Console) handleAccept(conn transport.Conn, err error) {
	if err != nil {
		return
	}
	if !c.running.Load() {
		_ = conn.Close()
		return
	}

	c.mu.Lock()
	if c.client != nil {
		c.mu.Unlock()
		c.rejectClient(conn)
		return
	}

	gen := c.generation.Add(1)
	c.client = conn
	c.outBuf = c.bufPool.Acquire()
	c.prevHook = c.hooks.Current()
	c.hooks.Install(c.OutputChar)
	c.flushStop = make(chan struct{})
	stop := c.flushStop
	c.mu.Unlock()

	c.wg.Add(1)
	go c.flushLoop(stop)

	if rerr := conn.StartRecv(func(payload []byte, rerr error) {
		c.handleRecv(gen, payload, rerr)
	}); rerr != nil {
		c.log.Error("unable to set up reception",
			logger.Field{Key: "remote", Value: conn.RemoteAddr().String()},
			logger.Field{Key: "error", Value: rerr})
		c.teardown()
		return
	}

	c.Metrics.ConnectionAccepted()
	c.log.Info("telnet client connected",
		logger.Field{Key: "remote", Value: conn.RemoteAddr().String()})
}

// rejectClient closes a connection that arrived while a session was
// active. The warning is throttled per remote host so a reconnect-looping
// client does not flood the log.
func (c *Console) rejectClient(conn transport.Conn) {
	c.Metrics.ConnectionRejected()

	remote := conn.RemoteAddr().String()
	host, _, err := net.SplitHostPort(remote)
	if err != nil {
		host = remote
	}

	if _, throttled := c.rejectLog.Get(host); !throttled {
		c.rejectLog.SetDefault(host, struct{}{})
		c.log.Warn("telnet client rejected, a session is already active",
			logger.Field{Key: "remote", Value: remote})
	}

	_ = conn.Close()
}

// handleRecv is the transport receive callback for the session identified
// by gen. Late callbacks from a torn-down session are ignored.
func (c *Console) handleRecv(gen uint32, payload []byte, err error) {
	if c.generation.Load() != gen {
		return
	}

	if err != nil {
		c.log.Debug("telnet client dropped", logger.Field{Key: "error", Value: err})
		c.teardown()
		return
	}

	c.relayInput(payload)
}

// teardown closes the active session and returns the engine to the
// listening state: the saved output hook is restored, the flush timer
// stopped, the outbound buffer released, the client closed, and the ring
// reset. Idempotent and safe to call from any callback context.
func (c *Console) teardown() {
	c.mu.Lock()
	client := c.client
	if client == nil {
		c.mu.Unlock()
		return
	}

	c.client = nil
	c.generation.Add(1)
	c.hooks.Install(c.prevHook)
	c.prevHook = nil
	if c.outBuf != nil {
		c.bufPool.Release(c.outBuf)
		c.outBuf = nil
	}
	stop := c.flushStop
	c.flushStop = nil
	c.ring.Reset()
	c.mu.Unlock()

	if stop != nil {
		close(stop)
	}
	_ = client.Close()

	c.log.Info("telnet session closed")
}
