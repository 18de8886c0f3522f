package transport

import (
	"errors"
	"fmt"
	"net"
	"sync"
)

// ErrClosed is returned when an operation is attempted on a closed
// connection.
var ErrClosed = errors.New("transport: connection closed")

// RecvFunc is called once per received payload. On a read error or remote
// close it is called a final time with a nil payload and the error, after
// which no further callbacks occur. The payload is owned by the callee.
type RecvFunc func(payload []byte, err error)

// CompleteFunc is called when an asynchronous send has been written to the
// connection (err nil) or has failed (err non-nil). Completions fire in
// submission order.
type CompleteFunc func(err error)

// Conn is an asynchronous, callback-driven connection. All I/O runs on the
// connection's own goroutines; callers submit work and receive callbacks.
type Conn interface {
	// ID returns the connection's server-assigned identifier.
	ID() uint32

	// RemoteAddr returns the remote network address.
	RemoteAddr() net.Addr

	// StartRecv begins delivering received payloads to cb from a dedicated
	// read goroutine. It may be called at most once.
	StartRecv(cb RecvFunc) error

	// Send submits buf for asynchronous writing. Ownership of buf passes
	// to the connection, which releases it to its pool after the write;
	// if Send returns an error the caller keeps ownership. complete, if
	// non-nil, fires after the write with its outcome.
	Send(buf *Buffer, complete CompleteFunc) error

	// Close tears the connection down. Idempotent; pending sends fail
	// their completion callbacks with ErrClosed.
	Close() error
}

const (
	readBufferSize = 512
	sendQueueDepth = 8
)

type outbound struct {
	buf      *Buffer
	complete CompleteFunc
}

// tcpConn implements Conn over a net.Conn. A writer goroutine serializes
// sends so completion callbacks fire in submission order.
type tcpConn struct {
	id      uint32
	conn    net.Conn
	pool    *BufferPool
	onClose func()

	sendCh chan outbound
	done   chan struct{}

	mu        sync.Mutex
	closed    bool
	recvGiven bool
	wg        sync.WaitGroup
}

func newTCPConn(id uint32, nc net.Conn, pool *BufferPool) *tcpConn {
	c := &tcpConn{
		id:     id,
		conn:   nc,
		pool:   pool,
		sendCh: make(chan outbound, sendQueueDepth),
		done:   make(chan struct{}),
	}

	c.wg.Add(1)
	go c.writeLoop()

	return c
}

// ID implements Conn.
func (c *tcpConn) ID() uint32 {
	return c.id
}

// RemoteAddr implements Conn.
func (c *tcpConn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// StartRecv implements Conn.
func (c *tcpConn) StartRecv(cb RecvFunc) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.recvGiven {
		c.mu.Unlock()
		return fmt.Errorf("transport: receive already started on connection %d", c.id)
	}
	c.recvGiven = true
	c.mu.Unlock()

	c.wg.Add(1)
	go c.readLoop(cb)

	return nil
}

func (c *tcpConn) readLoop(cb RecvFunc) {
	defer c.wg.Done()

	buffer := make([]byte, readBufferSize)
	for {
		n, err := c.conn.Read(buffer)
		if err != nil {
			if c.isClosed() {
				cb(nil, ErrClosed)
			} else {
				cb(nil, err)
			}
			return
		}

		if n > 0 {
			payload := make([]byte, n)
			copy(payload, buffer[:n])
			cb(payload, nil)
		}
	}
}

// Send implements Conn.
func (c *tcpConn) Send(buf *Buffer, complete CompleteFunc) error {
	if c.isClosed() {
		return ErrClosed
	}

	select {
	case c.sendCh <- outbound{buf: buf, complete: complete}:
		return nil
	case <-c.done:
		return ErrClosed
	}
}

func (c *tcpConn) writeLoop() {
	defer c.wg.Done()

	for {
		select {
		case <-c.done:
			c.failPending()
			return
		case ob := <-c.sendCh:
			_, err := c.conn.Write(ob.buf.Bytes())
			c.pool.Release(ob.buf)
			if ob.complete != nil {
				ob.complete(err)
			}
		}
	}
}

// failPending drains queued sends after close, releasing their buffers and
// failing their completions.
func (c *tcpConn) failPending() {
	for {
		select {
		case ob := <-c.sendCh:
			c.pool.Release(ob.buf)
			if ob.complete != nil {
				ob.complete(ErrClosed)
			}
		default:
			return
		}
	}
}

// Close implements Conn. It must not wait for the connection's goroutines,
// since completion callbacks running on them may themselves call Close.
func (c *tcpConn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	close(c.done)
	err := c.conn.Close()

	if c.onClose != nil {
		c.onClose()
	}

	return err
}

func (c *tcpConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
