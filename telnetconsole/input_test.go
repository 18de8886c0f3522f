package telnetconsole

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyberinferno/telnet-console/lineinput"
)

func queuedLine(t *testing.T, q *lineinput.Queue) *lineinput.Buffer {
	t.Helper()
	select {
	case b := <-q.Lines():
		return b
	default:
		t.Fatal("expected a completed line on the queue")
		return nil
	}
}

func assertQueueEmpty(t *testing.T, q *lineinput.Queue) {
	t.Helper()
	select {
	case b := <-q.Lines():
		t.Fatalf("unexpected line on queue: %q", b.String())
	default:
	}
}

func TestRelayInput(t *testing.T) {
	cfg := quietConfig()
	c, _ := newTestConsole(t, cfg)
	conn := connect(t, c)

	pool := lineinput.NewPool(2, 16)
	queue := lineinput.NewQueue(4)
	c.RegisterInput(pool, queue)

	t.Run("valid payload is queued with CRLF stripped", func(t *testing.T) {
		conn.recv([]byte("version\r\n"), nil)

		b := queuedLine(t, queue)
		assert.Equal(t, "version", b.String())
		pool.Release(b)
	})

	t.Run("payload below minimum size is dropped", func(t *testing.T) {
		conn.recv([]byte("x"), nil)
		assertQueueEmpty(t, queue)
	})

	t.Run("payload longer than a line buffer is dropped", func(t *testing.T) {
		conn.recv([]byte("this payload exceeds sixteen bytes"), nil)
		assertQueueEmpty(t, queue)
	})

	t.Run("IAC-prefixed payload is dropped", func(t *testing.T) {
		conn.recv([]byte{telnetIAC, 251, 1}, nil)
		assertQueueEmpty(t, queue)
	})

	t.Run("input is dropped when the pool is exhausted", func(t *testing.T) {
		a, ok := pool.Acquire()
		require.True(t, ok)
		b, ok := pool.Acquire()
		require.True(t, ok)

		conn.recv([]byte("no room\r\n"), nil)
		assertQueueEmpty(t, queue)

		pool.Release(a)
		pool.Release(b)
	})

	t.Run("input is dropped when the queue is full", func(t *testing.T) {
		pool := lineinput.NewPool(8, 16)
		queue := lineinput.NewQueue(1)
		c.RegisterInput(pool, queue)

		conn.recv([]byte("first\r\n"), nil)
		conn.recv([]byte("second\r\n"), nil)

		b := queuedLine(t, queue)
		assert.Equal(t, "first", b.String())
		assertQueueEmpty(t, queue)
	})
}

func TestRelayInput_Unregistered(t *testing.T) {
	c, _ := newTestConsole(t, quietConfig())
	conn := connect(t, c)

	// No pool or queue registered: input is dropped, nothing panics.
	conn.recv([]byte("ignored\r\n"), nil)
	assert.NotNil(t, c.client)
}
