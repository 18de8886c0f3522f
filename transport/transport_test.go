package transport

import (
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuffer(t *testing.T) {
	pool := NewBufferPool(8)

	t.Run("append and reset", func(t *testing.T) {
		b := pool.Acquire()
		n := b.Append([]byte("hi"))
		assert.Equal(t, 2, n)
		assert.Equal(t, []byte("hi"), b.Bytes())

		b.Reset()
		assert.Equal(t, 0, b.Len())
		pool.Release(b)
	})

	t.Run("append truncates at capacity", func(t *testing.T) {
		b := pool.Acquire()
		n := b.Append([]byte("0123456789"))
		assert.Equal(t, 8, n)
		assert.Equal(t, []byte("01234567"), b.Bytes())
		pool.Release(b)
	})

	t.Run("acquired buffer is empty", func(t *testing.T) {
		b := pool.Acquire()
		b.Append([]byte("stale"))
		pool.Release(b)

		b = pool.Acquire()
		assert.Equal(t, 0, b.Len())
		pool.Release(b)
	})

	t.Run("release of nil is a no-op", func(t *testing.T) {
		pool.Release(nil)
	})
}

// startTestServer starts a server on an ephemeral port and returns it with
// a channel of accepted connections.
func startTestServer(t *testing.T) (*Server, <-chan Conn) {
	t.Helper()

	srv := NewServer("tcp4", "127.0.0.1:0", NewBufferPool(64), nil)
	accepted := make(chan Conn, 4)
	require.NoError(t, srv.Start(func(conn Conn, err error) {
		if err == nil {
			accepted <- conn
		}
	}))
	t.Cleanup(srv.Stop)

	return srv, accepted
}

func TestServer_Start(t *testing.T) {
	t.Run("accepts connections and assigns ids", func(t *testing.T) {
		srv, accepted := startTestServer(t)

		first, err := net.Dial("tcp", srv.Addr().String())
		require.NoError(t, err)
		defer first.Close()
		second, err := net.Dial("tcp", srv.Addr().String())
		require.NoError(t, err)
		defer second.Close()

		a := <-accepted
		b := <-accepted
		assert.NotEqual(t, a.ID(), b.ID())
		assert.NotNil(t, a.RemoteAddr())
	})

	t.Run("double start fails", func(t *testing.T) {
		srv, _ := startTestServer(t)
		assert.Error(t, srv.Start(func(Conn, error) {}))
	})

	t.Run("bind failure returns error", func(t *testing.T) {
		srv, _ := startTestServer(t)
		clash := NewServer("tcp4", srv.Addr().String(), NewBufferPool(64), nil)
		assert.Error(t, clash.Start(func(Conn, error) {}))
	})
}

func TestConn_Recv(t *testing.T) {
	srv, accepted := startTestServer(t)

	client, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer client.Close()
	conn := <-accepted

	payloads := make(chan []byte, 4)
	errs := make(chan error, 1)
	require.NoError(t, conn.StartRecv(func(payload []byte, err error) {
		if err != nil {
			errs <- err
			return
		}
		payloads <- payload
	}))

	t.Run("second recv registration fails", func(t *testing.T) {
		assert.Error(t, conn.StartRecv(func([]byte, error) {}))
	})

	t.Run("payload delivered to callback", func(t *testing.T) {
		_, err := client.Write([]byte("input\r\n"))
		require.NoError(t, err)

		select {
		case p := <-payloads:
			assert.Equal(t, []byte("input\r\n"), p)
		case <-time.After(2 * time.Second):
			t.Fatal("no payload received")
		}
	})

	t.Run("remote close delivers final error", func(t *testing.T) {
		client.Close()

		select {
		case err := <-errs:
			assert.Error(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("no error received")
		}
	})
}

func TestConn_Send(t *testing.T) {
	srv, accepted := startTestServer(t)

	client, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer client.Close()
	conn := <-accepted

	pool := NewBufferPool(64)

	t.Run("completions fire in submission order", func(t *testing.T) {
		var mu sync.Mutex
		var order []int
		var wg sync.WaitGroup

		for i := 0; i < 3; i++ {
			i := i
			buf := pool.Acquire()
			buf.Append([]byte("line\r\n"))
			wg.Add(1)
			require.NoError(t, conn.Send(buf, func(err error) {
				defer wg.Done()
				assert.NoError(t, err)
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
			}))
		}
		wg.Wait()
		assert.Equal(t, []int{0, 1, 2}, order)
	})

	t.Run("client observes the bytes", func(t *testing.T) {
		buf := pool.Acquire()
		buf.Append([]byte("hello\r\n"))

		done := make(chan error, 1)
		require.NoError(t, conn.Send(buf, func(err error) { done <- err }))
		require.NoError(t, <-done)

		require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
		var got []byte
		read := make([]byte, 64)
		for !strings.HasSuffix(string(got), "hello\r\n") {
			n, err := client.Read(read)
			require.NoError(t, err)
			got = append(got, read[:n]...)
		}
		assert.Contains(t, string(got), "hello\r\n")
	})

	t.Run("send after close is rejected", func(t *testing.T) {
		require.NoError(t, conn.Close())

		buf := pool.Acquire()
		buf.Append([]byte("late"))
		assert.ErrorIs(t, conn.Send(buf, nil), ErrClosed)
		pool.Release(buf)
	})

	t.Run("close is idempotent", func(t *testing.T) {
		assert.NoError(t, conn.Close())
	})
}
