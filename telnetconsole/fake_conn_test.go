package telnetconsole

import (
	"net"
	"sync"

	"github.com/cyberinferno/telnet-console/transport"
)

// fakeConn is an in-memory transport.Conn. Sends are recorded and their
// completion callbacks fire synchronously, so tests drive the engine
// deterministically.
type fakeConn struct {
	id uint32

	mu          sync.Mutex
	sent        [][]byte
	recvCB      transport.RecvFunc
	closes      int
	sendErr     error // returned by Send itself
	completeErr error // passed to the completion callback
	recvErr     error // returned by StartRecv
}

func (f *fakeConn) ID() uint32 { return f.id }

func (f *fakeConn) RemoteAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(192, 0, 2, 1), Port: 40000 + int(f.id)}
}

func (f *fakeConn) StartRecv(cb transport.RecvFunc) error {
	if f.recvErr != nil {
		return f.recvErr
	}

	f.mu.Lock()
	f.recvCB = cb
	f.mu.Unlock()
	return nil
}

func (f *fakeConn) Send(buf *transport.Buffer, complete transport.CompleteFunc) error {
	f.mu.Lock()
	if f.sendErr != nil {
		f.mu.Unlock()
		return f.sendErr
	}

	payload := make([]byte, buf.Len())
	copy(payload, buf.Bytes())
	f.sent = append(f.sent, payload)
	completeErr := f.completeErr
	f.mu.Unlock()

	if complete != nil {
		complete(completeErr)
	}

	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	f.closes++
	f.mu.Unlock()
	return nil
}

func (f *fakeConn) sentLines() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.sent))
	copy(out, f.sent)
	return out
}

func (f *fakeConn) closeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closes
}

func (f *fakeConn) recv(payload []byte, err error) {
	f.mu.Lock()
	cb := f.recvCB
	f.mu.Unlock()
	if cb != nil {
		cb(payload, err)
	}
}
