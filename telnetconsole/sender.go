package telnetconsole

import "github.com/cyberinferno/telnet-console/logger"

// sendLoop is the sender task: it waits for a send signal, then drains
// every completed line from the ring to the transport. It exits when the
// console stops.
func (c *Console) sendLoop() {
	defer c.wg.Done()

	for {
		select {
		case <-c.done:
			return
		case <-c.sendSignal:
		}

		for c.sendNext() {
		}
	}
}

// sendNext drains one completed line from the ring and submits it to the
// transport. The outbound buffer's ownership passes to the transport on a
// successful submission and a fresh buffer is acquired for the next send;
// a failed submission tears the session down.
//
// Returns:
//   - true if a line was submitted and draining should continue
func (c *Console) sendNext() bool {
	c.mu.Lock()
	if c.client == nil || c.outBuf == nil {
		c.mu.Unlock()
		return false
	}

	lb, ok := c.ring.TakeRead()
	if !ok {
		c.mu.Unlock()
		return false
	}

	buf := c.outBuf
	c.outBuf = nil
	buf.Append(lb.Bytes())
	lb.Reset()
	client := c.client
	gen := c.generation.Load()
	c.mu.Unlock()

	if err := client.Send(buf, func(cerr error) {
		c.handleSendComplete(gen, cerr)
	}); err != nil {
		c.log.Error("could not submit send", logger.Field{Key: "error", Value: err})
		c.Metrics.SendFailure()
		c.bufPool.Release(buf)
		c.teardown()
		return false
	}

	c.Metrics.LineSent()

	c.mu.Lock()
	if c.client == client && c.outBuf == nil {
		c.outBuf = c.bufPool.Acquire()
	}
	c.mu.Unlock()

	return true
}

// handleSendComplete is the transport send-completion callback for the
// session identified by gen. A failed completion tears the session down;
// completions arriving after teardown are ignored.
func (c *Console) handleSendComplete(gen uint32, err error) {
	if err == nil {
		return
	}
	if c.generation.Load() != gen {
		return
	}

	c.Metrics.SendFailure()
	c.log.Error("could not send last buffer", logger.Field{Key: "error", Value: err})
	c.teardown()
}
