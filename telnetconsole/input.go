package telnetconsole

import "github.com/cyberinferno/telnet-console/metrics"

// relayInput forwards one received payload into the line-input subsystem.
// Out-of-range and IAC-prefixed payloads are dropped silently, as is input
// arriving while no buffer is free or the queue is full: the relay applies
// backpressure by loss, never by blocking the receive path.
func (c *Console) relayInput(payload []byte) {
	c.mu.Lock()
	pool, queue := c.pool, c.queue
	c.mu.Unlock()

	if pool == nil || queue == nil {
		c.Metrics.InputDropped(metrics.DropUnregistered)
		return
	}

	if len(payload) < c.cfg.MinMessageSize || len(payload) > pool.Size() {
		c.Metrics.InputDropped(metrics.DropLength)
		return
	}

	// Telnet command sequences are recognized by their leading IAC byte
	// and ignored wholesale; option negotiation is not supported.
	if payload[0] == telnetIAC {
		c.Metrics.InputDropped(metrics.DropIAC)
		return
	}

	buf, ok := pool.Acquire()
	if !ok {
		c.Metrics.InputDropped(metrics.DropNoBuffer)
		return
	}

	buf.Fill(payload)
	buf.TrimLineEnding()

	if !queue.Submit(buf) {
		pool.Release(buf)
		c.Metrics.InputDropped(metrics.DropQueueFull)
	}
}
