package telnetconsole

import (
	"runtime"
	"time"
)

// OutputChar is the console output hook installed while a client is
// connected. It appends c to the current line slot; a line feed, or the
// slot reaching capacity minus the two bytes reserved for the terminator,
// completes the line with a CRLF pair and wakes the sender.
//
// OutputChar never blocks and never allocates; it runs in constant time
// per character so it is safe to call from any output-producing context.
func (c *Console) OutputChar(b byte) {
	c.mu.Lock()
	lb := c.ring.WriteLine()
	lb.Append(b)

	completed := false
	evicted := false
	if b == '\n' || lb.Len() == c.cfg.LineSize-1 {
		lb.SetLast('\r')
		lb.Append('\n')
		evicted = c.ring.AdvanceWrite()
		completed = true
	}
	prev := c.prevHook
	c.mu.Unlock()

	if c.cfg.EchoToPrevious && prev != nil {
		prev(b)
	}

	if evicted {
		c.Metrics.LineEvicted()
	}
	if completed {
		c.restartFlushTimer()
		c.signalSend()
		// Give the sender a chance to run promptly instead of waiting
		// for preemption.
		runtime.Gosched()
	}
}

// signalSend wakes the sender. The signal channel has capacity one, so a
// burst of completions coalesces into a single wakeup; the sender drains
// the ring until empty on each wakeup.
func (c *Console) signalSend() {
	select {
	case c.sendSignal <- struct{}{}:
	default:
	}
}

// restartFlushTimer resets the premature-flush timer phase, so a line that
// just completed naturally is not force-flushed right away.
func (c *Console) restartFlushTimer() {
	select {
	case c.flushRestart <- struct{}{}:
	default:
	}
}

// flushLoop runs the premature-flush timer for one session. It stops when
// the session's stop channel closes at teardown.
func (c *Console) flushLoop(stop chan struct{}) {
	defer c.wg.Done()

	t := time.NewTimer(c.cfg.SendInterval)
	defer t.Stop()

	for {
		select {
		case <-stop:
			return
		case <-c.flushRestart:
			if !t.Stop() {
				select {
				case <-t.C:
				default:
				}
			}
			t.Reset(c.cfg.SendInterval)
		case <-t.C:
			c.flushTick()
			t.Reset(c.cfg.SendInterval)
		}
	}
}

// flushTick force-completes the current write slot when it has grown past
// the configured threshold without seeing a terminator. Output that never
// ends in a newline, an interactive prompt for instance, still reaches the
// client promptly. A tick on a short or empty slot is a no-op.
func (c *Console) flushTick() {
	c.mu.Lock()
	lb := c.ring.WriteLine()

	completed := false
	evicted := false
	if lb.Len() >= c.cfg.SendThreshold {
		evicted = c.ring.AdvanceWrite()
		completed = true
	}
	c.mu.Unlock()

	if evicted {
		c.Metrics.LineEvicted()
	}
	if completed {
		c.signalSend()
	}
}
