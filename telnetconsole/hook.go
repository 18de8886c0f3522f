package telnetconsole

import "sync"

// OutputHook receives one character of console output. Hooks must never
// block: they may be invoked from any goroutine that produces output,
// including time-critical paths.
type OutputHook func(b byte)

// HookRegistry owns the process-wide console output hook. The engine saves
// whatever hook is installed when a client connects, installs its producer
// in its place, and restores the saved hook at teardown, so hook layering
// stays intact across sessions.
type HookRegistry interface {
	// Install makes h the active output hook, replacing the previous one.
	// A nil hook uninstalls interception.
	Install(h OutputHook)

	// Current returns the active output hook, or nil if none is installed.
	Current() OutputHook
}

// OutputSink is the default HookRegistry implementation. It also implements
// io.Writer: bytes written are fed one at a time to the installed hook,
// which lets callers point an existing output stream, for example a log
// writer, at the console engine.
type OutputSink struct {
	mu   sync.RWMutex
	hook OutputHook
}

// NewOutputSink creates an OutputSink with the given initial hook, which
// may be nil.
func NewOutputSink(initial OutputHook) *OutputSink {
	return &OutputSink{hook: initial}
}

// Install implements HookRegistry.
func (s *OutputSink) Install(h OutputHook) {
	s.mu.Lock()
	s.hook = h
	s.mu.Unlock()
}

// Current implements HookRegistry.
func (s *OutputSink) Current() OutputHook {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hook
}

// Write implements io.Writer by feeding each byte of p to the installed
// hook. Bytes written while no hook is installed are discarded.
func (s *OutputSink) Write(p []byte) (int, error) {
	hook := s.Current()
	if hook != nil {
		for _, b := range p {
			hook(b)
		}
	}

	return len(p), nil
}
