package telnetconsole

import (
	"fmt"
	"time"
)

// Config holds configuration for the telnet console engine. All buffer
// sizing is fixed at Start; the engine allocates its line storage once and
// never grows it.
type Config struct {
	// Port is the TCP port the console listens on.
	Port int
	// EnableIPv4 opens a listener on the IPv4 any-address.
	EnableIPv4 bool
	// EnableIPv6 opens a listener on the IPv6 any-address.
	EnableIPv6 bool
	// LineCount is the number of slots in the output line ring. When more
	// completed lines accumulate than the ring can hold, the oldest are
	// evicted.
	LineCount int
	// LineSize is the byte capacity of each line slot, CRLF included.
	LineSize int
	// SendInterval is the premature-flush timer period: how often a
	// partially filled line is considered for forced delivery.
	SendInterval time.Duration
	// SendThreshold is the minimum length a partially filled line must
	// reach before a timer tick force-completes it.
	SendThreshold int
	// MinMessageSize is the smallest inbound payload accepted by the
	// input relay; shorter payloads are dropped.
	MinMessageSize int
	// EchoToPrevious forwards every output character to the previously
	// installed hook as well, so output stays visible on the original
	// console while a telnet session is active.
	EchoToPrevious bool
	// RejectLogTTL suppresses repeated rejection warnings from the same
	// remote host for this long.
	RejectLogTTL time.Duration
}

// DefaultConfig returns a Config with defaults suitable for a standard
// telnet console: port 23, both address families, 64-byte lines.
//
// Returns:
//   - A Config with default values; override fields as needed before
//     passing it to New
func DefaultConfig() Config {
	return Config{
		Port:           23,
		EnableIPv4:     true,
		EnableIPv6:     true,
		LineCount:      16,
		LineSize:       64,
		SendInterval:   100 * time.Millisecond,
		SendThreshold:  5,
		MinMessageSize: 2,
		EchoToPrevious: false,
		RejectLogTTL:   10 * time.Second,
	}
}

// Validate reports whether the configuration is usable.
//
// Returns:
//   - An error describing the first invalid field, or nil
func (c Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("telnetconsole: invalid port %d", c.Port)
	}
	if !c.EnableIPv4 && !c.EnableIPv6 {
		return fmt.Errorf("telnetconsole: at least one address family must be enabled")
	}
	if c.LineCount < 2 {
		return fmt.Errorf("telnetconsole: line count %d too small, need at least 2", c.LineCount)
	}
	if c.LineSize < 4 {
		return fmt.Errorf("telnetconsole: line size %d too small, need at least 4", c.LineSize)
	}
	if c.SendInterval <= 0 {
		return fmt.Errorf("telnetconsole: send interval must be positive")
	}
	if c.SendThreshold < 1 || c.SendThreshold >= c.LineSize {
		return fmt.Errorf("telnetconsole: send threshold %d out of range [1, %d)", c.SendThreshold, c.LineSize)
	}
	if c.MinMessageSize < 1 {
		return fmt.Errorf("telnetconsole: minimum message size must be positive")
	}
	if c.RejectLogTTL <= 0 {
		return fmt.Errorf("telnetconsole: reject log TTL must be positive")
	}

	return nil
}
