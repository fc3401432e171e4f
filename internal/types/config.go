package types

// KeyMode selects the billing provider credential space. It is decided once at
// process start and injected everywhere; nothing re-reads it from the environment.
type KeyMode string

const (
	// KeyModeTest uses the provider's test-mode credentials
	KeyModeTest KeyMode = "test"
	// KeyModeLive uses the provider's live-mode credentials
	KeyModeLive KeyMode = "live"
)

func (m KeyMode) Validate() bool {
	return m == KeyModeTest || m == KeyModeLive
}

type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)
