package config

// Index defaults.
const (
	DefaultIndexFile = "intervals.yaml"
	DefaultIndexZero = 0.0
)

// Logging defaults.
const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = LogFormatText
)

// Output defaults.
const (
	DefaultOutputFormat = FormatTable
	DefaultOutputColor  = true
)

// Server defaults.
const (
	DefaultServerHost            = "127.0.0.1"
	DefaultServerPort            = 8080
	DefaultServerReadTimeout     = "10s"
	DefaultServerWriteTimeout    = "10s"
	DefaultServerIdleTimeout     = "60s"
	DefaultServerShutdownTimeout = "5s"
	DefaultServerCacheEntries    = 1024
)
