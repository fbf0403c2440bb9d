// Package timeouts defines shared timeout constants used across the
// terminal process. Centralizing these values keeps the transport and
// storage boundaries in agreement about how long an operation may take.
package timeouts

import "time"

// ReadHeader limits how long the HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long the HTTP server waits for in-flight requests
// during graceful shutdown.
const Shutdown = 5 * time.Second

// StoreWrite caps a single record store append or update issued from a
// background writer such as the event log sink.
const StoreWrite = 5 * time.Second
