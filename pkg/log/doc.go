// Package log provides structured protocol logging for the mesh stack.
//
// This package defines the Logger interface and Event types for capturing
// protocol-level events at every layer of the stack (see Layer).
// It is separate from operational logging (slog) - protocol capture provides
// a complete machine-readable event trace for debugging and analysis.
//
// # Basic Usage
//
// Applications configure logging by providing a Logger implementation,
// for example through manager.Config's Logger field:
//
//	// For development: log to console via slog
//	cfg.Logger = log.NewSlogAdapter(slog.Default())
//
//	// For production: write to binary file
//	fileLogger, err := log.NewFileLogger("/var/log/mash/device.mlog")
//	if err != nil {
//	    return err
//	}
//	cfg.Logger = fileLogger
//
//	// Both: use MultiLogger
//	cfg.Logger = log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    fileLogger,
//	)
//
// # Event Types
//
// Each Event carries the Layer that captured it (network, lower
// transport, upper transport, access, beacon, provisioning, or bearer
// transport) and one payload:
//   - Raw frames (FrameEvent)
//   - Decoded messages (MessageEvent)
//   - State changes (StateChangeEvent)
//
// Lower transport control messages (segment ack, heartbeat, friend
// poll/update) and errors have dedicated event types.
//
// # File Format
//
// Log files use CBOR encoding with .mlog extension. NewReader and
// NewFilteredReader read them back one event at a time.
package log
