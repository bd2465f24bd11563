package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes protocol events to an slog.Logger.
// Useful for development when you want to see protocol events in console.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter that writes to the given slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger at Debug level.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("conn_id", event.ConnectionID),
		slog.String("direction", event.Direction.String()),
		slog.String("layer", event.Layer.String()),
		slog.String("category", event.Category.String()),
	}

	// Add optional identifiers
	if event.NodeUUID != "" {
		attrs = append(attrs, slog.String("node_uuid", event.NodeUUID))
	}
	if event.NetworkID != "" {
		attrs = append(attrs, slog.String("network_id", event.NetworkID))
	}

	// Add type-specific attributes
	switch {
	case event.Frame != nil:
		attrs = append(attrs,
			slog.Int("frame_size", event.Frame.Size),
			slog.Bool("truncated", event.Frame.Truncated),
		)
	case event.Message != nil:
		attrs = append(attrs,
			slog.String("msg_type", event.Message.Type.String()),
			slog.Uint64("opcode", uint64(event.Message.Opcode)),
		)
		if event.Message.Src != 0 {
			attrs = append(attrs, slog.Uint64("src", uint64(event.Message.Src)))
		}
		if event.Message.Dst != 0 {
			attrs = append(attrs, slog.Uint64("dst", uint64(event.Message.Dst)))
		}
		if event.Message.SeqAuth != nil {
			attrs = append(attrs, slog.Uint64("seq_auth", uint64(*event.Message.SeqAuth)))
		}
		if event.Message.TTL != nil {
			attrs = append(attrs, slog.Uint64("ttl", uint64(*event.Message.TTL)))
		}
		if event.Message.AppKeyIndex != nil {
			attrs = append(attrs, slog.Uint64("app_key_index", uint64(*event.Message.AppKeyIndex)))
		}
		attrs = append(attrs, slog.Bool("dev_key", event.Message.DevKey))
		if event.Message.ProcessingTime != nil {
			attrs = append(attrs, slog.Duration("processing_time", *event.Message.ProcessingTime))
		}
	case event.StateChange != nil:
		attrs = append(attrs,
			slog.String("entity", event.StateChange.Entity.String()),
			slog.String("old_state", event.StateChange.OldState),
			slog.String("new_state", event.StateChange.NewState),
		)
		if event.StateChange.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.StateChange.Reason))
		}
	case event.ControlMsg != nil:
		attrs = append(attrs, slog.String("ctrl_type", event.ControlMsg.Type.String()))
	case event.Error != nil:
		attrs = append(attrs,
			slog.String("error_layer", event.Error.Layer.String()),
			slog.String("error_msg", event.Error.Message),
			slog.String("error_context", event.Error.Context),
		)
		if event.Error.Code != nil {
			attrs = append(attrs, slog.Int("error_code", *event.Error.Code))
		}
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "protocol", attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
