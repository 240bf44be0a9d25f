package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes protocol events to an slog.Logger at debug level.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a SlogAdapter writing to logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger at Debug level.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("conn_id", event.ConnectionID),
		slog.String("role", event.LocalRole.String()),
		slog.String("direction", event.Direction.String()),
		slog.String("layer", event.Layer.String()),
		slog.String("category", event.Category.String()),
	}

	if event.RemoteAddr != "" {
		attrs = append(attrs, slog.String("peer", event.RemoteAddr))
	}
	if event.Coordinate != "" {
		attrs = append(attrs, slog.String("coordinate", event.Coordinate))
	}

	switch {
	case event.Packet != nil:
		attrs = append(attrs,
			slog.String("packet", event.Packet.Kind.String()),
			slog.Uint64("event", uint64(event.Packet.EventCounter)),
			slog.Uint64("subevent", uint64(event.Packet.Subevent)),
			slog.Int("size", event.Packet.Size),
		)
		if event.Packet.Slot != nil {
			attrs = append(attrs, slog.Uint64("slot", uint64(*event.Packet.Slot)))
		}
	case event.Reading != nil:
		attrs = append(attrs,
			slog.Float64("temperature", float64(event.Reading.Temperature)),
			slog.Float64("humidity", float64(event.Reading.Humidity)),
		)
	case event.StateChange != nil:
		attrs = append(attrs,
			slog.String("entity", event.StateChange.Entity.String()),
			slog.String("old_state", event.StateChange.OldState),
			slog.String("new_state", event.StateChange.NewState),
		)
		if event.StateChange.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.StateChange.Reason))
		}
	case event.Procedure != nil:
		attrs = append(attrs, slog.String("procedure", event.Procedure.Type.String()))
		if event.Procedure.Conn != 0 {
			attrs = append(attrs, slog.Uint64("conn", uint64(event.Procedure.Conn)))
		}
		if event.Procedure.Detail != "" {
			attrs = append(attrs, slog.String("detail", event.Procedure.Detail))
		}
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
