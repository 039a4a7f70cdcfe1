package gateway

import (
	"log/slog"

	"convertord/core/events"
	"convertord/core/types"
	"convertord/native/convertor"
	"convertord/observability"
)

// LogEmitter forwards ledger events into structured logs and the settlement
// metrics. It satisfies events.Emitter.
type LogEmitter struct {
	logger  *slog.Logger
	metrics *observability.ConvertorMetrics
}

// NewLogEmitter builds an emitter writing to the supplied logger. A nil
// logger falls back to the process default.
func NewLogEmitter(logger *slog.Logger, metrics *observability.ConvertorMetrics) *LogEmitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogEmitter{logger: logger, metrics: metrics}
}

type payloadCarrier interface {
	Event() *types.Event
}

// Emit implements events.Emitter.
func (l *LogEmitter) Emit(evt events.Event) {
	if l == nil || evt == nil {
		return
	}
	eventType := evt.EventType()
	attrs := []any{slog.String("event", eventType)}
	if carrier, ok := evt.(payloadCarrier); ok {
		if payload := carrier.Event(); payload != nil {
			for key, value := range payload.Attributes {
				attrs = append(attrs, slog.String(key, value))
			}
		}
	}
	l.logger.Info("ledger event", attrs...)

	switch eventType {
	case convertor.EventTypeTransferDispatched:
		l.metrics.RecordDispatch()
	case convertor.EventTypeTransferSettled:
		l.metrics.RecordSettlement("settled")
	case convertor.EventTypeTransferCompensated:
		l.metrics.RecordSettlement("compensated")
	}
}
