package orchestration

import (
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const scopeName = "github.com/koscakluka/ema-voiceagent/core"

var (
	tracer = otel.Tracer(scopeName)
	meter  = otel.Meter(scopeName)
	logger = otelslog.NewLogger(scopeName)
)

var (
	turnsSentCounter, _ = meter.Int64Counter("agent.session.turns_sent",
		metric.WithDescription("User turns injected into voice agent sessions"))
	audioBytesCounter, _ = meter.Int64Counter("agent.session.audio_bytes",
		metric.WithDescription("Agent audio received"), metric.WithUnit("By"))
	remoteErrorsCounter, _ = meter.Int64Counter("agent.session.remote_errors",
		metric.WithDescription("Errors reported by the voice agent"))
)
