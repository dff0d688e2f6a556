package scenarios

import (
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

const scopeName = "github.com/koscakluka/ema-voiceagent/core/scenarios"

var logger = otelslog.NewLogger(scopeName)
