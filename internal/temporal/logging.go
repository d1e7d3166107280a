package temporal

import (
	"fmt"

	"github.com/rs/zerolog"
	"go.temporal.io/sdk/log"
)

// LogAdapter bridges the Temporal SDK's key-value logger onto zerolog.
type LogAdapter struct {
	logger zerolog.Logger
}

func NewLogAdapter(logger zerolog.Logger) log.Logger {
	return &LogAdapter{
		logger: logger.With().Str("component", "temporal-sdk").Logger(),
	}
}

// fields folds the SDK's flat keyval list into a zerolog field map.
func fields(keyvals []interface{}) map[string]interface{} {
	if len(keyvals)%2 != 0 {
		keyvals = append(keyvals, "(missing)")
	}
	out := make(map[string]interface{}, len(keyvals)/2)
	for i := 0; i < len(keyvals); i += 2 {
		key, ok := keyvals[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", keyvals[i])
		}
		out[key] = keyvals[i+1]
	}
	return out
}

func (a *LogAdapter) Debug(msg string, keyvals ...interface{}) {
	a.logger.Debug().Fields(fields(keyvals)).Msg(msg)
}

func (a *LogAdapter) Info(msg string, keyvals ...interface{}) {
	a.logger.Info().Fields(fields(keyvals)).Msg(msg)
}

func (a *LogAdapter) Warn(msg string, keyvals ...interface{}) {
	a.logger.Warn().Fields(fields(keyvals)).Msg(msg)
}

func (a *LogAdapter) Error(msg string, keyvals ...interface{}) {
	a.logger.Error().Fields(fields(keyvals)).Msg(msg)
}
