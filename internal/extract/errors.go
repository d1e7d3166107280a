package extract

import (
	"errors"
	"fmt"
)

// Error taxonomy for extraction failures. Configuration errors are
// caller-fixable and refuse the job before it runs; connectivity and data
// errors fail the job with its checkpointed progress retained.
var (
	ErrConfiguration = errors.New("configuration error")
	ErrConnectivity  = errors.New("connectivity error")
	ErrData          = errors.New("data error")
)

func configErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

func connectivityError(err error, context string) error {
	return fmt.Errorf("%w: %s: %v", ErrConnectivity, context, err)
}

func dataError(err error, context string) error {
	return fmt.Errorf("%w: %s: %v", ErrData, context, err)
}
