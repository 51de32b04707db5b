package decompose

import (
	"context"
	"errors"
	"fmt"
)

// Oracle is an external text-generation service. One call per invocation, no internal retry.
type Oracle interface {
	Generate(ctx context.Context, request string) (string, error)
}

// OracleFunc adapts a function to the Oracle interface.
type OracleFunc func(ctx context.Context, request string) (string, error)

func (f OracleFunc) Generate(ctx context.Context, request string) (string, error) {
	return f(ctx, request)
}

// ErrNoContent is wrapped by OracleError when the service replied without usable text.
var ErrNoContent = errors.New("oracle returned no content")

// OracleError reports a generation call that could not be completed.
type OracleError struct {
	Provider string
	Status   int // remote status code when known
	Err      error
}

func (e *OracleError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s oracle: status %d: %v", e.Provider, e.Status, e.Err)
	}
	return fmt.Sprintf("%s oracle: %v", e.Provider, e.Err)
}

func (e *OracleError) Unwrap() error {
	return e.Err
}

type taskIDKey struct{}

// WithTaskID tags ctx with the task being decomposed, for logging.
func WithTaskID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, taskIDKey{}, id)
}

// TaskIDFrom returns the task id stored by WithTaskID, or "".
func TaskIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(taskIDKey{}).(string)
	return id
}
