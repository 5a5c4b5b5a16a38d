package aqs

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrInterrupted is returned (wrapped together with ctx.Err()) when an
	// interruptible or timed acquire is abandoned because its context ended.
	ErrInterrupted = errors.New("aqs: interrupted")

	// ErrUnsupported is the panic value of hooks for a mode the primitive
	// does not implement (see NoExclusive and NoShared).
	ErrUnsupported = errors.New("aqs: unsupported operation")
)

// interrupted reports a finished ctx as an ErrInterrupted error.
func interrupted(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrInterrupted, err)
	}
	return nil
}
