// Package application holds what the use-case packages share: the generic UseCase
// port, identifier generation, and the Probe that instruments every execution.
package application

import "context"

type UseCase[C any, R any] interface {
	Execute(ctx context.Context, cmd C) (R, error)
}

type IDGenerator interface {
	NewID() string
}
