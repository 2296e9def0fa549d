package service

import (
	"context"
)

// TxRunner provides a transactional boundary for the email uniqueness check
// and insert. Implementations may wrap a database transaction or, in memory,
// a coarse lock.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// NoopTx runs fn directly; store-level uniqueness still applies.
type NoopTx struct{}

func (NoopTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
