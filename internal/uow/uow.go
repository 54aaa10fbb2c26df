package uow

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// AfterCommit is a function that runs after a successful transaction commit.
type AfterCommit func(ctx context.Context)

// Runner runs fn inside one transaction carried by the context passed to fn.
// It may run fn more than once when the transaction is retried.
type Runner interface {
	RunTx(ctx context.Context, opts *pgx.TxOptions, fn func(ctx context.Context) error) error
}

// UoW represents a unit of work.
type UoW struct {
	runner Runner
}

func NewUoW(runner Runner) *UoW {
	return &UoW{runner: runner}
}

// Do runs fn inside the transaction. After a successful commit,
// it executes all after-commit hooks.
func (u *UoW) Do(
	ctx context.Context,
	fn func(ctx context.Context, after func(AfterCommit)) error,
) error {
	return u.DoWithOpts(ctx, nil, fn)
}

// DoWithOpts runs fn inside the transaction with the given options. Hooks registered by an
// attempt that rolled back are discarded; only the committed attempt's hooks run.
func (u *UoW) DoWithOpts(
	ctx context.Context,
	opts *pgx.TxOptions,
	fn func(ctx context.Context, after func(AfterCommit)) error,
) error {
	var hooks []AfterCommit

	err := u.runner.RunTx(ctx, opts, func(ctx context.Context) error {
		hooks = hooks[:0]
		return fn(ctx, func(h AfterCommit) {
			hooks = append(hooks, h)
		})
	})
	if err != nil {
		return err
	}

	for _, h := range hooks {
		h(ctx)
	}

	return nil
}
