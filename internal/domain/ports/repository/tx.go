package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

// Tx is an opaque transaction handle threaded through repository calls.
// Repositories accept NoTX for the plain pooled path; the concrete type
// (pgx.Tx for Postgres) is an infra concern.
type Tx interface{}

var NoTX Tx

// TransactionManager runs fn inside one database transaction, handing it a
// Tx to pass to repository methods. Keeps transaction types out of the
// use-case layer.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
