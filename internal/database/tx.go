package database

import (
	"context"
	"database/sql"

	"github.com/iliyamo/gymdesk/internal/repository"
)

// TxRunner runs a function inside a single MySQL transaction.
type TxRunner struct {
	db *sql.DB
}

func NewTxRunner(db *sql.DB) *TxRunner { return &TxRunner{db: db} }

// InTx begins a transaction, hands it to fn and commits when fn returns
// nil.  Any error, or a panic, rolls everything back.
func (t *TxRunner) InTx(ctx context.Context, fn func(tx repository.DBTX) error) (err error) {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()
	err = fn(tx)
	return err
}
