package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/alem-hub/lingo-progress/internal/application/uow"
	"github.com/alem-hub/lingo-progress/internal/domain/certification"
	"github.com/alem-hub/lingo-progress/internal/domain/gamification"
	"github.com/alem-hub/lingo-progress/internal/domain/progress"
	"github.com/alem-hub/lingo-progress/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// UNIT OF WORK
// One pgx transaction per command. Rows are read without locks; every save
// is a compare-and-swap on the version column.
// ══════════════════════════════════════════════════════════════════════════════

// UnitOfWorkFactory begins transactions on a connection.
type UnitOfWorkFactory struct {
	conn *Connection
}

var _ uow.Factory = (*UnitOfWorkFactory)(nil)

// NewUnitOfWorkFactory creates a factory.
func NewUnitOfWorkFactory(conn *Connection) *UnitOfWorkFactory {
	return &UnitOfWorkFactory{conn: conn}
}

// Begin implements uow.Factory.
func (f *UnitOfWorkFactory) Begin(ctx context.Context) (uow.UnitOfWork, error) {
	tx, err := f.conn.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, err
	}
	return &unitOfWork{tx: tx}, nil
}

type unitOfWork struct {
	tx   pgx.Tx
	done bool
}

func (u *unitOfWork) Progress() progress.Repository {
	return &progressRepo{q: u.tx}
}

func (u *unitOfWork) Gamification() gamification.Repository {
	return &gamificationRepo{q: u.tx}
}

func (u *unitOfWork) Certifications() certification.Repository {
	return &certificationRepo{q: u.tx}
}

func (u *unitOfWork) Commit(ctx context.Context) error {
	if u.done {
		return errors.New("postgres: unit of work already finished")
	}
	u.done = true
	if err := u.tx.Commit(ctx); err != nil {
		if IsSerializationFailure(err) {
			return shared.ErrOptimisticLock
		}
		return fmt.Errorf("%w: %v", ErrTransactionFailed, err)
	}
	return nil
}

func (u *unitOfWork) Rollback(ctx context.Context) error {
	if u.done {
		return nil
	}
	u.done = true
	if err := u.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return err
	}
	return nil
}

// saveVersioned inserts a new row (version 0) or updates an existing one
// guarded by its version. updateSQL receives the expected version as the
// last placeholder. No affected rows means someone else won the race.
func saveVersioned(ctx context.Context, q Querier, version *int, insertSQL, updateSQL string, args ...any) error {
	var (
		affected int64
		err      error
	)
	if *version == 0 {
		tag, execErr := q.Exec(ctx, insertSQL, args...)
		affected, err = tag.RowsAffected(), execErr
	} else {
		tag, execErr := q.Exec(ctx, updateSQL, append(args, *version)...)
		affected, err = tag.RowsAffected(), execErr
	}
	if err != nil {
		return err
	}
	if affected == 0 {
		return shared.ErrOptimisticLock
	}
	*version++
	return nil
}
