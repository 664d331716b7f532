package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/curriculum-planner-api/internal/models"
	"github.com/noah-isme/curriculum-planner-api/internal/repository"
	appErrors "github.com/noah-isme/curriculum-planner-api/pkg/errors"
)

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// withinTx runs fn in a transaction, rolling back when fn or the commit fails.
func withinTx(ctx context.Context, provider txProvider, fn func(tx *sqlx.Tx) error) (err error) {
	if provider == nil {
		return appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}
	tx, err := provider.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit transaction")
		return err
	}
	return nil
}

// projectionLocker is the subset of the projection repository used to lock a projection for a mutation.
type projectionLocker interface {
	LockByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Projection, error)
}

// lockOwnedProjection locks the projection row and checks that requester owns it.
// An empty requester skips the ownership check.
func lockOwnedProjection(ctx context.Context, repo projectionLocker, tx *sqlx.Tx, id, requester string) (*models.Projection, error) {
	projection, err := repo.LockByID(ctx, tx, id)
	if err != nil {
		return nil, storageError(err, "projection not found", "failed to load projection")
	}
	if err := authorizeOwner(projection, requester); err != nil {
		return nil, err
	}
	return projection, nil
}

func authorizeOwner(projection *models.Projection, requester string) error {
	if requester != "" && projection.StudentID != requester {
		return appErrors.Clone(appErrors.ErrForbidden, "projection belongs to another student")
	}
	return nil
}

// storageError maps repository failures onto the typed taxonomy.
func storageError(err error, notFound, internal string) error {
	var appErr *appErrors.Error
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	case repository.IsUniqueViolation(err):
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "conflicting write")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, internal)
}
