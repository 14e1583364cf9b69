package providers

import (
	"context"
	"fmt"

	"boardpacks/internal/actor"
	"boardpacks/internal/storage"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Providers struct {
	TemplateProvider    *TemplateProvider
	PackProvider        *PackProvider
	DocumentProvider    *DocumentProvider
	MaintenanceProvider *MaintenanceProvider
}

func New(db *pgxpool.Pool) *Providers {
	return &Providers{
		TemplateProvider:    NewTemplateProvider(db),
		PackProvider:        NewPackProvider(db),
		DocumentProvider:    NewDocumentProvider(db),
		MaintenanceProvider: NewMaintenanceProvider(db),
	}
}

// begin opens a transaction scoped to the acting user found in ctx, if any.
func begin(ctx context.Context, db *pgxpool.Pool) (pgx.Tx, error) {
	tx, err := db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", storage.Classify(err))
	}
	if id, ok := actor.From(ctx); ok {
		if err := storage.WithActor(ctx, tx, id.String()); err != nil {
			_ = tx.Rollback(ctx)
			return nil, storage.Classify(err)
		}
	}
	return tx, nil
}

func commit(ctx context.Context, tx pgx.Tx) error {
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", storage.ClassifyCommit(err))
	}
	return nil
}
