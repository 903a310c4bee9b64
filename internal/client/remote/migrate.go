package remote

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/receiptkeeper/internal/client/remote/migrations"
	"github.com/pressly/goose/v3"
)

// RunMigrations brings the remote document schema up to date.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}
