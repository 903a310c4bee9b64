package remote

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/receiptkeeper/internal/client/models"
	"github.com/dmitrijs2005/receiptkeeper/internal/common"
	"github.com/dmitrijs2005/receiptkeeper/internal/dbx"
	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresClient stores documents in a per-user Postgres table. Write
// operations are retried with bounded fibonacci backoff; the upsert-by-uuid
// shape keeps retries idempotent.
type PostgresClient struct {
	db      dbx.DBTX
	userID  string
	backoff func() retry.Backoff
}

// NewPostgresClient returns a client bound to the given DBTX and user.
func NewPostgresClient(db dbx.DBTX, userID string) *PostgresClient {
	return &PostgresClient{
		db:     db,
		userID: userID,
		backoff: func() retry.Backoff {
			return retry.WithMaxRetries(3, retry.NewFibonacci(100*time.Millisecond))
		},
	}
}

// Connect opens the remote database over the pgx stdlib driver.
func Connect(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	return db, nil
}

func docMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

func docTime(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := time.UnixMilli(n.Int64).UTC()
	return &t
}

// UpsertDocument writes the item's document, assigning a fresh uuid when the
// item has no remote id yet.
func (c *PostgresClient) UpsertDocument(ctx context.Context, item *models.Item) (string, error) {
	doc := models.DocumentFromItem(item)
	if doc.RemoteID == "" {
		doc.RemoteID = uuid.NewString()
	}

	query := `
		INSERT INTO documents (remote_id, user_id, kind, title, company, category, notes,
			image_ref, blob_id, purchase_date, expiry_date, reminder_lead, created_at, updated_at, local_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (remote_id)
		DO UPDATE SET
			kind = EXCLUDED.kind,
			title = EXCLUDED.title,
			company = EXCLUDED.company,
			category = EXCLUDED.category,
			notes = EXCLUDED.notes,
			image_ref = EXCLUDED.image_ref,
			blob_id = EXCLUDED.blob_id,
			purchase_date = EXCLUDED.purchase_date,
			expiry_date = EXCLUDED.expiry_date,
			reminder_lead = EXCLUDED.reminder_lead,
			updated_at = EXCLUDED.updated_at,
			local_id = EXCLUDED.local_id
			WHERE documents.user_id = EXCLUDED.user_id;
	`

	err := retry.Do(ctx, c.backoff(), func(ctx context.Context) error {
		_, err := c.db.ExecContext(ctx, query,
			doc.RemoteID, c.userID, doc.Kind, doc.Title, doc.Company,
			doc.Category, doc.Notes, doc.ImageRef, doc.BlobID,
			docMillis(doc.PurchaseDate), docMillis(doc.ExpiryDate), doc.ReminderLead,
			doc.CreatedAt.UnixMilli(), doc.UpdatedAt.UnixMilli(), doc.LocalID)
		if err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrRemoteWriteFailed, err)
	}
	return doc.RemoteID, nil
}

// DeleteDocument removes the document for this user. Absent rows are ignored.
func (c *PostgresClient) DeleteDocument(ctx context.Context, remoteID string) error {
	err := retry.Do(ctx, c.backoff(), func(ctx context.Context) error {
		_, err := c.db.ExecContext(ctx,
			`DELETE FROM documents WHERE remote_id = $1 AND user_id = $2`, remoteID, c.userID)
		if err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrRemoteWriteFailed, err)
	}
	return nil
}

// FetchAll reads every document for this user, newest change first.
func (c *PostgresClient) FetchAll(ctx context.Context) ([]models.Item, error) {
	query := `
		SELECT remote_id, kind, title, company, category, notes, image_ref, blob_id,
			purchase_date, expiry_date, reminder_lead, created_at, updated_at, local_id
		FROM documents WHERE user_id = $1 ORDER BY updated_at DESC`

	rows, err := c.db.QueryContext(ctx, query, c.userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrRemoteReadFailed, err)
	}
	defer rows.Close()

	var result []models.Item
	for rows.Next() {
		var (
			doc                  models.Document
			purchase, expiry     sql.NullInt64
			createdAt, updatedAt int64
		)
		if err := rows.Scan(&doc.RemoteID, &doc.Kind, &doc.Title, &doc.Company,
			&doc.Category, &doc.Notes, &doc.ImageRef, &doc.BlobID,
			&purchase, &expiry, &doc.ReminderLead, &createdAt, &updatedAt, &doc.LocalID); err != nil {
			return nil, fmt.Errorf("%w: %w", common.ErrRemoteReadFailed, err)
		}
		doc.PurchaseDate = docTime(purchase)
		doc.ExpiryDate = docTime(expiry)
		doc.CreatedAt = time.UnixMilli(createdAt).UTC()
		doc.UpdatedAt = time.UnixMilli(updatedAt).UTC()
		result = append(result, doc.ToItem())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrRemoteReadFailed, err)
	}
	return result, nil
}
