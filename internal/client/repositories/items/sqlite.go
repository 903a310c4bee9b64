package items

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/receiptkeeper/internal/client/models"
	"github.com/dmitrijs2005/receiptkeeper/internal/common"
	"github.com/dmitrijs2005/receiptkeeper/internal/dbx"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or
// *sql.Tx). Timestamps are stored as unix milliseconds.
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func toMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

func fromMillis(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := time.UnixMilli(n.Int64).UTC()
	return &t
}

func nullStr(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

const itemColumns = `id, remote_id, kind, title, company, category, notes,
	image_ref, blob_id, purchase_date, expiry_date, reminder_lead, created_at, updated_at`

func scanItem(row interface{ Scan(...any) error }) (*models.Item, error) {
	var (
		item                                      models.Item
		remoteID, category, notes, imageRef, blob sql.NullString
		purchase, expiry                          sql.NullInt64
		createdAt, updatedAt                      int64
		lead                                      int
	)
	err := row.Scan(&item.ID, &remoteID, &item.Kind, &item.Title, &item.Company,
		&category, &notes, &imageRef, &blob, &purchase, &expiry, &lead, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	item.RemoteID = remoteID.String
	item.Category = category.String
	item.Notes = notes.String
	item.ImageRef = imageRef.String
	item.BlobID = blob.String
	item.PurchaseDate = fromMillis(purchase)
	item.ExpiryDate = fromMillis(expiry)
	item.ReminderLead = models.ReminderLead(lead)
	item.CreatedAt = time.UnixMilli(createdAt).UTC()
	item.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return &item, nil
}

func (r *SQLiteRepository) queryItems(ctx context.Context, query string, args ...any) ([]models.Item, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select items: %w", err)
	}
	defer rows.Close()

	var result []models.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Upsert inserts a new item (ID zero) or updates an existing row by id.
func (r *SQLiteRepository) Upsert(ctx context.Context, item *models.Item) (int64, error) {
	if item.ID == 0 {
		query := `INSERT INTO items (remote_id, kind, title, company, category, notes,
			image_ref, blob_id, purchase_date, expiry_date, reminder_lead, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
		res, err := r.db.ExecContext(ctx, query,
			nullStr(item.RemoteID), item.Kind, item.Title, item.Company,
			nullStr(item.Category), nullStr(item.Notes), nullStr(item.ImageRef), nullStr(item.BlobID),
			toMillis(item.PurchaseDate), toMillis(item.ExpiryDate), int(item.ReminderLead),
			item.CreatedAt.UnixMilli(), item.UpdatedAt.UnixMilli())
		if err != nil {
			return 0, fmt.Errorf("failed to insert item: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("failed to get inserted id: %w", err)
		}
		item.ID = id
		return id, nil
	}

	query := `UPDATE items SET remote_id=?, kind=?, title=?, company=?, category=?, notes=?,
		image_ref=?, blob_id=?, purchase_date=?, expiry_date=?, reminder_lead=?, updated_at=?
		WHERE id=?`
	res, err := r.db.ExecContext(ctx, query,
		nullStr(item.RemoteID), item.Kind, item.Title, item.Company,
		nullStr(item.Category), nullStr(item.Notes), nullStr(item.ImageRef), nullStr(item.BlobID),
		toMillis(item.PurchaseDate), toMillis(item.ExpiryDate), int(item.ReminderLead),
		item.UpdatedAt.UnixMilli(), item.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to update item: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra != 1 {
		return 0, common.ErrNotFound
	}
	return item.ID, nil
}

// GetAll lists all items, newest first.
func (r *SQLiteRepository) GetAll(ctx context.Context) ([]models.Item, error) {
	return r.queryItems(ctx, `SELECT `+itemColumns+` FROM items ORDER BY created_at DESC`)
}

// GetByID returns a single item.
func (r *SQLiteRepository) GetByID(ctx context.Context, id int64) (*models.Item, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id=?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}
	return item, nil
}

// FindByNaturalKey matches on title, company, and a NULL-safe purchase date.
func (r *SQLiteRepository) FindByNaturalKey(ctx context.Context, key models.NaturalKey) (*models.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items
		WHERE title=? AND company=?
		AND (purchase_date=? OR (purchase_date IS NULL AND ? IS NULL))
		LIMIT 1`
	pd := toMillis(key.PurchaseDate)
	row := r.db.QueryRowContext(ctx, query, key.Title, key.Company, pd, pd)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}
	return item, nil
}

// DeleteByID removes a row. It expects exactly one row to be affected.
func (r *SQLiteRepository) DeleteByID(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM items WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra != 1 {
		return common.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) distinct(ctx context.Context, query string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select values: %w", err)
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		result = append(result, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// DistinctCompanies lists every company name once, sorted.
func (r *SQLiteRepository) DistinctCompanies(ctx context.Context) ([]string, error) {
	return r.distinct(ctx, `SELECT DISTINCT company FROM items ORDER BY company ASC`)
}

// DistinctCategories lists every non-empty category once, sorted.
func (r *SQLiteRepository) DistinctCategories(ctx context.Context) ([]string, error) {
	return r.distinct(ctx, `SELECT DISTINCT category FROM items WHERE category IS NOT NULL ORDER BY category ASC`)
}

// CategoryStats returns per-category item counts, most-used first.
func (r *SQLiteRepository) CategoryStats(ctx context.Context) ([]models.CategoryCount, error) {
	query := `SELECT category, COUNT(*) AS cnt FROM items
		WHERE category IS NOT NULL GROUP BY category ORDER BY cnt DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select category stats: %w", err)
	}
	defer rows.Close()

	var result []models.CategoryCount
	for rows.Next() {
		var c models.CategoryCount
		if err := rows.Scan(&c.Category, &c.Count); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Stats computes the dashboard counters in a single query.
func (r *SQLiteRepository) Stats(ctx context.Context, now time.Time) (*models.Stats, error) {
	nowMs := now.UnixMilli()
	soonMs := now.Add(common.ExpiringSoonWindow).UnixMilli()
	query := `SELECT
		COUNT(CASE WHEN kind='RECEIPT' THEN 1 END),
		COUNT(CASE WHEN kind='WARRANTY' THEN 1 END),
		COUNT(CASE WHEN kind='WARRANTY' AND expiry_date > ? THEN 1 END),
		COUNT(CASE WHEN kind='WARRANTY' AND expiry_date > ? AND expiry_date <= ? THEN 1 END),
		COUNT(CASE WHEN kind='WARRANTY' AND expiry_date < ? THEN 1 END)
		FROM items`
	row := r.db.QueryRowContext(ctx, query, nowMs, nowMs, soonMs, nowMs)

	s := &models.Stats{}
	if err := row.Scan(&s.Receipts, &s.Warranties, &s.Active, &s.ExpiringSoon, &s.Expired); err != nil {
		return nil, fmt.Errorf("failed to scan stats: %w", err)
	}
	return s, nil
}

// ExpiringSoon lists warranties expiring within the window, soonest first.
func (r *SQLiteRepository) ExpiringSoon(ctx context.Context, now time.Time, window time.Duration) ([]models.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items
		WHERE kind='WARRANTY' AND expiry_date IS NOT NULL AND expiry_date > ? AND expiry_date <= ?
		ORDER BY expiry_date ASC`
	return r.queryItems(ctx, query, now.UnixMilli(), now.Add(window).UnixMilli())
}

// WithReminders lists warranties that have both a reminder lead and an expiry.
func (r *SQLiteRepository) WithReminders(ctx context.Context) ([]models.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items
		WHERE kind='WARRANTY' AND reminder_lead > 0 AND expiry_date IS NOT NULL`
	return r.queryItems(ctx, query)
}

// InsertTombstone records a deletion marker. Re-inserting the same marker
// keeps the original deletion time.
func (r *SQLiteRepository) InsertTombstone(ctx context.Context, remoteID, userID string, deletedAt time.Time) error {
	query := `INSERT INTO tombstones (remote_id, user_id, deleted_at) VALUES (?, ?, ?)
		ON CONFLICT(remote_id, user_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, remoteID, userID, deletedAt.UnixMilli()); err != nil {
		return fmt.Errorf("failed to insert tombstone: %w", err)
	}
	return nil
}

// TombstoneRemoteIDs returns the set of tombstoned remote ids for a user.
func (r *SQLiteRepository) TombstoneRemoteIDs(ctx context.Context, userID string) (map[string]struct{}, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT remote_id FROM tombstones WHERE user_id=?`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select tombstones: %w", err)
	}
	defer rows.Close()

	result := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		result[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// PurgeTombstonesOlderThan removes markers deleted before the cutoff.
func (r *SQLiteRepository) PurgeTombstonesOlderThan(ctx context.Context, userID string, cutoff time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM tombstones WHERE user_id=? AND deleted_at < ?`, userID, cutoff.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to purge tombstones: %w", err)
	}
	return nil
}

// CountTombstones returns the number of markers for a user.
func (r *SQLiteRepository) CountTombstones(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tombstones WHERE user_id=?`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count tombstones: %w", err)
	}
	return n, nil
}
