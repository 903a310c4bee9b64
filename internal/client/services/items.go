// Package services holds the application layer between the CLI and the
// storage/sync components.
package services

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/dmitrijs2005/receiptkeeper/internal/client/models"
	"github.com/dmitrijs2005/receiptkeeper/internal/client/reminders"
	"github.com/dmitrijs2005/receiptkeeper/internal/client/repositories/items"
	syncx "github.com/dmitrijs2005/receiptkeeper/internal/client/sync"
	"github.com/dmitrijs2005/receiptkeeper/internal/common"
	"github.com/dmitrijs2005/receiptkeeper/internal/dbx"
	"github.com/dmitrijs2005/receiptkeeper/internal/logging"
)

// ItemService covers every user-facing operation on tracked items: CRUD,
// list filtering, search, dashboard aggregates and CSV export.
type ItemService interface {
	Add(ctx context.Context, item *models.Item) error
	Update(ctx context.Context, item *models.Item) error
	Delete(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (*models.Item, error)
	List(ctx context.Context, filter models.Filter) ([]models.Item, error)
	ByCategory(ctx context.Context, category string) ([]models.Item, error)
	Search(ctx context.Context, query string) ([]models.Item, error)
	Companies(ctx context.Context) ([]string, error)
	Categories(ctx context.Context) ([]string, error)
	// Dashboard reads every dashboard aggregate inside one transaction so
	// the numbers reflect a single snapshot of the store.
	Dashboard(ctx context.Context) (*models.Dashboard, error)
	ExportCSV(ctx context.Context, w io.Writer) error

	// RestoreReminders re-arms reminders from the local store, called once
	// at startup since timers do not survive a restart.
	RestoreReminders(ctx context.Context) error
}

type itemService struct {
	db        *sql.DB
	repo      items.Repository
	engine    *syncx.Engine
	scheduler reminders.Scheduler
	log       logging.Logger
	userID    string
	now       func() time.Time
}

func NewItemService(db *sql.DB, repo items.Repository, engine *syncx.Engine, scheduler reminders.Scheduler, log logging.Logger, userID string) ItemService {
	return &itemService{
		db:        db,
		repo:      repo,
		engine:    engine,
		scheduler: scheduler,
		log:       log.With("component", "items"),
		userID:    userID,
		now:       time.Now,
	}
}

// Add persists a new item, arms its reminder and pushes it to the remote
// store. The push is best effort: being offline never fails a local save.
func (s *itemService) Add(ctx context.Context, item *models.Item) error {
	now := s.now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now

	if _, err := s.repo.Upsert(ctx, item); err != nil {
		return fmt.Errorf("saving error: %w", err)
	}
	s.scheduler.Schedule(item)
	s.pushBestEffort(ctx, item)
	return nil
}

// Update refreshes the item's last-modified timestamp, making this copy win
// the next merge, then re-arms the reminder and pushes.
func (s *itemService) Update(ctx context.Context, item *models.Item) error {
	if item.ID == 0 {
		return common.ErrNotFound
	}
	item.UpdatedAt = s.now().UTC()

	if _, err := s.repo.Upsert(ctx, item); err != nil {
		return fmt.Errorf("saving error: %w", err)
	}
	s.scheduler.Schedule(item)
	s.pushBestEffort(ctx, item)
	return nil
}

// Delete removes the item's remote traces, the local row and its reminder.
// Being offline only skips the remote cleanup: the tombstone is already
// recorded, so the next reconciliation cannot resurrect the row.
func (s *itemService) Delete(ctx context.Context, id int64) error {
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.engine.DeleteItem(ctx, item); err != nil {
		if !errors.Is(err, common.ErrNoConnectivity) {
			return err
		}
		s.log.Warn(ctx, "offline, remote copy not deleted", "item_id", id)
	}

	if err := s.repo.DeleteByID(ctx, id); err != nil {
		return err
	}
	s.scheduler.Cancel(id)
	return nil
}

func (s *itemService) Get(ctx context.Context, id int64) (*models.Item, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns items matching the filter, newest first.
func (s *itemService) List(ctx context.Context, filter models.Filter) ([]models.Item, error) {
	all, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	out := make([]models.Item, 0, len(all))
	for _, it := range all {
		if matchesFilter(&it, filter, now) {
			out = append(out, it)
		}
	}
	return out, nil
}

func matchesFilter(item *models.Item, filter models.Filter, now time.Time) bool {
	switch filter {
	case models.FilterReceipts:
		return item.Kind == models.KindReceipt
	case models.FilterWarranties:
		return item.Kind == models.KindWarranty
	case models.FilterExpiringSoon:
		return item.WarrantyStatusAt(now) == models.StatusExpiringSoon
	case models.FilterExpired:
		return item.WarrantyStatusAt(now) == models.StatusExpired
	default:
		return true
	}
}

// ByCategory returns the items in one category, newest first.
func (s *itemService) ByCategory(ctx context.Context, category string) ([]models.Item, error) {
	all, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]models.Item, 0, len(all))
	for _, it := range all {
		if strings.EqualFold(it.Category, category) {
			out = append(out, it)
		}
	}
	return out, nil
}

// Search matches the query case-insensitively against title, company,
// category and notes.
func (s *itemService) Search(ctx context.Context, query string) ([]models.Item, error) {
	all, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return all, nil
	}

	out := make([]models.Item, 0, len(all))
	for _, it := range all {
		haystack := strings.ToLower(it.Title + " " + it.Company + " " + it.Category + " " + it.Notes)
		if strings.Contains(haystack, q) {
			out = append(out, it)
		}
	}
	return out, nil
}

func (s *itemService) Companies(ctx context.Context) ([]string, error) {
	return s.repo.DistinctCompanies(ctx)
}

func (s *itemService) Categories(ctx context.Context) ([]string, error) {
	return s.repo.DistinctCategories(ctx)
}

// sortCategoryCounts orders counts descending, ties broken by name.
func sortCategoryCounts(counts []models.CategoryCount) {
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Category < counts[j].Category
	})
}

func (s *itemService) Dashboard(ctx context.Context) (*models.Dashboard, error) {
	now := s.now()
	var d models.Dashboard
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := items.NewSQLiteRepository(tx)
		stats, err := repo.Stats(ctx, now)
		if err != nil {
			return err
		}
		d.Stats = *stats
		if d.Categories, err = repo.CategoryStats(ctx); err != nil {
			return err
		}
		if d.ExpiringSoon, err = repo.ExpiringSoon(ctx, now, common.ExpiringSoonWindow); err != nil {
			return err
		}
		d.PendingDeletions, err = repo.CountTombstones(ctx, s.userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	sortCategoryCounts(d.Categories)
	return &d, nil
}

var csvHeader = []string{
	"Kind", "Title", "Company", "Category",
	"Purchase Date", "Expiry Date", "Status", "Reminder", "Notes",
}

// ExportCSV writes every item as one CSV row, newest first.
func (s *itemService) ExportCSV(ctx context.Context, w io.Writer) error {
	all, err := s.repo.GetAll(ctx)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("csv write error: %w", err)
	}

	now := s.now()
	for i := range all {
		it := &all[i]
		row := []string{
			string(it.Kind),
			it.Title,
			it.Company,
			it.Category,
			formatDate(it.PurchaseDate),
			formatDate(it.ExpiryDate),
			string(it.WarrantyStatusAt(now)),
			it.ReminderLead.DisplayName(),
			it.Notes,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("csv write error: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

func (s *itemService) RestoreReminders(ctx context.Context) error {
	withReminders, err := s.repo.WithReminders(ctx)
	if err != nil {
		return err
	}
	for i := range withReminders {
		s.scheduler.Schedule(&withReminders[i])
	}
	return nil
}

func (s *itemService) pushBestEffort(ctx context.Context, item *models.Item) {
	if _, err := s.engine.SyncItem(ctx, item); err != nil {
		s.log.Warn(ctx, "item not pushed, will retry on next sync",
			"title", item.Title, "error", err)
	}
}
