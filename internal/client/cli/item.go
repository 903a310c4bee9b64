package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/receiptkeeper/internal/client/models"
)

// List prints items matching the filter, one per line. A filter of the form
// "category:<name>" lists one category instead.
func (a *App) List(ctx context.Context, filter string) error {
	var rows []models.Item
	var err error

	if cat, ok := strings.CutPrefix(filter, "category:"); ok {
		rows, err = a.items.ByCategory(ctx, cat)
	} else {
		var f models.Filter
		f, err = parseFilter(filter)
		if err != nil {
			log.Printf("error: %v", err)
			return err
		}
		rows, err = a.items.List(ctx, f)
	}
	if err != nil {
		log.Printf("error: %v", err)
		return err
	}

	for i := range rows {
		printlnFn(formatItemLine(&rows[i], time.Now()))
	}
	if len(rows) == 0 {
		printlnFn("No items.")
	}
	return nil
}

func parseFilter(s string) (models.Filter, error) {
	switch s {
	case "", "all":
		return models.FilterAll, nil
	case "receipts":
		return models.FilterReceipts, nil
	case "warranties":
		return models.FilterWarranties, nil
	case "expiring_soon":
		return models.FilterExpiringSoon, nil
	case "expired":
		return models.FilterExpired, nil
	default:
		return "", fmt.Errorf("unknown filter %q", s)
	}
}

// Search prints items matching the query.
func (a *App) Search(ctx context.Context, query string) error {
	rows, err := a.items.Search(ctx, query)
	if err != nil {
		log.Printf("error: %v", err)
		return err
	}

	for i := range rows {
		printlnFn(formatItemLine(&rows[i], time.Now()))
	}
	if len(rows) == 0 {
		printlnFn("No items.")
	}
	return nil
}

// Show prompts for an id and prints the full item.
func (a *App) Show(ctx context.Context) error {
	id, err := a.readItemID("Enter item id to show")
	if err != nil {
		return err
	}

	item, err := a.items.Get(ctx, id)
	if err != nil {
		log.Printf("error: %v", err)
		return err
	}

	printItem(item, time.Now())
	return nil
}

// Delete prompts for an id and removes the item locally and remotely.
func (a *App) Delete(ctx context.Context) error {
	id, err := a.readItemID("Enter item id to delete")
	if err != nil {
		return err
	}

	if err := a.items.Delete(ctx, id); err != nil {
		log.Printf("error: %v", err)
		return err
	}
	printlnFn("Deleted.")
	return nil
}

func (a *App) readItemID(prompt string) (int64, error) {
	s, err := GetSimpleText(a.reader, prompt, os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return 0, err
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		log.Printf("invalid id %q", s)
		return 0, err
	}
	return id, nil
}

func formatItemLine(item *models.Item, now time.Time) string {
	line := fmt.Sprintf("#%d [%s] %s / %s", item.ID, item.Kind, item.Title, item.Company)
	if item.Kind == models.KindWarranty {
		line += fmt.Sprintf(" (%s)", item.WarrantyStatusAt(now))
	}
	return line
}

func printItem(item *models.Item, now time.Time) {
	printlnFn(formatItemLine(item, now))
	if item.Category != "" {
		printlnFn("Category:", item.Category)
	}
	if item.PurchaseDate != nil {
		printlnFn("Purchased:", item.PurchaseDate.Format(dateLayout))
	}
	if item.ExpiryDate != nil {
		printlnFn("Expires:", item.ExpiryDate.Format(dateLayout))
	}
	if item.ReminderLead != models.ReminderNone {
		printlnFn("Reminder:", item.ReminderLead.DisplayName())
	}
	if item.ImageRef != "" {
		printlnFn("Image:", item.ImageRef)
	}
	if item.RemoteID != "" {
		printlnFn("Synced as:", item.RemoteID)
	}
	if item.Notes != "" {
		printlnFn("Notes:", item.Notes)
	}
}
