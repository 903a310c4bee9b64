package cli

import (
	"context"
	"fmt"
	"log"
	"time"
)

// Dashboard prints warranty statistics, per-category counts, the warranties
// expiring within the next week and the number of deletions awaiting sync.
func (a *App) Dashboard(ctx context.Context) error {
	d, err := a.items.Dashboard(ctx)
	if err != nil {
		log.Printf("error: %v", err)
		return err
	}

	printlnFn(fmt.Sprintf("Receipts: %d, warranties: %d", d.Stats.Receipts, d.Stats.Warranties))
	printlnFn(fmt.Sprintf("Warranties active: %d, expiring soon: %d, expired: %d",
		d.Stats.Active, d.Stats.ExpiringSoon, d.Stats.Expired))

	if len(d.Categories) > 0 {
		printlnFn("By category:")
		for _, c := range d.Categories {
			printlnFn(fmt.Sprintf("  %s: %d", c.Category, c.Count))
		}
	}

	if len(d.ExpiringSoon) > 0 {
		printlnFn("Expiring soon:")
		now := time.Now()
		for i := range d.ExpiringSoon {
			printlnFn(" ", formatItemLine(&d.ExpiringSoon[i], now))
		}
	}

	if d.PendingDeletions > 0 {
		printlnFn(fmt.Sprintf("Pending deletions: %d", d.PendingDeletions))
	}
	return nil
}
