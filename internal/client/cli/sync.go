package cli

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/dmitrijs2005/receiptkeeper/internal/common"
)

// Sync runs a full reconciliation and reports the outcome.
func (a *App) Sync(ctx context.Context) error {
	res, err := a.engine.SyncAll(ctx)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrNoConnectivity):
			printlnFn("Offline, try again later.")
		case errors.Is(err, common.ErrSyncInProgress):
			printlnFn("Sync already running.")
		default:
			log.Printf("error: %v", err)
		}
		return err
	}

	printlnFn(fmt.Sprintf("Sync finished: %d uploaded, %d downloaded", res.Uploaded, res.Downloaded))
	for _, msg := range res.Errors {
		printlnFn(" -", msg)
	}

	if last, err := a.engine.LastSyncTime(ctx); err == nil && last != nil {
		printlnFn("Last successful sync:", last.Format("2006-01-02 15:04:05"))
	}
	return nil
}
