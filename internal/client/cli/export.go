package cli

import (
	"context"
	"log"
	"os"
)

// Export prompts for a file name and writes all items as CSV.
func (a *App) Export(ctx context.Context) error {
	path, err := GetSimpleText(a.reader, "Enter output file name", os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return err
	}
	if path == "" {
		path = "receiptkeeper.csv"
	}

	f, err := os.Create(path)
	if err != nil {
		log.Printf("error: %v", err)
		return err
	}
	defer f.Close()

	if err := a.items.ExportCSV(ctx, f); err != nil {
		log.Printf("error: %v", err)
		return err
	}

	printlnFn("Exported to", path)
	return nil
}
