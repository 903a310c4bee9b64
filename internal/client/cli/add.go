package cli

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/dmitrijs2005/receiptkeeper/internal/client/models"
	"github.com/dmitrijs2005/receiptkeeper/internal/common"
)

// Add interactively collects a new receipt or warranty and saves it.
func (a *App) Add(ctx context.Context) error {
	item, err := a.inputItem(ctx)
	if err != nil {
		log.Printf("error: %v", err)
		return err
	}

	if err := a.items.Add(ctx, item); err != nil {
		log.Printf("error: %v", err)
		return err
	}

	printlnFn(fmt.Sprintf("Saved item #%d", item.ID))
	return nil
}

func (a *App) inputItem(ctx context.Context) (*models.Item, error) {
	kind, err := GetSimpleText(a.reader, "Kind: (r)eceipt or (w)arranty", os.Stdout)
	if err != nil {
		return nil, err
	}

	item := &models.Item{Kind: models.KindWarranty}
	if kind == "r" || kind == "receipt" {
		item.Kind = models.KindReceipt
	}

	item.Title, err = GetSimpleText(a.reader, "Enter title", os.Stdout)
	if err != nil {
		return nil, err
	}
	if item.Title == "" {
		return nil, fmt.Errorf("title is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	item.Company, err = GetSimpleText(a.reader, "Enter company", os.Stdout)
	if err != nil {
		return nil, err
	}
	if item.Company == "" {
		return nil, fmt.Errorf("company is required")
	}

	item.Category, err = GetSimpleText(a.reader, "Enter category (empty to skip)", os.Stdout)
	if err != nil {
		return nil, err
	}

	item.PurchaseDate, err = GetOptionalDate(a.reader, "Purchase date", os.Stdout)
	if err != nil {
		return nil, err
	}

	if item.Kind == models.KindWarranty {
		item.ExpiryDate, err = GetOptionalDate(a.reader, "Warranty expiry date", os.Stdout)
		if err != nil {
			return nil, err
		}
		if item.ExpiryDate != nil {
			item.ReminderLead, err = GetReminderLead(a.reader, os.Stdout)
			if err != nil {
				return nil, err
			}
		}
	}

	item.ImageRef, err = GetSimpleText(a.reader, "Image file path (empty to skip)", os.Stdout)
	if err != nil {
		return nil, err
	}
	if item.ImageRef != "" && !a.config.AttachmentsEnabled() {
		return nil, common.ErrAttachmentsDisabled
	}

	item.Notes, err = GetMultiline(a.reader, "Notes:", os.Stdout)
	if err != nil {
		return nil, err
	}

	return item, nil
}
