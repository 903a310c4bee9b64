package models

import "time"

// Document is the remote representation of an Item: a flat record mirroring
// the local fields, with kind and reminder lead encoded as strings. LocalID
// carries the uploader's row id so a re-downloaded document can hint at its
// origin, but identity on merge is decided by remote id and natural key.
type Document struct {
	RemoteID     string
	Kind         string
	Title        string
	Company      string
	Category     string
	Notes        string
	ImageRef     string
	BlobID       string
	PurchaseDate *time.Time
	ExpiryDate   *time.Time
	ReminderLead string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	LocalID      int64
}

// ToItem decodes the document into a local Item. Unknown kind or reminder
// codes decode leniently rather than failing the whole download.
func (d Document) ToItem() Item {
	return Item{
		ID:           d.LocalID,
		RemoteID:     d.RemoteID,
		Kind:         ParseItemKind(d.Kind),
		Title:        d.Title,
		Company:      d.Company,
		Category:     d.Category,
		Notes:        d.Notes,
		ImageRef:     d.ImageRef,
		BlobID:       d.BlobID,
		PurchaseDate: d.PurchaseDate,
		ExpiryDate:   d.ExpiryDate,
		ReminderLead: ParseReminderLead(d.ReminderLead),
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

// DocumentFromItem encodes an Item for upload.
func DocumentFromItem(i *Item) Document {
	return Document{
		RemoteID:     i.RemoteID,
		Kind:         string(i.Kind),
		Title:        i.Title,
		Company:      i.Company,
		Category:     i.Category,
		Notes:        i.Notes,
		ImageRef:     i.ImageRef,
		BlobID:       i.BlobID,
		PurchaseDate: i.PurchaseDate,
		ExpiryDate:   i.ExpiryDate,
		ReminderLead: i.ReminderLead.Code(),
		CreatedAt:    i.CreatedAt,
		UpdatedAt:    i.UpdatedAt,
		LocalID:      i.ID,
	}
}
