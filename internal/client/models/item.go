// Package models defines client-side data models for tracked receipts and
// warranties.
package models

import (
	"strings"
	"time"

	"github.com/dmitrijs2005/receiptkeeper/internal/common"
)

// ItemKind classifies a tracked item.
type ItemKind string

const (
	KindReceipt  ItemKind = "RECEIPT"
	KindWarranty ItemKind = "WARRANTY"
)

// ParseItemKind decodes a kind string from a remote document. Unknown values
// fall back to KindWarranty, matching how documents have always been read.
func ParseItemKind(s string) ItemKind {
	if ItemKind(s) == KindReceipt {
		return KindReceipt
	}
	return KindWarranty
}

// ReminderLead is the number of days before warranty expiry at which a
// reminder fires. Zero means no reminder.
type ReminderLead int

const (
	ReminderNone      ReminderLead = 0
	ReminderOneDay    ReminderLead = 1
	ReminderThreeDays ReminderLead = 3
	ReminderFiveDays  ReminderLead = 5
	ReminderOneWeek   ReminderLead = 7
)

var reminderCodes = map[ReminderLead]string{
	ReminderOneDay:    "ONE_DAY",
	ReminderThreeDays: "THREE_DAYS",
	ReminderFiveDays:  "FIVE_DAYS",
	ReminderOneWeek:   "ONE_WEEK",
}

// Code returns the wire encoding of the lead time, or "" for none.
func (r ReminderLead) Code() string {
	return reminderCodes[r]
}

// ParseReminderLead decodes a wire code. Unknown codes decode to none.
func ParseReminderLead(s string) ReminderLead {
	for lead, code := range reminderCodes {
		if code == s {
			return lead
		}
	}
	return ReminderNone
}

// DisplayName returns a human-readable label for list output.
func (r ReminderLead) DisplayName() string {
	switch r {
	case ReminderOneDay:
		return "1 day before"
	case ReminderThreeDays:
		return "3 days before"
	case ReminderFiveDays:
		return "5 days before"
	case ReminderOneWeek:
		return "1 week before"
	default:
		return ""
	}
}

// WarrantyStatus is the derived state of a warranty relative to now.
type WarrantyStatus string

const (
	StatusValid        WarrantyStatus = "valid"
	StatusExpiringSoon WarrantyStatus = "expiring_soon"
	StatusExpired      WarrantyStatus = "expired"
	StatusNoWarranty   WarrantyStatus = "no_warranty"
)

// Filter selects a subset of items for list views.
type Filter string

const (
	FilterAll          Filter = "all"
	FilterReceipts     Filter = "receipts"
	FilterWarranties   Filter = "warranties"
	FilterExpiringSoon Filter = "expiring_soon"
	FilterExpired      Filter = "expired"
)

// Item is a tracked receipt or warranty record. The local numeric ID is owned
// by the local store; RemoteID is assigned by the remote store on first upload
// and stable thereafter. UpdatedAt is the sole conflict-resolution signal.
type Item struct {
	// ID is the local row identifier, stable for the item's local lifetime.
	ID int64

	// RemoteID is the remote document identifier; empty until first synced.
	RemoteID string

	Kind     ItemKind
	Title    string
	Company  string
	Category string
	Notes    string

	// ImageRef is either a local file path or, once synced, a remote
	// download link. BlobID is set alongside a remote link.
	ImageRef string
	BlobID   string

	PurchaseDate *time.Time
	ExpiryDate   *time.Time

	ReminderLead ReminderLead

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasLocalAttachment reports whether ImageRef points at a local file that has
// not yet been migrated to remote blob storage.
func (i *Item) HasLocalAttachment() bool {
	if i.ImageRef == "" {
		return false
	}
	return !strings.HasPrefix(i.ImageRef, "http://") && !strings.HasPrefix(i.ImageRef, "https://")
}

// WarrantyStatusAt derives the warranty state at the given instant.
func (i *Item) WarrantyStatusAt(now time.Time) WarrantyStatus {
	if i.ExpiryDate == nil {
		return StatusNoWarranty
	}
	switch {
	case i.ExpiryDate.Before(now):
		return StatusExpired
	case i.ExpiryDate.Sub(now) <= common.ExpiringSoonWindow:
		return StatusExpiringSoon
	default:
		return StatusValid
	}
}

// NaturalKey is the (title, company, purchase date) tuple used to match local
// and remote records when no shared identifier exists. It is a heuristic, not
// a true identity: two distinct items sharing all three fields will be
// conflated during merge.
type NaturalKey struct {
	Title        string
	Company      string
	PurchaseDate *time.Time
}

// Key returns the item's natural key.
func (i *Item) Key() NaturalKey {
	return NaturalKey{Title: i.Title, Company: i.Company, PurchaseDate: i.PurchaseDate}
}

// Tombstone records that a previously-synced item was deliberately deleted
// locally, so a later pull does not resurrect it. Rows are created exactly
// once at delete time and purged after the retention window.
type Tombstone struct {
	RemoteID  string
	UserID    string
	DeletedAt time.Time
}

// CategoryCount is a per-category item count for the dashboard.
type CategoryCount struct {
	Category string
	Count    int
}

// Stats aggregates dashboard counters.
type Stats struct {
	Receipts     int
	Warranties   int
	Active       int
	ExpiringSoon int
	Expired      int
}

// Dashboard bundles every dashboard aggregate read in one snapshot.
// PendingDeletions counts tombstones not yet purged by the retention sweep.
type Dashboard struct {
	Stats            Stats
	Categories       []CategoryCount
	ExpiringSoon     []Item
	PendingDeletions int
}
