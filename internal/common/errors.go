// Package common defines shared constants and sentinel errors used across
// ReceiptKeeper components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound         = errors.New("not found")
	ErrLocalStoreFailed = errors.New("local store failed")

	// Sync errors. ErrNoConnectivity aborts a sync before any state is
	// touched; the remaining values classify per-item failures.
	ErrNoConnectivity    = errors.New("no network connection")
	ErrRemoteReadFailed  = errors.New("remote read failed")
	ErrRemoteWriteFailed = errors.New("remote write failed")
	ErrUploadFailed      = errors.New("attachment upload failed")
	ErrDownloadFailed    = errors.New("attachment download failed")
	ErrSyncInProgress    = errors.New("sync already in progress")

	// ErrAttachmentsDisabled is returned when an operation needs blob
	// storage but no blob store is configured.
	ErrAttachmentsDisabled = errors.New("attachment storage not configured")
)
