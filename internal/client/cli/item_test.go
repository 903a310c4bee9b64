package cli

import (
	"testing"
	"time"

	"github.com/dmitrijs2005/receiptkeeper/internal/client/models"
	"github.com/stretchr/testify/assert"
)

func TestParseFilter(t *testing.T) {
	tests := []struct {
		input    string
		expected models.Filter
		wantErr  bool
	}{
		{"", models.FilterAll, false},
		{"all", models.FilterAll, false},
		{"receipts", models.FilterReceipts, false},
		{"warranties", models.FilterWarranties, false},
		{"expiring_soon", models.FilterExpiringSoon, false},
		{"expired", models.FilterExpired, false},
		{"bogus", "", true},
	}

	for _, tc := range tests {
		got, err := parseFilter(tc.input)
		if tc.wantErr {
			assert.Error(t, err, "input %q", tc.input)
			continue
		}
		assert.NoError(t, err, "input %q", tc.input)
		assert.Equal(t, tc.expected, got, "input %q", tc.input)
	}
}

func TestFormatItemLine(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	receipt := &models.Item{ID: 1, Kind: models.KindReceipt, Title: "Paper", Company: "OfficeCo"}
	assert.Equal(t, "#1 [RECEIPT] Paper / OfficeCo", formatItemLine(receipt, now))

	expiry := now.Add(48 * time.Hour)
	warranty := &models.Item{ID: 2, Kind: models.KindWarranty, Title: "Drill", Company: "ToolCo", ExpiryDate: &expiry}
	assert.Equal(t, "#2 [WARRANTY] Drill / ToolCo (expiring_soon)", formatItemLine(warranty, now))
}
