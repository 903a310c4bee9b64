package common

import "time"

// TombstoneRetention is how long a deletion marker is kept before the
// reconciliation sweep removes it.
const TombstoneRetention = 30 * 24 * time.Hour

// ExpiringSoonWindow is the window before a warranty expiry date during
// which an item counts as "expiring soon".
const ExpiringSoonWindow = 7 * 24 * time.Hour
