// Package reminders schedules warranty-expiry notifications. The engine-side
// counterpart of the platform notification system is a Notifier supplied by
// the caller; the default prints through the logger.
package reminders

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/receiptkeeper/internal/client/models"
	"github.com/dmitrijs2005/receiptkeeper/internal/logging"
)

// Notifier delivers a due reminder to the user.
type Notifier interface {
	Notify(ctx context.Context, item models.Item)
}

// Scheduler arms and disarms per-item expiry reminders.
type Scheduler interface {
	// Schedule arms a reminder for the item, replacing any existing one.
	// Items without an expiry date, without a reminder lead, or whose
	// reminder time has already passed end up with no reminder armed.
	Schedule(item *models.Item)

	// Cancel disarms the reminder for the item, if any.
	Cancel(itemID int64)

	// Close disarms everything.
	Close()
}

// TimerScheduler fires reminders from in-process timers. Reminders do not
// survive a restart; callers re-arm them from the local store at startup.
type TimerScheduler struct {
	notifier Notifier
	log      logging.Logger
	now      func() time.Time

	mu     sync.Mutex
	timers map[int64]*time.Timer
}

func NewTimerScheduler(notifier Notifier, log logging.Logger) *TimerScheduler {
	return &TimerScheduler{
		notifier: notifier,
		log:      log.With("component", "reminders"),
		now:      time.Now,
		timers:   make(map[int64]*time.Timer),
	}
}

// FireTime returns when the item's reminder is due, or false when the item
// has no reminder.
func FireTime(item *models.Item) (time.Time, bool) {
	if item.ExpiryDate == nil || item.ReminderLead == models.ReminderNone {
		return time.Time{}, false
	}
	return item.ExpiryDate.Add(-time.Duration(item.ReminderLead) * 24 * time.Hour), true
}

func (s *TimerScheduler) Schedule(item *models.Item) {
	s.Cancel(item.ID)

	at, ok := FireTime(item)
	if !ok {
		return
	}
	delay := at.Sub(s.now())
	if delay <= 0 {
		return
	}

	id := item.ID
	fired := *item

	s.mu.Lock()
	defer s.mu.Unlock()
	s.timers[id] = time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.timers, id)
		s.mu.Unlock()
		s.notifier.Notify(context.Background(), fired)
	})
	s.log.Debug(context.Background(), "reminder armed", "item_id", id, "fire_at", at)
}

func (s *TimerScheduler) Cancel(itemID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tm, ok := s.timers[itemID]; ok {
		tm.Stop()
		delete(s.timers, itemID)
	}
}

func (s *TimerScheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, tm := range s.timers {
		tm.Stop()
		delete(s.timers, id)
	}
}

// LogNotifier reports due reminders through the logger. The CLI uses it in
// place of a platform notification service.
type LogNotifier struct {
	log logging.Logger
}

func NewLogNotifier(log logging.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(ctx context.Context, item models.Item) {
	n.log.Info(ctx, "warranty expiring soon",
		"title", item.Title, "company", item.Company, "expires", item.ExpiryDate)
}
