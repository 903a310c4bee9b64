package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/receiptkeeper/internal/client/blob"
	"github.com/dmitrijs2005/receiptkeeper/internal/client/config"
	"github.com/dmitrijs2005/receiptkeeper/internal/client/reminders"
	"github.com/dmitrijs2005/receiptkeeper/internal/client/remote"
	"github.com/dmitrijs2005/receiptkeeper/internal/client/services"
	"github.com/dmitrijs2005/receiptkeeper/internal/client/storage"
	syncx "github.com/dmitrijs2005/receiptkeeper/internal/client/sync"
	"github.com/dmitrijs2005/receiptkeeper/internal/logging"
	"github.com/dmitrijs2005/receiptkeeper/internal/netx"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type App struct {
	config    *config.Config
	items     services.ItemService
	engine    *syncx.Engine
	scheduler reminders.Scheduler
	checker   netx.Checker
	log       logging.Logger
	reader    *bufio.Reader
	Mode      Mode
}

func NewApp(ctx context.Context, c *config.Config, log logging.Logger) (*App, error) {
	if c.RemoteDSN == "" {
		return nil, fmt.Errorf("remote store DSN is required (-r or remote_dsn)")
	}

	repos, err := storage.InitDatabase(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}

	remoteDB, err := remote.Connect(c.RemoteDSN)
	if err != nil {
		return nil, err
	}
	if err := remote.RunMigrations(ctx, remoteDB); err != nil {
		return nil, fmt.Errorf("remote migration error: %w", err)
	}
	remoteClient := remote.NewPostgresClient(remoteDB, c.UserID)

	var blobs blob.Client
	if c.AttachmentsEnabled() {
		s3c, err := blob.NewS3Client(ctx, blob.Options{
			Endpoint:       c.S3.Endpoint,
			Region:         c.S3.Region,
			Bucket:         c.S3.Bucket,
			AccessKey:      c.S3.AccessKey,
			SecretKey:      c.S3.SecretKey,
			UserID:         c.UserID,
			AttachmentsDir: c.AttachmentsDir,
		})
		if err != nil {
			return nil, err
		}
		blobs = s3c
	}

	checker := netx.NewDialChecker(c.ProbeAddr, c.ProbeTimeout)
	scheduler := reminders.NewTimerScheduler(reminders.NewLogNotifier(log), log)

	engine := syncx.NewEngine(syncx.Options{
		Items:    repos.Items,
		Metadata: repos.Metadata,
		Remote:   remoteClient,
		Blobs:    blobs,
		Checker:  checker,
		Logger:   log,
		UserID:   c.UserID,
	})

	svc := services.NewItemService(repos.DB, repos.Items, engine, scheduler, log, c.UserID)

	return &App{
		config:    c,
		items:     svc,
		engine:    engine,
		scheduler: scheduler,
		checker:   checker,
		log:       log,
		reader:    bufio.NewReader(os.Stdin),
	}, nil
}

func (a *App) setMode(mode Mode) {
	if a.Mode != mode {
		a.Mode = mode
		printlnFn(fmt.Sprintf("Switched to %s mode", mode))
	}
}

// StartOnlineStatusWatcher periodically probes connectivity and flips the
// mode shown in the prompt.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			probeCtx, cancel := context.WithTimeout(context.Background(), a.config.ProbeTimeout)
			online := a.checker.Online(probeCtx)
			cancel()

			if online {
				a.setMode(ModeOnline)
			} else {
				a.setMode(ModeOffline)
			}

		case <-ctx.Done():
			return
		}
	}
}

func (a *App) getStatus() string {
	s := a.config.UserID
	if a.Mode != "" {
		s = s + " " + string(a.Mode)
	}
	return fmt.Sprintf("(%s)", s)
}

// Run re-arms reminders, starts the connectivity watcher and blocks in the
// REPL until the user exits.
func (a *App) Run(ctx context.Context) {
	defer a.scheduler.Close()

	if err := a.items.RestoreReminders(ctx); err != nil {
		a.log.Warn(ctx, "cannot restore reminders", "error", err)
	}

	go a.StartOnlineStatusWatcher(ctx, a.config.ProbeTimeout)

	printlnFn("Welcome to ReceiptKeeper CLI (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)
	runREPL(ctx, a, a.getStatus, scanner)
}
