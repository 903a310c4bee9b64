package config

import "time"

// S3Config holds settings for the attachment blob store. Attachments are
// enabled only when Endpoint is non-empty; without it items keep local image
// paths and sync skips attachment migration.
type S3Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
}

// Config holds runtime settings for the ReceiptKeeper CLI.
//
// Fields:
//   - DatabaseDSN: path of the local SQLite database file.
//   - RemoteDSN: Postgres connection string of the remote document store.
//   - UserID: identifier scoping remote documents and tombstones.
//   - ProbeAddr: host:port probed to decide whether the client is online.
//   - ProbeTimeout: how long a single connectivity probe may take.
//   - AttachmentsDir: local directory downloaded attachments are written to.
type Config struct {
	DatabaseDSN    string
	RemoteDSN      string
	UserID         string
	ProbeAddr      string
	ProbeTimeout   time.Duration
	AttachmentsDir string
	S3             S3Config
}

// AttachmentsEnabled reports whether a blob store is configured.
func (c *Config) AttachmentsEnabled() bool {
	return c.S3.Endpoint != ""
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.DatabaseDSN = "receiptkeeper.db"
	c.UserID = "default"
	c.ProbeAddr = "127.0.0.1:5432"
	c.ProbeTimeout = 3 * time.Second
	c.AttachmentsDir = "attachments"
	c.S3.Region = "us-east-1"
	c.S3.Bucket = "receiptkeeper"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
