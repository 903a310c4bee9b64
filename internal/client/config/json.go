package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/receiptkeeper/internal/flagx"
	"github.com/dmitrijs2005/receiptkeeper/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
// It relies on timex.Duration so JSON can specify intervals either as
// strings like "3s" or as integer nanoseconds. After parsing, values
// are copied into the runtime Config (which uses time.Duration).
type JsonConfig struct {
	DatabaseDSN    string         `json:"database_dsn"`
	RemoteDSN      string         `json:"remote_dsn"`
	UserID         string         `json:"user_id"`
	ProbeAddr      string         `json:"probe_addr"`
	ProbeTimeout   timex.Duration `json:"probe_timeout"`
	AttachmentsDir string         `json:"attachments_dir"`

	S3Endpoint  string `json:"s3_endpoint"`
	S3Region    string `json:"s3_region"`
	S3Bucket    string `json:"s3_bucket"`
	S3AccessKey string `json:"s3_access_key"`
	S3SecretKey string `json:"s3_secret_key"`
}

// parseJson overlays Config with values loaded from a JSON file.
//
// Lookup order for the JSON file path:
//  1. Command-line flags (-c or -config) via flagx.JsonConfigFlags().
//  2. If empty, no JSON is loaded and the function returns.
//
// Behavior:
//   - Reads and unmarshals the JSON into JsonConfig.
//   - Copies set fields into the provided Config, leaving absent ones at
//     their current values.
//   - Panics on read or unmarshal errors (caller should recover if desired).
//
// Intended usage is: defaults -> parseJson -> parseFlags, where later stages
// override earlier ones.
func parseJson(cfg *Config) {
	// Resolve file path from flags.
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	overlay(&cfg.DatabaseDSN, jc.DatabaseDSN)
	overlay(&cfg.RemoteDSN, jc.RemoteDSN)
	overlay(&cfg.UserID, jc.UserID)
	overlay(&cfg.ProbeAddr, jc.ProbeAddr)
	overlay(&cfg.AttachmentsDir, jc.AttachmentsDir)
	overlay(&cfg.S3.Endpoint, jc.S3Endpoint)
	overlay(&cfg.S3.Region, jc.S3Region)
	overlay(&cfg.S3.Bucket, jc.S3Bucket)
	overlay(&cfg.S3.AccessKey, jc.S3AccessKey)
	overlay(&cfg.S3.SecretKey, jc.S3SecretKey)
	if jc.ProbeTimeout.Duration != 0 {
		cfg.ProbeTimeout = time.Duration(jc.ProbeTimeout.Duration)
	}
}

func overlay(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
