package cfg

import (
	"cmp"
	"fmt"
	"net/url"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Database configuration
	DBDriver   string `long:"db-driver" env:"DB_DRIVER" default:"sqlite" choice:"sqlite" choice:"postgres" description:"Database driver"`
	DBPath     string `long:"db-path" env:"DB_PATH" default:"./data/forum-monitor.db" description:"SQLite database file (sqlite driver only)"`
	DBHost     string `long:"db-host" env:"DB_HOST" default:"localhost" description:"Database host (postgres driver only)"`
	DBPort     string `long:"db-port" env:"DB_PORT" default:"5432" description:"Database port (postgres driver only)"`
	DBUser     string `long:"db-user" env:"DB_USER" default:"monitor" description:"Database user (postgres driver only)"`
	DBPassword string `long:"db-password" env:"DB_PASSWORD" description:"Database password (postgres driver only)"`
	DBName     string `long:"db-name" env:"DB_NAME" default:"forum_monitor" description:"Database name (postgres driver only)"`
	DBSSLMode  string `long:"db-sslmode" env:"DB_SSLMODE" default:"disable" description:"Postgres sslmode"`

	// Application configuration
	TopicsDir         string `long:"topics-dir" env:"TOPICS_DIR" default:"./topics" description:"Directory containing topic seed files (*.yml)"`
	Port              string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	BaseUrl           string `long:"base-url" env:"BASE_URL" description:"Public base URL for the service (e.g., https://monitor.example.com)"`
	WorkerCount       int    `long:"worker-count" env:"WORKER_COUNT" default:"1" description:"Number of background workers"`
	SchedulerInterval int    `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"300" description:"Interval between ingest runs in seconds"`
	FetchTimeout      int    `long:"fetch-timeout" env:"FETCH_TIMEOUT" default:"15" description:"Feed fetch timeout in seconds"`
	MaxFeedItems      int    `long:"max-feed-items" env:"MAX_FEED_ITEMS" default:"50" description:"Number of posts rendered in topic RSS exports"`

	// Logging
	LogFile       string `long:"log-file" env:"LOG_FILE" description:"Also write logs to this file, rotated by size"`
	LogMaxSize    int    `long:"log-max-size" env:"LOG_MAX_SIZE" default:"64" description:"Log file size in MB before rotation"`
	LogMaxBackups int    `long:"log-max-backups" env:"LOG_MAX_BACKUPS" default:"3" description:"Rotated log files to keep"`
	LogMaxAge     int    `long:"log-max-age" env:"LOG_MAX_AGE" default:"7" description:"Days to keep rotated log files"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"TechForumMonitor/0.1 (+https://example.com)" description:"User agent string for feed requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, Asia/Shanghai)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

// Load parses command-line arguments and environment variables.
// It returns nil, nil when help was requested.
func Load(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBDriver:          raw.DBDriver,
		DBPath:            raw.DBPath,
		DBHost:            raw.DBHost,
		DBPort:            raw.DBPort,
		DBUser:            raw.DBUser,
		DBPassword:        raw.DBPassword,
		DBName:            raw.DBName,
		DBSSLMode:         raw.DBSSLMode,
		TopicsDir:         raw.TopicsDir,
		Port:              raw.Port,
		BaseUrl:           raw.BaseUrl,
		WorkerCount:       raw.WorkerCount,
		SchedulerInterval: raw.SchedulerInterval,
		FetchTimeout:      raw.FetchTimeout,
		MaxFeedItems:      raw.MaxFeedItems,
		LogFile:           raw.LogFile,
		LogMaxSize:        raw.LogMaxSize,
		LogMaxBackups:     raw.LogMaxBackups,
		LogMaxAge:         raw.LogMaxAge,
		UserAgent:         raw.UserAgent,
		Timezone:          raw.Timezone,
		Debug:             raw.Debug,
		Version:           GetVersion(),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	return cfg, nil
}

// DSN returns the connection string for the configured driver.
func (c *Cfg) DSN() string {
	switch c.DBDriver {
	case DriverPostgres:
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(c.DBUser, c.DBPassword),
			Host:     c.DBHost + ":" + c.DBPort,
			Path:     c.DBName,
			RawQuery: "sslmode=" + url.QueryEscape(c.DBSSLMode),
		}
		return u.String()
	default:
		return c.DBPath
	}
}

func (c *Cfg) validate() error {
	positiveFields := map[string]int{
		"worker count":       c.WorkerCount,
		"scheduler interval": c.SchedulerInterval,
		"fetch timeout":      c.FetchTimeout,
		"max feed items":     c.MaxFeedItems,
	}

	for fieldName, fieldValue := range positiveFields {
		if fieldValue <= 0 {
			return fmt.Errorf("%s must be positive", fieldName)
		}
	}

	if c.DBDriver == DriverPostgres && c.DBPassword == "" {
		return fmt.Errorf("db password is required for the postgres driver")
	}

	return nil
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
