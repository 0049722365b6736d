// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

type DatabaseConfig struct {
	Driver      string `yaml:"driver"`
	Filename    string `yaml:"filename"`
	BusyTimeout int    `yaml:"busy_timeout_ms"`
}

type BookingConfig struct {
	Timezone        string `yaml:"timezone"`
	OpensAt         string `yaml:"opens_at"`
	ClosesAt        string `yaml:"closes_at"`
	MinLeadDays     int    `yaml:"min_lead_days"`
	CancelLeadDays  int    `yaml:"cancel_lead_days"`
	DailyCapMinutes int    `yaml:"daily_cap_minutes"`
}

type SchedulerConfig struct {
	CompletionCron string `yaml:"completion_cron"`
	ArchivalCron   string `yaml:"archival_cron"`
	ReminderCron   string `yaml:"reminder_cron"`
	JobTimeout     string `yaml:"job_timeout"`
}

type NotificationsConfig struct {
	Drivers []string `yaml:"drivers"`
	SES     struct {
		Region          string `yaml:"region"`
		Sender          string `yaml:"sender"`
		AccessKeyID     string `yaml:"-"` // Loaded from environment
		SecretAccessKey string `yaml:"-"` // Loaded from environment
	} `yaml:"ses"`
	AMQP struct {
		URL      string `yaml:"-"` // Loaded from environment
		Exchange string `yaml:"exchange"`
	} `yaml:"amqp"`
}

type Config struct {
	App struct {
		Name        string `yaml:"name"`
		Environment string `yaml:"environment"`
		Port        int    `yaml:"port"`
		BaseURL     string `yaml:"base_url"`
		TrustProxy  bool   `yaml:"trust_proxy"`
		SecretKey   string `yaml:"-"` // Loaded from environment
	} `yaml:"app"`

	Database      DatabaseConfig      `yaml:"database"`
	Booking       BookingConfig       `yaml:"booking"`
	Scheduler     SchedulerConfig     `yaml:"scheduler"`
	Notifications NotificationsConfig `yaml:"notifications"`
}

// Load loads both .env and yaml configuration
func Load(configPath string) (*Config, error) {
	// Load .env file if it exists
	envPath := filepath.Join(filepath.Dir(configPath), ".env")
	if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	// Load sensitive values from environment
	cfg.App.SecretKey = os.Getenv("APP_SECRET_KEY")
	cfg.Notifications.SES.AccessKeyID = os.Getenv("SES_ACCESS_KEY_ID")
	cfg.Notifications.SES.SecretAccessKey = os.Getenv("SES_SECRET_ACCESS_KEY")
	cfg.Notifications.AMQP.URL = os.Getenv("AMQP_URL")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Parse decodes YAML and fills defaults. It does not validate.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Database.BusyTimeout == 0 {
		c.Database.BusyTimeout = 5000
	}
	if c.Booking.Timezone == "" {
		c.Booking.Timezone = "America/Santiago"
	}
	if c.Booking.OpensAt == "" {
		c.Booking.OpensAt = "08:00"
	}
	if c.Booking.ClosesAt == "" {
		c.Booking.ClosesAt = "20:00"
	}
	if c.Booking.MinLeadDays == 0 {
		c.Booking.MinLeadDays = 7
	}
	if c.Booking.CancelLeadDays == 0 {
		c.Booking.CancelLeadDays = 7
	}
	if c.Booking.DailyCapMinutes == 0 {
		c.Booking.DailyCapMinutes = 180
	}
	if c.Scheduler.CompletionCron == "" {
		c.Scheduler.CompletionCron = "0 * * * *"
	}
	if c.Scheduler.ArchivalCron == "" {
		c.Scheduler.ArchivalCron = "0 0 * * *"
	}
	if c.Scheduler.ReminderCron == "" {
		c.Scheduler.ReminderCron = "0 9 * * *"
	}
	if c.Scheduler.JobTimeout == "" {
		c.Scheduler.JobTimeout = "2m"
	}
	if len(c.Notifications.Drivers) == 0 {
		c.Notifications.Drivers = []string{"log"}
	}
	if c.Notifications.AMQP.Exchange == "" {
		c.Notifications.AMQP.Exchange = "padelicious.reservations"
	}
}

// JobTimeout returns the per-run deadline for lifecycle jobs.
func (c *Config) JobTimeout() time.Duration {
	d, err := time.ParseDuration(c.Scheduler.JobTimeout)
	if err != nil || d <= 0 {
		return 2 * time.Minute
	}
	return d
}

func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app name is required")
	}
	if c.App.Port == 0 {
		return fmt.Errorf("app port is required")
	}
	if c.App.SecretKey == "" && c.App.Environment != "development" {
		return fmt.Errorf("APP_SECRET_KEY is required outside development")
	}
	if c.Database.Driver == "" {
		return fmt.Errorf("database driver is required")
	}

	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Filename == "" {
			return fmt.Errorf("database filename is required for sqlite")
		}
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	if _, err := time.LoadLocation(c.Booking.Timezone); err != nil {
		return fmt.Errorf("booking timezone %q: %w", c.Booking.Timezone, err)
	}
	if _, err := time.Parse("15:04", c.Booking.OpensAt); err != nil {
		return fmt.Errorf("booking opens_at must be HH:MM")
	}
	if _, err := time.Parse("15:04", c.Booking.ClosesAt); err != nil {
		return fmt.Errorf("booking closes_at must be HH:MM")
	}
	if c.Booking.OpensAt >= c.Booking.ClosesAt {
		return fmt.Errorf("booking opens_at must be before closes_at")
	}

	for name, expr := range map[string]string{
		"completion_cron": c.Scheduler.CompletionCron,
		"archival_cron":   c.Scheduler.ArchivalCron,
		"reminder_cron":   c.Scheduler.ReminderCron,
	} {
		if _, err := cron.ParseStandard(expr); err != nil {
			return fmt.Errorf("scheduler %s %q: %w", name, expr, err)
		}
	}

	for _, driver := range c.Notifications.Drivers {
		switch strings.TrimSpace(driver) {
		case "log":
		case "ses":
			if c.Notifications.SES.Region == "" || c.Notifications.SES.Sender == "" {
				return fmt.Errorf("ses notifications require region and sender")
			}
		case "amqp":
			if c.Notifications.AMQP.URL == "" {
				return fmt.Errorf("amqp notifications require AMQP_URL")
			}
		default:
			return fmt.Errorf("unsupported notification driver: %s", driver)
		}
	}

	return nil
}
