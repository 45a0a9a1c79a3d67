// Package config loads lexday.yaml, applies environment overrides and
// validates the result.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/acoeffic/readon/internal/analyzer"
)

type Config struct {
	Render   Render   `yaml:"render"`
	Server   Server   `yaml:"server"`
	Database Database `yaml:"database"`
	Storage  Storage  `yaml:"storage"`
	OpenAI   OpenAI   `yaml:"openai"`
	Billing  Billing  `yaml:"billing"`
	Notify   Notify   `yaml:"notify"`
	Kindle   Kindle   `yaml:"kindle"`
	Widget   Widget   `yaml:"widget"`
	Dev      Dev      `yaml:"dev"`
}

type Render struct {
	Width     int    `yaml:"width"`
	Height    int    `yaml:"height"`
	FPS       int    `yaml:"fps"`
	Workers   int    `yaml:"workers"`
	Encoder   string `yaml:"encoder"`
	Quality   int    `yaml:"quality"`
	AudioPath string `yaml:"audio_path"`
	OutputDir string `yaml:"output_dir"`
	PropsDir  string `yaml:"props_dir"`
	ShowStats bool   `yaml:"show_stats"`
	Debug     bool   `yaml:"debug"`
	Detector  string `yaml:"detector"` // cover palette: palette, none

	FontCacheDir    string        `yaml:"font_cache_dir"`
	FontTimeout     time.Duration `yaml:"font_timeout"`
	CoverTimeout    time.Duration `yaml:"cover_timeout"`
	ResourceTimeout time.Duration `yaml:"resource_timeout"`

	BuildVersion string `yaml:"-"`
}

type Server struct {
	Addr           string        `yaml:"addr"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	PublicBaseURL  string        `yaml:"public_base_url"`
}

type Database struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type Storage struct {
	Root      string `yaml:"root"`
	PublicURL string `yaml:"public_url"`
	Bucket    string `yaml:"bucket"`
}

type OpenAI struct {
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

type Billing struct {
	WebhookSecret string `yaml:"webhook_secret"`
}

type Notify struct {
	Transport   string `yaml:"transport"`
	FCMKey      string `yaml:"fcm_server_key"`
	FCMEndpoint string `yaml:"fcm_endpoint"`
	MQTTBroker  string `yaml:"mqtt_broker"`
	MQTTUser    string `yaml:"mqtt_user"`
	MQTTPass    string `yaml:"mqtt_password"`
	TopicPrefix string `yaml:"topic_prefix"`
}

type Kindle struct {
	NotebookURL string        `yaml:"notebook_url"`
	Headless    bool          `yaml:"headless"`
	UserDataDir string        `yaml:"user_data_dir"`
	BookLimit   int           `yaml:"book_limit"`
	WaitTimeout time.Duration `yaml:"wait_timeout"`
	SettleDelay time.Duration `yaml:"settle_delay"`
}

type Widget struct {
	DefaultsPath string `yaml:"defaults_path"`
}

type Dev struct {
	ForcePremium bool `yaml:"force_premium"`
}

const (
	DriverModernc = "sqlite"
	DriverCgo     = "sqlite3"

	TransportFCM  = "fcm"
	TransportMQTT = "mqtt"
	TransportLog  = "log"
)

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Render: Render{
			Width:           1080,
			Height:          1920,
			FPS:             30,
			Quality:         23,
			OutputDir:       "out",
			PropsDir:        "props",
			Detector:        "palette",
			FontTimeout:     15 * time.Second,
			CoverTimeout:    10 * time.Second,
			ResourceTimeout: 30 * time.Second,
		},
		Server: Server{
			Addr:           ":8080",
			RequestTimeout: 60 * time.Second,
		},
		Database: Database{Driver: DriverModernc, DSN: "lexday.db"},
		Storage:  Storage{Root: "storage", PublicURL: "/storage/v1/object/public", Bucket: "badge-cards"},
		OpenAI:   OpenAI{Model: "gpt-4o-mini", MaxTokens: 1000, Temperature: 0.3},
		Notify:   Notify{Transport: TransportLog, FCMEndpoint: "https://fcm.googleapis.com/fcm/send", TopicPrefix: "lexday/users"},
		Kindle: Kindle{
			NotebookURL: "https://read.amazon.com/notebook",
			Headless:    true,
			BookLimit:   10,
			WaitTimeout: 10 * time.Second,
			SettleDelay: 3 * time.Second,
		},
		Widget: Widget{DefaultsPath: "widget.yaml"},
	}
}

// Load reads path over the defaults, then applies environment overrides.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	cfg.ApplyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overlays the supported environment variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	set("OPENAI_API_KEY", &c.OpenAI.APIKey)
	set("REVENUECAT_WEBHOOK_SECRET", &c.Billing.WebhookSecret)
	set("FCM_SERVER_KEY", &c.Notify.FCMKey)
	set("LEXDAY_DB_DSN", &c.Database.DSN)
	set("LEXDAY_ADDR", &c.Server.Addr)
	if v, ok := lookup("DEV_FORCE_PREMIUM"); ok {
		c.Dev.ForcePremium = strings.EqualFold(strings.TrimSpace(v), "true")
	}
}

func (c *Config) Validate() error {
	var errs []error
	if c.Render.Width <= 0 || c.Render.Height <= 0 {
		errs = append(errs, fmt.Errorf("render size must be positive, got %dx%d", c.Render.Width, c.Render.Height))
	}
	if c.Render.FPS <= 0 {
		errs = append(errs, fmt.Errorf("render fps must be positive, got %d", c.Render.FPS))
	}
	if c.Render.Workers < 0 {
		errs = append(errs, fmt.Errorf("render workers must not be negative, got %d", c.Render.Workers))
	}
	if _, err := analyzer.NewDetector(c.Render.Detector); err != nil {
		errs = append(errs, fmt.Errorf("render detector: %w", err))
	}
	switch c.Database.Driver {
	case DriverModernc, DriverCgo:
	default:
		errs = append(errs, fmt.Errorf("unknown database driver %q", c.Database.Driver))
	}
	switch c.Notify.Transport {
	case TransportFCM, TransportMQTT, TransportLog:
	default:
		errs = append(errs, fmt.Errorf("unknown notify transport %q", c.Notify.Transport))
	}
	return errors.Join(errs...)
}
