// Package config loads kiosk and backend configuration from an optional
// YAML file, then applies environment variable overrides and defaults.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultPort        = 8080
	DefaultBackendPort = 8000
	DefaultLogLevel    = "info"
	DefaultTitle       = "life4cut"
	DefaultAssetsDir   = "public"
	DefaultDataDir     = "data"
	DefaultLocalURL    = "http://127.0.0.1:8000"

	DefaultAutoPrintDelay = 1000 * time.Millisecond
	DefaultPrintSettle    = 500 * time.Millisecond
	DefaultUploadTimeout  = 30 * time.Second

	// Environment variable names
	EnvConfigFile     = "SRH_PHOTO_CONFIG"
	EnvPort           = "SRH_PHOTO_PORT"
	EnvHost           = "SRH_PHOTO_HOST"
	EnvLogLevel       = "SRH_PHOTO_LOG_LEVEL"
	EnvTitle          = "SRH_PHOTO_TITLE"
	EnvAssetsDir      = "SRH_PHOTO_ASSETS_DIR"
	EnvDownloadsDir   = "SRH_PHOTO_DOWNLOADS_DIR"
	EnvUploadLocalURL = "SRH_PHOTO_UPLOAD_LOCAL_URL"
	EnvUploadRemote   = "SRH_PHOTO_UPLOAD_REMOTE_URL"
	EnvPrintMode      = "SRH_PHOTO_PRINT_MODE"
	EnvPrintSpoolDir  = "SRH_PHOTO_PRINT_SPOOL_DIR"
	EnvBrowserURL     = "SRH_PHOTO_BROWSER_URL"
	EnvBackendPort    = "SRH_PHOTO_BACKEND_PORT"
	EnvDBPath         = "SRH_PHOTO_DB_PATH"
	EnvMediaDir       = "SRH_PHOTO_MEDIA_DIR"
	EnvPublicURL      = "SRH_PHOTO_PUBLIC_URL"
)

// Print modes.
const (
	PrintModeNone    = "none"
	PrintModeFolder  = "folder"
	PrintModeCommand = "command"
)

// Config is the top-level configuration.
type Config struct {
	Server       ServerConfig  `yaml:"server"`
	LogLevel     string        `yaml:"log_level"`
	Title        string        `yaml:"title"`
	AssetsDir    string        `yaml:"assets_dir"`
	DownloadsDir string        `yaml:"downloads_dir"`
	Upload       UploadConfig  `yaml:"upload"`
	Print        PrintConfig   `yaml:"print"`
	Browser      BrowserConfig `yaml:"browser"`
	Backend      BackendConfig `yaml:"backend"`
}

// ServerConfig controls the kiosk HTTP server.
type ServerConfig struct {
	Port int `yaml:"port"`
	// Host is the hostname the kiosk front-end is served under; it picks
	// the upload endpoint.
	Host string `yaml:"host"`
}

// UploadConfig lists the upload endpoints per environment.
type UploadConfig struct {
	LocalURL  string        `yaml:"local_url"`
	RemoteURL string        `yaml:"remote_url"`
	Timeout   time.Duration `yaml:"timeout"`
}

// PrintConfig controls the print station.
type PrintConfig struct {
	Mode     string   `yaml:"mode"` // none | folder | command
	Command  string   `yaml:"command"`
	Args     []string `yaml:"args"`
	SpoolDir string   `yaml:"spool_dir"`
	// Settle and AutoPrintDelay keep an explicit 0; only unset values
	// take the defaults.
	Settle         *time.Duration `yaml:"settle"`
	AutoPrintDelay *time.Duration `yaml:"auto_print_delay"`
	AutoPrint      *bool          `yaml:"auto_print"`
}

// BrowserConfig controls the headless Chrome used for DOM snapshots.
type BrowserConfig struct {
	Enabled   bool   `yaml:"enabled"`
	RemoteURL string `yaml:"remote_url"`
}

// BackendConfig controls the photo backend service.
type BackendConfig struct {
	Port      int    `yaml:"port"`
	DBPath    string `yaml:"db_path"`
	MediaDir  string `yaml:"media_dir"`
	// PublicURL is what QR codes point at. Empty = derived per request.
	PublicURL string `yaml:"public_url"`
}

// Load reads path (when non-empty, or $SRH_PHOTO_CONFIG), applies
// environment overrides and defaults, and validates the result.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if p := os.Getenv(EnvPort); p != "" {
		port, err := parsePort(EnvPort, p)
		if err != nil {
			return err
		}
		c.Server.Port = port
	}
	if p := os.Getenv(EnvBackendPort); p != "" {
		port, err := parsePort(EnvBackendPort, p)
		if err != nil {
			return err
		}
		c.Backend.Port = port
	}
	if v := os.Getenv(EnvBrowserURL); v != "" {
		c.Browser.RemoteURL = v
		c.Browser.Enabled = true
	}

	overrides := map[string]*string{
		EnvHost:           &c.Server.Host,
		EnvLogLevel:       &c.LogLevel,
		EnvTitle:          &c.Title,
		EnvAssetsDir:      &c.AssetsDir,
		EnvDownloadsDir:   &c.DownloadsDir,
		EnvUploadLocalURL: &c.Upload.LocalURL,
		EnvUploadRemote:   &c.Upload.RemoteURL,
		EnvPrintMode:      &c.Print.Mode,
		EnvPrintSpoolDir:  &c.Print.SpoolDir,
		EnvDBPath:         &c.Backend.DBPath,
		EnvMediaDir:       &c.Backend.MediaDir,
		EnvPublicURL:      &c.Backend.PublicURL,
	}
	for env, dst := range overrides {
		if v := os.Getenv(env); v != "" {
			*dst = v
		}
	}
	return nil
}

func parsePort(env, v string) (int, error) {
	port, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", env, err)
	}
	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("invalid %s: port must be between 1 and 65535", env)
	}
	return port, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.Host == "" {
		c.Server.Host = "localhost"
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.Title == "" {
		c.Title = DefaultTitle
	}
	if c.AssetsDir == "" {
		c.AssetsDir = DefaultAssetsDir
	}
	if c.DownloadsDir == "" {
		c.DownloadsDir = filepath.Join(DefaultDataDir, "downloads")
	}
	if c.Upload.LocalURL == "" {
		c.Upload.LocalURL = DefaultLocalURL
	}
	if c.Upload.Timeout <= 0 {
		c.Upload.Timeout = DefaultUploadTimeout
	}
	if c.Print.Mode == "" {
		c.Print.Mode = PrintModeFolder
	}
	if c.Print.SpoolDir == "" {
		c.Print.SpoolDir = filepath.Join(DefaultDataDir, "spool")
	}
	if c.Print.Command == "" {
		c.Print.Command = "lp"
	}
	if c.Print.Settle == nil {
		d := DefaultPrintSettle
		c.Print.Settle = &d
	}
	if c.Print.AutoPrintDelay == nil {
		d := DefaultAutoPrintDelay
		c.Print.AutoPrintDelay = &d
	}
	if c.Print.AutoPrint == nil {
		on := true
		c.Print.AutoPrint = &on
	}
	if c.Backend.Port == 0 {
		c.Backend.Port = DefaultBackendPort
	}
	if c.Backend.DBPath == "" {
		c.Backend.DBPath = filepath.Join(DefaultDataDir, "photo.db")
	}
	if c.Backend.MediaDir == "" {
		c.Backend.MediaDir = filepath.Join(DefaultDataDir, "media")
	}
	c.Upload.LocalURL = strings.TrimRight(c.Upload.LocalURL, "/")
	c.Upload.RemoteURL = strings.TrimRight(c.Upload.RemoteURL, "/")
	c.Backend.PublicURL = strings.TrimRight(c.Backend.PublicURL, "/")
}

// Validate checks values that defaults cannot repair.
func (c *Config) Validate() error {
	switch c.Print.Mode {
	case PrintModeNone, PrintModeFolder, PrintModeCommand:
	default:
		return fmt.Errorf("invalid print mode %q", c.Print.Mode)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return errors.New("invalid server port")
	}
	if c.Backend.Port < 1 || c.Backend.Port > 65535 {
		return errors.New("invalid backend port")
	}
	if c.PrintSettle() < 0 || c.AutoPrintDelay() < 0 {
		return errors.New("print delays must not be negative")
	}
	return nil
}

// PrintSettle is the pause between loading the print document and
// submitting it.
func (c *Config) PrintSettle() time.Duration {
	if c.Print.Settle == nil {
		return DefaultPrintSettle
	}
	return *c.Print.Settle
}

// AutoPrintDelay is the pause before a session's automatic print.
func (c *Config) AutoPrintDelay() time.Duration {
	if c.Print.AutoPrintDelay == nil {
		return DefaultAutoPrintDelay
	}
	return *c.Print.AutoPrintDelay
}

// AutoPrintEnabled reports whether sessions print automatically.
func (c *Config) AutoPrintEnabled() bool {
	return c.Print.AutoPrint == nil || *c.Print.AutoPrint
}

// UploadBaseURL returns the upload endpoint base for the configured host.
func (c *Config) UploadBaseURL() string {
	return SelectUploadBaseURL(c.Server.Host, c.Upload.LocalURL, c.Upload.RemoteURL)
}

// SelectUploadBaseURL picks localURL for loopback hosts and remoteURL
// otherwise.
func SelectUploadBaseURL(host, localURL, remoteURL string) string {
	if IsLocalHost(host) {
		return localURL
	}
	return remoteURL
}

// IsLocalHost reports whether host (optionally with a port) is loopback.
func IsLocalHost(host string) bool {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.Trim(strings.ToLower(host), "[]")
	switch host {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
)
