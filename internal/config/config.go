// Package config loads bridge settings from ~/.config/pixzlo/config.toml and
// PIXZLO_* environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	configName = "config"
	configType = "toml"
	configDir  = ".config/pixzlo"
	envPrefix  = "PIXZLO"
)

const (
	keyBackendURL          = "backend.url"
	keyBackendSessionToken = "backend.session_token"
	keyFrontendURL         = "frontend.url"
	keyFigmaAPIURL         = "figma.api_url"
	keyHTTPTimeout         = "http.timeout"
	keyStoragePath         = "storage.path"
	keyStorageFallbackPath = "storage.fallback_path"
	keyMetadataTTL         = "cache.metadata_ttl"
	keyRenderTTL           = "cache.render_ttl"
	keyProfileTTL          = "cache.profile_ttl"
	keyPopupWidth          = "oauth.popup_width"
	keyPopupHeight         = "oauth.popup_height"
	keyGraceDelay          = "oauth.grace_delay"
	keyBrowserUserDataDir  = "browser.user_data_dir"
	keyBrowserHeadless     = "browser.headless"
	keyLogLevel            = "log.level"
	keyLogFormat           = "log.format"
	keyMetricsListen       = "metrics.listen"
)

type Config struct {
	BackendURL          string
	BackendSessionToken string
	FrontendURL         string
	FigmaAPIURL         string
	HTTPTimeout         time.Duration

	StoragePath         string
	StorageFallbackPath string

	Cache   CacheConfig
	OAuth   OAuthConfig
	Browser BrowserConfig
	Log     LogConfig

	MetricsListen string
}

type CacheConfig struct {
	MetadataTTL time.Duration
	RenderTTL   time.Duration
	ProfileTTL  time.Duration
}

type OAuthConfig struct {
	PopupWidth  int
	PopupHeight int
	GraceDelay  time.Duration
}

type BrowserConfig struct {
	UserDataDir string
	Headless    bool
}

type LogConfig struct {
	Level  string
	Format string
}

// Load reads the optional config file and environment into a Config.
// A missing config file is not an error.
func Load(v *viper.Viper) (Config, error) {
	if v == nil {
		v = viper.New()
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return Config{}, fmt.Errorf("resolve home directory: %w", err)
	}
	baseDir := filepath.Join(homeDir, configDir)

	v.SetConfigName(configName)
	v.SetConfigType(configType)
	v.AddConfigPath(baseDir)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, baseDir)

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := Config{
		BackendURL:          strings.TrimRight(v.GetString(keyBackendURL), "/"),
		BackendSessionToken: v.GetString(keyBackendSessionToken),
		FrontendURL:         strings.TrimRight(v.GetString(keyFrontendURL), "/"),
		FigmaAPIURL:         strings.TrimRight(v.GetString(keyFigmaAPIURL), "/"),
		HTTPTimeout:         v.GetDuration(keyHTTPTimeout),
		StoragePath:         v.GetString(keyStoragePath),
		StorageFallbackPath: v.GetString(keyStorageFallbackPath),
		Cache: CacheConfig{
			MetadataTTL: v.GetDuration(keyMetadataTTL),
			RenderTTL:   v.GetDuration(keyRenderTTL),
			ProfileTTL:  v.GetDuration(keyProfileTTL),
		},
		OAuth: OAuthConfig{
			PopupWidth:  v.GetInt(keyPopupWidth),
			PopupHeight: v.GetInt(keyPopupHeight),
			GraceDelay:  v.GetDuration(keyGraceDelay),
		},
		Browser: BrowserConfig{
			UserDataDir: v.GetString(keyBrowserUserDataDir),
			Headless:    v.GetBool(keyBrowserHeadless),
		},
		Log: LogConfig{
			Level:  v.GetString(keyLogLevel),
			Format: v.GetString(keyLogFormat),
		},
		MetricsListen: v.GetString(keyMetricsListen),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, baseDir string) {
	v.SetDefault(keyBackendURL, "https://api.pixzlo.com")
	v.SetDefault(keyBackendSessionToken, "")
	v.SetDefault(keyFrontendURL, "https://app.pixzlo.com")
	v.SetDefault(keyFigmaAPIURL, "https://api.figma.com")
	v.SetDefault(keyHTTPTimeout, 30*time.Second)
	v.SetDefault(keyStoragePath, filepath.Join(baseDir, "storage.db"))
	v.SetDefault(keyStorageFallbackPath, filepath.Join(baseDir, "storage.toml"))
	v.SetDefault(keyMetadataTTL, 5*time.Minute)
	v.SetDefault(keyRenderTTL, 5*time.Minute)
	v.SetDefault(keyProfileTTL, 15*time.Second)
	v.SetDefault(keyPopupWidth, 600)
	v.SetDefault(keyPopupHeight, 700)
	v.SetDefault(keyGraceDelay, time.Second)
	v.SetDefault(keyBrowserUserDataDir, filepath.Join(baseDir, "browser"))
	v.SetDefault(keyBrowserHeadless, false)
	v.SetDefault(keyLogLevel, "info")
	v.SetDefault(keyLogFormat, "text")
	v.SetDefault(keyMetricsListen, "")
}

func (c Config) Validate() error {
	for name, raw := range map[string]string{
		keyBackendURL:  c.BackendURL,
		keyFrontendURL: c.FrontendURL,
		keyFigmaAPIURL: c.FigmaAPIURL,
	} {
		if err := validateHTTPURL(raw); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}

	for name, ttl := range map[string]time.Duration{
		keyMetadataTTL: c.Cache.MetadataTTL,
		keyRenderTTL:   c.Cache.RenderTTL,
		keyProfileTTL:  c.Cache.ProfileTTL,
		keyHTTPTimeout: c.HTTPTimeout,
	} {
		if ttl <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, ttl)
		}
	}

	if c.OAuth.GraceDelay < 0 {
		return fmt.Errorf("%s must not be negative", keyGraceDelay)
	}
	if c.OAuth.PopupWidth <= 0 || c.OAuth.PopupHeight <= 0 {
		return errors.New("oauth popup dimensions must be positive")
	}
	if strings.TrimSpace(c.StoragePath) == "" {
		return fmt.Errorf("%s is empty", keyStoragePath)
	}

	return nil
}

func validateHTTPURL(raw string) error {
	if raw == "" {
		return errors.New("url is required")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return errors.New("url must use http or https")
	}
	if parsed.Host == "" {
		return errors.New("url host is required")
	}
	return nil
}
