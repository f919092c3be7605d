package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

var configLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	configLogger = l
}

// EnvPrefix prefixes every environment override, e.g. POSTLY_DATABASE_PATH.
const EnvPrefix = "POSTLY_"

// Config represents the complete configuration structure
type Config struct {
	Site      SiteConfig      `yaml:"site"`
	Server    ServerConfig    `yaml:"server"`
	Theme     ThemeConfig     `yaml:"theme"`
	Logging   LoggingConfig   `yaml:"logging"`
	Content   ContentConfig   `yaml:"content"`
	Database  DatabaseConfig  `yaml:"database"`
	Drafts    DraftsConfig    `yaml:"drafts"`
	Redis     RedisConfig     `yaml:"redis"`
	Images    ImagesConfig    `yaml:"images"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`
	CORS      CORSConfig      `yaml:"cors"`
}

type LoggingConfig struct {
	Level string `yaml:"level" default:"info"`
}

type SiteConfig struct {
	Name        string `yaml:"name" default:"Postly"`
	Description string `yaml:"description" default:"A small blog with a rich text composer"`
	Tagline     string `yaml:"tagline" default:"Write something worth reading"`
}

type ServerConfig struct {
	Host            string `yaml:"host" default:"0.0.0.0"`
	Port            string `yaml:"port" default:"12600"`
	ShutdownTimeout int    `yaml:"shutdown_timeout_seconds" default:"10"`
}

func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

type ThemeConfig struct {
	Default            string       `yaml:"default" default:"dark"`
	AllowSwitching     bool         `yaml:"allow_switching" default:"true"`
	SyntaxHighlighting SyntaxConfig `yaml:"syntax_highlighting"`
}

type SyntaxConfig struct {
	DefaultDark  string `yaml:"default_dark" default:"gruvbox"`
	DefaultLight string `yaml:"default_light" default:"catppuccin-latte"`
}

type ContentConfig struct {
	PostsPerPage       int    `yaml:"posts_per_page" default:"10"`
	WordsPerMinute     int    `yaml:"words_per_minute" default:"200"`
	MarkdownRenderer   string `yaml:"markdown_renderer" default:"mmark"`
	RenderCacheMinutes int    `yaml:"render_cache_minutes" default:"30"`
	PollInterval       int    `yaml:"poll_interval_seconds" default:"10"`
}

type DatabaseConfig struct {
	Path string `yaml:"path" default:"./postly.db"`
}

type DraftsConfig struct {
	Store          string `yaml:"store" default:"sqlite"`
	Key            string `yaml:"key" default:"postly-draft"`
	DebounceMs     int    `yaml:"debounce_ms" default:"3000"`
	FreshnessHours int    `yaml:"freshness_hours" default:"24"`
	Compression    string `yaml:"compression" default:"zstd"`
	Dir            string `yaml:"dir" default:"./drafts"`
}

func (d DraftsConfig) Delay() time.Duration {
	return time.Duration(d.DebounceMs) * time.Millisecond
}

func (d DraftsConfig) Freshness() time.Duration {
	return time.Duration(d.FreshnessHours) * time.Hour
}

type RedisConfig struct {
	Addr     string `yaml:"addr" default:"localhost:6379"`
	Password string `yaml:"password" default:""`
	DB       int    `yaml:"db" default:"0"`
}

type ImagesConfig struct {
	Backend         string   `yaml:"backend" default:"fs"`
	Dir             string   `yaml:"dir" default:"./uploads"`
	MaxBytes        int      `yaml:"max_bytes" default:"5242880"`
	AllowedTypes    []string `yaml:"allowed_types" default:"image/jpeg,image/png,image/gif,image/webp"`
	Bucket          string   `yaml:"bucket" default:""`
	Endpoint        string   `yaml:"endpoint" default:""`
	Region          string   `yaml:"region" default:"auto"`
	PublicURL       string   `yaml:"public_url" default:""`
	PathStyle       bool     `yaml:"path_style" default:"false"`
	AccessKeyID     string   `yaml:"access_key_id" default:""`
	AccessKeySecret string   `yaml:"access_key_secret" default:""`
}

type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled" default:"true"`
	RequestsPerSecond float64 `yaml:"requests_per_second" default:"2"`
	Burst             int     `yaml:"burst" default:"10"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" default:"*"`
}

var AppConfig *Config

// Default returns a config with every default applied and nothing else.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func LoadConfig(path string) error {
	config := Default()

	// Try to read and parse the config file
	data, err := os.ReadFile(path)
	if err != nil {
		// If file doesn't exist, just use defaults
		configLogger.Info().Str("path", path).Msg("Config file not found, using defaults")
	} else if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := applyEnv(config, os.LookupEnv); err != nil {
		return err
	}

	AppConfig = config
	return nil
}

type envOverride struct {
	name  string
	apply func(c *Config, v string) error
}

func str(dst func(c *Config) *string) func(c *Config, v string) error {
	return func(c *Config, v string) error {
		*dst(c) = v
		return nil
	}
}

var envOverrides = []envOverride{
	{"DATABASE_PATH", str(func(c *Config) *string { return &c.Database.Path })},
	{"LOG_LEVEL", str(func(c *Config) *string { return &c.Logging.Level })},
	{"PORT", str(func(c *Config) *string { return &c.Server.Port })},
	{"DRAFTS_STORE", str(func(c *Config) *string { return &c.Drafts.Store })},
	{"REDIS_ADDR", str(func(c *Config) *string { return &c.Redis.Addr })},
	{"REDIS_PASSWORD", str(func(c *Config) *string { return &c.Redis.Password })},
	{"IMAGES_BACKEND", str(func(c *Config) *string { return &c.Images.Backend })},
	{"S3_BUCKET", str(func(c *Config) *string { return &c.Images.Bucket })},
	{"S3_ENDPOINT", str(func(c *Config) *string { return &c.Images.Endpoint })},
	{"S3_PUBLIC_URL", str(func(c *Config) *string { return &c.Images.PublicURL })},
	{"S3_ACCESS_KEY_ID", str(func(c *Config) *string { return &c.Images.AccessKeyID })},
	{"S3_ACCESS_KEY_SECRET", str(func(c *Config) *string { return &c.Images.AccessKeySecret })},
	{"REDIS_DB", func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %sREDIS_DB %q: %w", EnvPrefix, v, err)
		}
		c.Redis.DB = n
		return nil
	}},
}

// applyEnv overlays POSTLY_* variables found through lookup.
func applyEnv(c *Config, lookup func(string) (string, bool)) error {
	for _, o := range envOverrides {
		v, ok := lookup(EnvPrefix + o.name)
		if !ok || v == "" {
			continue
		}
		if err := o.apply(c, v); err != nil {
			return err
		}
		configLogger.Debug().Str("variable", EnvPrefix+o.name).Msg("Applied environment override")
	}
	return nil
}

func ApplyDefaults(config interface{}) {
	applyDefaults(config)
}

func applyDefaults(config interface{}) {
	v := reflect.ValueOf(config)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}

	if v.Kind() != reflect.Struct {
		return
	}

	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		if !field.IsValid() || !field.CanSet() {
			continue
		}

		// Recursively apply defaults to nested structs
		if field.Kind() == reflect.Struct {
			applyDefaults(field.Addr().Interface())
			continue
		}

		defaultValue := fieldType.Tag.Get("default")
		if defaultValue == "" {
			continue
		}

		switch field.Kind() {
		case reflect.String:
			field.SetString(defaultValue)
		case reflect.Bool:
			if val, err := strconv.ParseBool(defaultValue); err == nil {
				field.SetBool(val)
			}
		case reflect.Int, reflect.Int64:
			if val, err := strconv.ParseInt(defaultValue, 10, 64); err == nil {
				field.SetInt(val)
			}
		case reflect.Float64:
			if val, err := strconv.ParseFloat(defaultValue, 64); err == nil {
				field.SetFloat(val)
			}
		case reflect.Slice:
			if field.Len() == 0 && field.Type().Elem().Kind() == reflect.String {
				parts := strings.Split(defaultValue, ",")
				slice := reflect.MakeSlice(field.Type(), len(parts), len(parts))
				for j, part := range parts {
					slice.Index(j).SetString(strings.TrimSpace(part))
				}
				field.Set(slice)
			}
		default:
			configLogger.Warn().
				Str("field_name", fieldType.Name).
				Str("field_type", field.Kind().String()).
				Msg("Unsupported field type for default value")
		}
	}
}
