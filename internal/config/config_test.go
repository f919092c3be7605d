package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf(ErrWriteConfigContentFmt, err)
	}
	return path
}

func TestApplyDefaults(t *testing.T) {
	t.Run("Config struct defaults", func(t *testing.T) {
		config := Default()

		if config.Site.Name != "Postly" {
			t.Errorf("Expected site name 'Postly', got %q", config.Site.Name)
		}
		if config.Server.Addr() != "0.0.0.0:12600" {
			t.Errorf("Expected addr '0.0.0.0:12600', got %q", config.Server.Addr())
		}
		if config.Theme.Default != "dark" {
			t.Errorf("Expected theme 'dark', got %q", config.Theme.Default)
		}
		if config.Theme.SyntaxHighlighting.DefaultDark != DefaultDarkSyntaxTheme {
			t.Errorf("Expected dark syntax theme %q, got %q", DefaultDarkSyntaxTheme, config.Theme.SyntaxHighlighting.DefaultDark)
		}
		if config.Content.PostsPerPage != 10 {
			t.Errorf("Expected posts per page 10, got %d", config.Content.PostsPerPage)
		}
		if config.Content.MarkdownRenderer != RendererMmark {
			t.Errorf("Expected renderer %q, got %q", RendererMmark, config.Content.MarkdownRenderer)
		}
		if config.Drafts.Key != "postly-draft" {
			t.Errorf("Expected draft key 'postly-draft', got %q", config.Drafts.Key)
		}
		if config.Drafts.Delay() != 3*time.Second {
			t.Errorf("Expected 3s debounce, got %v", config.Drafts.Delay())
		}
		if config.Drafts.Freshness() != 24*time.Hour {
			t.Errorf("Expected 24h freshness, got %v", config.Drafts.Freshness())
		}
		if config.Images.MaxBytes != 5<<20 {
			t.Errorf("Expected 5 MiB image limit, got %d", config.Images.MaxBytes)
		}
		expectedTypes := []string{"image/jpeg", "image/png", "image/gif", "image/webp"}
		if !reflect.DeepEqual(config.Images.AllowedTypes, expectedTypes) {
			t.Errorf("Expected allowed types %v, got %v", expectedTypes, config.Images.AllowedTypes)
		}
		if config.RateLimit.RequestsPerSecond != 2 || config.RateLimit.Burst != 10 {
			t.Errorf("Expected 2 rps burst 10, got %v burst %d", config.RateLimit.RequestsPerSecond, config.RateLimit.Burst)
		}
		if !reflect.DeepEqual(config.CORS.AllowedOrigins, []string{"*"}) {
			t.Errorf("Expected allowed origins [*], got %v", config.CORS.AllowedOrigins)
		}
		if config.Logging.Level != "info" {
			t.Errorf("Expected logging level 'info', got %q", config.Logging.Level)
		}
	})

	t.Run("Custom struct with various field types", func(t *testing.T) {
		type TestStruct struct {
			StringField  string   `default:"test-string"`
			BoolField    bool     `default:"true"`
			IntField     int      `default:"42"`
			Int64Field   int64    `default:"7"`
			Float64Field float64  `default:"3.14"`
			SliceField   []string `default:"a, b,c"`
			NoDefault    string
		}

		test := &TestStruct{}
		applyDefaults(test)

		if test.StringField != "test-string" {
			t.Errorf("Expected string field 'test-string', got %q", test.StringField)
		}
		if !test.BoolField {
			t.Error("Expected bool field to be true")
		}
		if test.IntField != 42 || test.Int64Field != 7 {
			t.Errorf("Expected int fields 42 and 7, got %d and %d", test.IntField, test.Int64Field)
		}
		if test.Float64Field != 3.14 {
			t.Errorf("Expected float64 field 3.14, got %f", test.Float64Field)
		}
		if !reflect.DeepEqual(test.SliceField, []string{"a", "b", "c"}) {
			t.Errorf("Expected slice [a b c], got %v", test.SliceField)
		}
		if test.NoDefault != "" {
			t.Errorf("Expected no default field to be empty, got %q", test.NoDefault)
		}
	})

	t.Run("Invalid default values", func(t *testing.T) {
		type InvalidStruct struct {
			BadBool  bool    `default:"not-a-bool"`
			BadInt   int     `default:"not-an-int"`
			BadFloat float64 `default:"not-a-float"`
		}

		test := &InvalidStruct{}
		applyDefaults(test)

		if test.BadBool || test.BadInt != 0 || test.BadFloat != 0 {
			t.Errorf("Expected invalid defaults to leave zero values, got %+v", test)
		}
	})

	t.Run("Non-struct input", func(t *testing.T) {
		stringVar := "test"
		applyDefaults(&stringVar)
		applyDefaults(stringVar)
		applyDefaults(42)
		applyDefaults(nil)
	})
}

func TestLoadConfig(t *testing.T) {
	SetLogger(zerolog.New(os.Stdout).Level(zerolog.ErrorLevel))

	t.Run("Load non-existent config file", func(t *testing.T) {
		originalAppConfig := AppConfig
		defer func() { AppConfig = originalAppConfig }()

		if err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err != nil {
			t.Errorf("Expected no error for non-existent config file, got %v", err)
		}
		if AppConfig == nil || AppConfig.Site.Name != "Postly" {
			t.Fatalf("Expected AppConfig to be set with defaults, got %+v", AppConfig)
		}
	})

	t.Run("Load valid config file", func(t *testing.T) {
		originalAppConfig := AppConfig
		defer func() { AppConfig = originalAppConfig }()

		path := writeConfig(t, `
site:
  name: "Test Blog"
server:
  port: "8080"
drafts:
  store: redis
  compression: gzip
images:
  backend: s3
  bucket: media
ratelimit:
  requests_per_second: 0.5
cors:
  allowed_origins: ["https://example.com"]
`)
		if err := LoadConfig(path); err != nil {
			t.Fatalf("Expected no error loading valid config, got %v", err)
		}

		if AppConfig.Site.Name != "Test Blog" {
			t.Errorf("Expected site name 'Test Blog', got %q", AppConfig.Site.Name)
		}
		if AppConfig.Server.Port != "8080" {
			t.Errorf("Expected port '8080', got %q", AppConfig.Server.Port)
		}
		if AppConfig.Drafts.Store != "redis" || AppConfig.Drafts.Compression != "gzip" {
			t.Errorf("Expected redis store with gzip, got %+v", AppConfig.Drafts)
		}
		if AppConfig.Images.Backend != "s3" || AppConfig.Images.Bucket != "media" {
			t.Errorf("Expected s3 backend on bucket 'media', got %+v", AppConfig.Images)
		}
		if AppConfig.RateLimit.RequestsPerSecond != 0.5 {
			t.Errorf("Expected 0.5 rps, got %v", AppConfig.RateLimit.RequestsPerSecond)
		}
		if !reflect.DeepEqual(AppConfig.CORS.AllowedOrigins, []string{"https://example.com"}) {
			t.Errorf("Expected configured origins, got %v", AppConfig.CORS.AllowedOrigins)
		}

		// Unspecified fields keep their defaults
		if AppConfig.Site.Tagline != "Write something worth reading" {
			t.Errorf("Expected default tagline, got %q", AppConfig.Site.Tagline)
		}
		if AppConfig.Drafts.Key != "postly-draft" {
			t.Errorf("Expected default draft key, got %q", AppConfig.Drafts.Key)
		}
	})

	t.Run("Load invalid YAML file", func(t *testing.T) {
		originalAppConfig := AppConfig
		defer func() { AppConfig = originalAppConfig }()

		path := writeConfig(t, "site:\n  name: \"Test Blog\"\n  invalid yaml syntax [\n")
		err := LoadConfig(path)
		if err == nil {
			t.Fatal("Expected error loading invalid config file")
		}
		if !strings.Contains(err.Error(), "failed to parse config file") {
			t.Errorf("Expected parse error, got %v", err)
		}
	})

	t.Run("Environment overrides the file", func(t *testing.T) {
		originalAppConfig := AppConfig
		defer func() { AppConfig = originalAppConfig }()

		t.Setenv("POSTLY_DATABASE_PATH", "/tmp/env.db")
		t.Setenv("POSTLY_PORT", "9999")
		t.Setenv("POSTLY_REDIS_DB", "3")

		path := writeConfig(t, "database:\n  path: ./file.db\n")
		if err := LoadConfig(path); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if AppConfig.Database.Path != "/tmp/env.db" {
			t.Errorf("Expected env database path, got %q", AppConfig.Database.Path)
		}
		if AppConfig.Server.Port != "9999" {
			t.Errorf("Expected env port, got %q", AppConfig.Server.Port)
		}
		if AppConfig.Redis.DB != 3 {
			t.Errorf("Expected redis db 3, got %d", AppConfig.Redis.DB)
		}
	})
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"POSTLY_S3_ACCESS_KEY_ID":     "key",
		"POSTLY_S3_ACCESS_KEY_SECRET": "secret",
		"POSTLY_LOG_LEVEL":            "debug",
		"POSTLY_REDIS_ADDR":           "",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := Default()
	if err := applyEnv(cfg, lookup); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cfg.Images.AccessKeyID != "key" || cfg.Images.AccessKeySecret != "secret" {
		t.Errorf("Expected S3 credentials from env, got %q/%q", cfg.Images.AccessKeyID, cfg.Images.AccessKeySecret)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Expected level 'debug', got %q", cfg.Logging.Level)
	}
	if cfg.Redis.Addr != "localhost:6379" {
		t.Errorf("Expected empty variable to keep the default, got %q", cfg.Redis.Addr)
	}

	env["POSTLY_REDIS_DB"] = "one"
	if err := applyEnv(cfg, lookup); err == nil {
		t.Error("Expected error for a non-numeric redis db")
	}
}

func TestConstants(t *testing.T) {
	matches := RegexCallout.FindStringSubmatch("// <<1>>")
	if len(matches) != 2 || matches[1] != "1" {
		t.Errorf("Expected callout regex to match '1', got %v", matches)
	}
	if StaticUrlPath != "/static/" {
		t.Errorf("Expected '/static/', got %q", StaticUrlPath)
	}
}

func TestThemeClass(t *testing.T) {
	tests := map[string]string{
		"light":       LightTheme,
		"dark-theme":  DarkTheme,
		"Light-Theme": LightTheme,
		"":            DefaultTheme,
		"solarized":   DefaultTheme,
	}
	for in, want := range tests {
		if got := ThemeClass(in); got != want {
			t.Errorf("Expected ThemeClass(%q) = %q, got %q", in, want, got)
		}
	}
}
