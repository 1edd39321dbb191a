package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Server.Port != 3000 {
			t.Errorf("expected server port 3000, got %d", config.Server.Port)
		}

		if config.Session.Backend != "memory" {
			t.Errorf("expected memory backend, got %s", config.Session.Backend)
		}

		if config.Session.TTL.Duration != 24*time.Hour {
			t.Errorf("expected session ttl 24h, got %v", config.Session.TTL.Duration)
		}

		if config.Provider.Timeout.Duration != 5*time.Second {
			t.Errorf("expected provider timeout 5s, got %v", config.Provider.Timeout.Duration)
		}

		if config.Provider.Market != "CO" || config.Provider.PageSize != 20 {
			t.Errorf("expected market CO and page size 20, got %s and %d", config.Provider.Market, config.Provider.PageSize)
		}

		if len(config.Provider.Scopes) != 5 {
			t.Errorf("expected 5 scopes, got %d", len(config.Provider.Scopes))
		}

		if config.Credentials.Spotify.ClientID != "" {
			t.Errorf("expected empty client_id by default, got %s", config.Credentials.Spotify.ClientID)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		t.Setenv("CLIENT_ID", "")
		t.Setenv("PORT", "")
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		if _, err := os.Stat(configPath); err != nil {
			t.Fatalf("config file should exist: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		if config.Database.Path != DefaultConfig().Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		t.Setenv("CLIENT_ID", "")
		t.Setenv("CLIENT_SECRET", "")
		t.Setenv("CALLBACK_URL", "")
		t.Setenv("PORT", "")
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[server]
host = "0.0.0.0"
port = 8080

[session]
backend = "sqlite"
ttl = "2h"

[provider]
timeout = "1500ms"

[credentials.spotify]
client_id = "test_client_id"
client_secret = "test_secret"
redirect_uri = "http://localhost:8080/auth/callback"
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Server.Port != 8080 {
			t.Errorf("expected server port 8080, got %d", config.Server.Port)
		}
		if config.Session.Backend != "sqlite" {
			t.Errorf("expected sqlite backend, got %s", config.Session.Backend)
		}
		if config.Session.TTL.Duration != 2*time.Hour {
			t.Errorf("expected ttl 2h, got %v", config.Session.TTL.Duration)
		}
		if config.Provider.Timeout.Duration != 1500*time.Millisecond {
			t.Errorf("expected timeout 1.5s, got %v", config.Provider.Timeout.Duration)
		}
		if config.Provider.TokenURL == "" {
			t.Error("expected unset keys to keep their defaults")
		}
		if config.Credentials.Spotify.ClientID != "test_client_id" {
			t.Errorf("expected spotify client_id test_client_id, got %s", config.Credentials.Spotify.ClientID)
		}
	})

	t.Run("LoadConfig With Invalid Duration", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(configPath, []byte("[session]\nttl = \"forever\"\n"), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		if _, err := LoadConfig(configPath); err == nil {
			t.Error("expected error for invalid duration")
		}
	})

	t.Run("LoadConfigOrDefault Without File", func(t *testing.T) {
		t.Setenv("PORT", "")
		config, err := LoadConfigOrDefault(filepath.Join(t.TempDir(), "missing.toml"))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if config.Server.Port != 3000 {
			t.Errorf("expected default port, got %d", config.Server.Port)
		}
	})

	t.Run("ApplyEnv", func(t *testing.T) {
		env := map[string]string{
			"CLIENT_ID":     "env_id",
			"CLIENT_SECRET": "env_secret",
			"CALLBACK_URL":  "https://example.com/callback",
			"PORT":          "9090",
		}
		config := DefaultConfig()
		config.ApplyEnv(func(k string) string { return env[k] })

		if config.Credentials.Spotify.ClientID != "env_id" {
			t.Errorf("expected env client id, got %s", config.Credentials.Spotify.ClientID)
		}
		if config.Credentials.Spotify.ClientSecret != "env_secret" {
			t.Errorf("expected env client secret, got %s", config.Credentials.Spotify.ClientSecret)
		}
		if config.Credentials.Spotify.RedirectURI != "https://example.com/callback" {
			t.Errorf("expected env callback, got %s", config.Credentials.Spotify.RedirectURI)
		}
		if config.Server.Port != 9090 {
			t.Errorf("expected port 9090, got %d", config.Server.Port)
		}

		config.ApplyEnv(func(k string) string {
			if k == "PORT" {
				return "not-a-port"
			}
			return ""
		})
		if config.Server.Port != 9090 {
			t.Errorf("invalid PORT should be ignored, got %d", config.Server.Port)
		}
	})

	t.Run("SpotifyConfig Validate", func(t *testing.T) {
		err := SpotifyConfig{ClientID: "id"}.Validate()

		var cfgErr *ConfigError
		if !errors.As(err, &cfgErr) {
			t.Fatalf("expected ConfigError, got %v", err)
		}
		if len(cfgErr.Missing) != 2 || cfgErr.Missing[0] != "client_secret" || cfgErr.Missing[1] != "redirect_uri" {
			t.Errorf("unexpected missing keys %v", cfgErr.Missing)
		}
		if !errors.Is(err, ErrConfig) {
			t.Error("expected ConfigError to match ErrConfig")
		}

		if err := (SpotifyConfig{ClientID: "a", ClientSecret: "b", RedirectURI: "c"}).Validate(); err != nil {
			t.Errorf("expected complete config to validate, got %v", err)
		}
	})

	t.Run("RedirectIsAbsolute", func(t *testing.T) {
		if !(SpotifyConfig{RedirectURI: "http://localhost:3000/auth/callback"}).RedirectIsAbsolute() {
			t.Error("expected absolute redirect")
		}
		if (SpotifyConfig{RedirectURI: "/auth/callback"}).RedirectIsAbsolute() {
			t.Error("expected relative redirect to be rejected")
		}
	})
}
