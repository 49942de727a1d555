package shared

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Backend.URL != "" {
			t.Errorf("expected empty backend url, got %s", config.Backend.URL)
		}

		if config.Backend.Bucket != "audio" {
			t.Errorf("expected bucket audio, got %s", config.Backend.Bucket)
		}

		if config.Player.Volume != 0.8 {
			t.Errorf("expected default volume 0.8, got %f", config.Player.Volume)
		}

		if config.Server.Port != 8090 {
			t.Errorf("expected server port 8090, got %d", config.Server.Port)
		}

		if config.Configured() {
			t.Error("default config should not report a configured backend")
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
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

		defaultConfig := DefaultConfig()
		if config.Database.Path != defaultConfig.Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[backend]
url = "https://example.backend.dev"
anon_key = "test_anon_key"
bucket = "tracks"

[player]
volume = 0.5

[database]
path = "/custom/path.db"
max_open_conns = 20
max_idle_conns = 10

[server]
host = "0.0.0.0"
port = 8080

[analysis]
url = "http://localhost:9090"
api_key = "test_api_key"
model = "test-model"
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Backend.URL != "https://example.backend.dev" {
			t.Errorf("expected backend url https://example.backend.dev, got %s", config.Backend.URL)
		}

		if !config.Configured() {
			t.Error("config with backend url should report configured")
		}

		if config.Player.Volume != 0.5 {
			t.Errorf("expected volume 0.5, got %f", config.Player.Volume)
		}

		if config.Server.Port != 8080 {
			t.Errorf("expected server port 8080, got %d", config.Server.Port)
		}

		if config.Analysis.Model != "test-model" {
			t.Errorf("expected analysis model test-model, got %s", config.Analysis.Model)
		}
	})
}
