package shared

import (
	"testing"
	"time"
)

func TestValidateAndApplyDefaultsFillsZeroValues(t *testing.T) {
	config := &UnifiedConfiguration{}
	config.ValidateAndApplyDefaults()

	defaults := NewDefaultUnifiedConfiguration()
	if config.Platform.BaseURL != defaults.Platform.BaseURL {
		t.Fatalf("BaseURL not defaulted, got %q", config.Platform.BaseURL)
	}
	if config.Sync.StatusTTL != defaults.Sync.StatusTTL {
		t.Fatalf("StatusTTL not defaulted, got %v", config.Sync.StatusTTL)
	}
	if config.Database.MaxOpenConns != defaults.Database.MaxOpenConns {
		t.Fatalf("MaxOpenConns not defaulted, got %d", config.Database.MaxOpenConns)
	}
	if config.Logging.Level != defaults.Logging.Level {
		t.Fatalf("Logging.Level not defaulted, got %q", config.Logging.Level)
	}
}

func TestValidateAndApplyDefaultsKeepsExplicitValues(t *testing.T) {
	config := &UnifiedConfiguration{}
	config.Sync.StatusTTL = 90 * time.Second
	config.Platform.BaseURL = "https://platform.internal"

	config.ValidateAndApplyDefaults()

	if config.Sync.StatusTTL != 90*time.Second {
		t.Fatalf("explicit StatusTTL overwritten, got %v", config.Sync.StatusTTL)
	}
	if config.Platform.BaseURL != "https://platform.internal" {
		t.Fatalf("explicit BaseURL overwritten, got %q", config.Platform.BaseURL)
	}
}

func TestConfigurationJSONRoundTrip(t *testing.T) {
	original := NewDefaultUnifiedConfiguration()
	original.Sync.PollInterval = 30 * time.Second

	data, err := original.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON failed: %v", err)
	}

	var loaded UnifiedConfiguration
	if err := loaded.LoadFromJSON(data); err != nil {
		t.Fatalf("LoadFromJSON failed: %v", err)
	}
	if loaded.Sync.PollInterval != 30*time.Second {
		t.Fatalf("round trip lost PollInterval, got %v", loaded.Sync.PollInterval)
	}
	if loaded.Platform.BaseURL != original.Platform.BaseURL {
		t.Fatalf("round trip lost BaseURL, got %q", loaded.Platform.BaseURL)
	}
}

func TestLoadFromJSONAppliesDefaultsToPartialConfig(t *testing.T) {
	var config UnifiedConfiguration
	if err := config.LoadFromJSON([]byte(`{"sync": {"poll_interval": 15000000000}}`)); err != nil {
		t.Fatalf("LoadFromJSON failed: %v", err)
	}

	if config.Sync.PollInterval != 15*time.Second {
		t.Fatalf("explicit PollInterval lost, got %v", config.Sync.PollInterval)
	}
	if config.Sync.StatusTTL != NewDefaultUnifiedConfiguration().Sync.StatusTTL {
		t.Fatalf("missing StatusTTL not defaulted, got %v", config.Sync.StatusTTL)
	}
}

func TestLoadFromJSONRejectsMalformedPayload(t *testing.T) {
	var config UnifiedConfiguration
	if err := config.LoadFromJSON([]byte(`{"sync": `)); err == nil {
		t.Fatal("expected an error for malformed JSON")
	}
}
