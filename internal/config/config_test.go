package config

import (
	"os"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Weather: WeatherConfig{
			APIBaseURL: "https://power.larc.nasa.gov/api/temporal/hourly/point",
			Timeout:    30 * time.Second,
			MaxRetries: 3,
		},
		Engine: EngineConfig{
			HorizonDays:      30,
			CarbonWeight:     0.2,
			CleaningCost:     1500,
			ElectricityPrice: 6.5,
			WaterUsageLiters: 10000,
			WaterUnitCost:    0.05,
			AvgIrradiance:    5.0,
		},
		Server: ServerConfig{Address: ":8080"},
		Storage: StorageConfig{
			MaxDecisionsPerSite: 500,
			MaxSelections:       200,
			PersistenceInterval: 5 * time.Minute,
			FilePath:            "./data/test.json",
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
	}
}

func TestLoadAndValidate(t *testing.T) {
	// Create temp config file
	content := `
weather:
  api_base_url: "https://power.larc.nasa.gov/api/temporal/hourly/point"
  timeout: 30s
  max_retries: 3
  demo_mode: false

engine:
  horizon_days: 30
  carbon_weight: 0.2
  cleaning_cost: 1500
  electricity_price: 6.5
  water_usage_liters: 10000
  water_unit_cost: 0.05
  avg_irradiance: 5.0

server:
  address: ":8080"

watch:
  enabled: true
  interval: 6h
  cooldown: 24h

sites:
  - id: "jaisalmer-1"
    name: "Jaisalmer Solar Park"
    latitude: 26.9
    longitude: 70.9
    panel_area_m2: 125000
    dust_rate: 1.2

telegram:
  bot_token: "test_token"
  chat_id: "test_chat_id"
  enabled: true

storage:
  max_decisions_per_site: 500
  max_selections: 200
  persistence_interval: 5m
  file_path: "./data/test.json"
  data_dir: "./data"

logging:
  level: "info"
  format: "json"
`
	tmpfile, err := os.CreateTemp("", "config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(tmpfile.Name())

	if _, err := tmpfile.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(tmpfile.Name())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Engine.HorizonDays != 30 {
		t.Errorf("Unexpected horizon: %d", cfg.Engine.HorizonDays)
	}
	if cfg.Engine.CarbonWeight != 0.2 {
		t.Errorf("Unexpected carbon weight: %f", cfg.Engine.CarbonWeight)
	}
	if len(cfg.Sites) != 1 || cfg.Sites[0].ID != "jaisalmer-1" {
		t.Errorf("Unexpected sites: %+v", cfg.Sites)
	}
	if cfg.Watch.Interval != 6*time.Hour {
		t.Errorf("Unexpected watch interval: %v", cfg.Watch.Interval)
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
}

func TestLoadDefaults(t *testing.T) {
	content := `
logging:
  level: "debug"
`
	tmpfile, err := os.CreateTemp("", "config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(tmpfile.Name())

	if _, err := tmpfile.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(tmpfile.Name())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Engine.HorizonDays != 30 {
		t.Errorf("Expected default horizon 30, got %d", cfg.Engine.HorizonDays)
	}
	if cfg.Weather.MaxRetries != 3 {
		t.Errorf("Expected default max retries 3, got %d", cfg.Weather.MaxRetries)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Expected explicit level to win over default, got %s", cfg.Logging.Level)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate with defaults failed: %v", err)
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"carbon weight out of range", func(c *Config) { c.Engine.CarbonWeight = 1.5 }},
		{"horizon too short", func(c *Config) { c.Engine.HorizonDays = 1 }},
		{"zero electricity price", func(c *Config) { c.Engine.ElectricityPrice = 0 }},
		{"zero irradiance", func(c *Config) { c.Engine.AvgIrradiance = 0 }},
		{"missing telegram token when enabled", func(c *Config) { c.Telegram.Enabled = true }},
		{"watch enabled without sites", func(c *Config) {
			c.Watch.Enabled = true
			c.Watch.Interval = time.Hour
		}},
		{"watch interval too short", func(c *Config) {
			c.Watch.Enabled = true
			c.Watch.Interval = time.Second
			c.Sites = []SiteConfig{{ID: "s", Latitude: 20, Longitude: 70, PanelAreaM2: 100}}
		}},
		{"duplicate site id", func(c *Config) {
			c.Sites = []SiteConfig{
				{ID: "s", Latitude: 20, Longitude: 70, PanelAreaM2: 100},
				{ID: "s", Latitude: 21, Longitude: 71, PanelAreaM2: 100},
			}
		}},
		{"site without area or capacity", func(c *Config) {
			c.Sites = []SiteConfig{{ID: "s", Latitude: 20, Longitude: 70}}
		}},
		{"missing storage file path", func(c *Config) { c.Storage.FilePath = "" }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Expected validation error, got nil")
			}
		})
	}

	if err := validConfig().Validate(); err != nil {
		t.Fatalf("Baseline config should validate, got %v", err)
	}
}
