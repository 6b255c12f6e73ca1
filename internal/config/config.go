package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	Weather  WeatherConfig  `mapstructure:"weather"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Server   ServerConfig   `mapstructure:"server"`
	Watch    WatchConfig    `mapstructure:"watch"`
	Sites    []SiteConfig   `mapstructure:"sites"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// WeatherConfig holds weather provider configuration
type WeatherConfig struct {
	APIBaseURL string        `mapstructure:"api_base_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
	// DemoMode replaces the live provider with the synthetic offline
	// series. Analyses run in demo mode are clearly labeled.
	DemoMode bool `mapstructure:"demo_mode"`
}

// EngineConfig holds analysis defaults applied when a request omits a value
type EngineConfig struct {
	HorizonDays      int     `mapstructure:"horizon_days"`
	CarbonWeight     float64 `mapstructure:"carbon_weight"`
	CleaningCost     float64 `mapstructure:"cleaning_cost"`
	ElectricityPrice float64 `mapstructure:"electricity_price"`
	WaterUsageLiters float64 `mapstructure:"water_usage_liters"`
	WaterUnitCost    float64 `mapstructure:"water_unit_cost"`
	AvgIrradiance    float64 `mapstructure:"avg_irradiance"`
}

// ServerConfig holds HTTP API configuration
type ServerConfig struct {
	Address string `mapstructure:"address"`
}

// WatchConfig holds the site re-analysis loop configuration
type WatchConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
	Cooldown time.Duration `mapstructure:"cooldown"`
}

// SiteConfig describes one monitored installation
type SiteConfig struct {
	ID               string  `mapstructure:"id"`
	Name             string  `mapstructure:"name"`
	Latitude         float64 `mapstructure:"latitude"`
	Longitude        float64 `mapstructure:"longitude"`
	PanelAreaM2      float64 `mapstructure:"panel_area_m2"`
	PlantCapacityMW  float64 `mapstructure:"plant_capacity_mw"`
	DustRate         float64 `mapstructure:"dust_rate"`
	ElectricityPrice float64 `mapstructure:"electricity_price"`
	CleaningCost     float64 `mapstructure:"cleaning_cost"`
	WaterUsageLiters float64 `mapstructure:"water_usage_liters"`
}

// TelegramConfig holds Telegram notification configuration
type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	Enabled  bool   `mapstructure:"enabled"`
}

// StorageConfig holds history persistence configuration
type StorageConfig struct {
	MaxDecisionsPerSite int           `mapstructure:"max_decisions_per_site"`
	MaxSelections       int           `mapstructure:"max_selections"`
	PersistenceInterval time.Duration `mapstructure:"persistence_interval"`
	FilePath            string        `mapstructure:"file_path"`
	DataDir             string        `mapstructure:"data_dir"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)

	setDefaults(v)

	// Enable environment variable override
	v.SetEnvPrefix("SOLAROPS")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	// Weather defaults
	v.SetDefault("weather.api_base_url", "https://power.larc.nasa.gov/api/temporal/hourly/point")
	v.SetDefault("weather.timeout", "30s")
	v.SetDefault("weather.max_retries", 3)
	v.SetDefault("weather.demo_mode", false)

	// Engine defaults
	v.SetDefault("engine.horizon_days", 30)
	v.SetDefault("engine.carbon_weight", 0.0)
	v.SetDefault("engine.cleaning_cost", 1500.0)
	v.SetDefault("engine.electricity_price", 6.5)
	v.SetDefault("engine.water_usage_liters", 10000.0)
	v.SetDefault("engine.water_unit_cost", 0.05)
	v.SetDefault("engine.avg_irradiance", 5.0)

	// Server defaults
	v.SetDefault("server.address", ":8080")

	// Watch defaults
	v.SetDefault("watch.enabled", false)
	v.SetDefault("watch.interval", "6h")
	v.SetDefault("watch.cooldown", "24h")

	// Storage defaults
	v.SetDefault("storage.max_decisions_per_site", 500)
	v.SetDefault("storage.max_selections", 200)
	v.SetDefault("storage.persistence_interval", "5m")
	v.SetDefault("storage.file_path", "./data/solarops.json")
	v.SetDefault("storage.data_dir", "./data")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	if c.Weather.APIBaseURL == "" && !c.Weather.DemoMode {
		return fmt.Errorf("weather.api_base_url is required unless demo_mode is enabled")
	}
	if c.Weather.Timeout < time.Second {
		return fmt.Errorf("weather.timeout must be at least 1 second")
	}
	if c.Weather.MaxRetries < 1 {
		return fmt.Errorf("weather.max_retries must be at least 1")
	}

	if c.Engine.HorizonDays < 2 {
		return fmt.Errorf("engine.horizon_days must be at least 2")
	}
	if c.Engine.CarbonWeight < 0.0 || c.Engine.CarbonWeight > 1.0 {
		return fmt.Errorf("engine.carbon_weight must be between 0.0 and 1.0")
	}
	if c.Engine.CleaningCost < 0 {
		return fmt.Errorf("engine.cleaning_cost must be >= 0")
	}
	if c.Engine.ElectricityPrice <= 0 {
		return fmt.Errorf("engine.electricity_price must be > 0")
	}
	if c.Engine.WaterUsageLiters < 0 {
		return fmt.Errorf("engine.water_usage_liters must be >= 0")
	}
	if c.Engine.WaterUnitCost < 0 {
		return fmt.Errorf("engine.water_unit_cost must be >= 0")
	}
	if c.Engine.AvgIrradiance <= 0 {
		return fmt.Errorf("engine.avg_irradiance must be > 0")
	}

	if c.Watch.Enabled {
		if c.Watch.Interval < 1*time.Minute {
			return fmt.Errorf("watch.interval must be at least 1 minute")
		}
		if c.Watch.Cooldown < 0 {
			return fmt.Errorf("watch.cooldown must be >= 0")
		}
		if len(c.Sites) == 0 {
			return fmt.Errorf("sites must contain at least one site when watch is enabled")
		}
	}

	seen := make(map[string]bool, len(c.Sites))
	for i, site := range c.Sites {
		if site.ID == "" {
			return fmt.Errorf("sites[%d].id is required", i)
		}
		if seen[site.ID] {
			return fmt.Errorf("sites[%d].id %q is duplicated", i, site.ID)
		}
		seen[site.ID] = true
		if site.Latitude < -90 || site.Latitude > 90 {
			return fmt.Errorf("sites[%d].latitude must be between -90 and 90", i)
		}
		if site.Longitude < -180 || site.Longitude > 180 {
			return fmt.Errorf("sites[%d].longitude must be between -180 and 180", i)
		}
		if site.PanelAreaM2 <= 0 && site.PlantCapacityMW <= 0 {
			return fmt.Errorf("sites[%d] needs panel_area_m2 or plant_capacity_mw", i)
		}
	}

	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}

	if c.Storage.MaxDecisionsPerSite < 1 {
		return fmt.Errorf("storage.max_decisions_per_site must be at least 1")
	}
	if c.Storage.MaxSelections < 1 {
		return fmt.Errorf("storage.max_selections must be at least 1")
	}
	if c.Storage.PersistenceInterval < 1*time.Minute {
		return fmt.Errorf("storage.persistence_interval must be at least 1 minute")
	}
	if c.Storage.FilePath == "" {
		return fmt.Errorf("storage.file_path is required")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}
