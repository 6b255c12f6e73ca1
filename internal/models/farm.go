package models

import (
	"fmt"
	"math"
	"time"
)

// Farm is an immutable input snapshot of one solar installation. Nothing
// mutates a Farm after construction; each request carries its own copy.
type Farm struct {
	ID                 string  `json:"id"`
	Name               string  `json:"name"`
	Latitude           float64 `json:"latitude"`
	Longitude          float64 `json:"longitude"`
	PanelAreaM2        float64 `json:"panel_area_m2"`
	DustRate           float64 `json:"dust_rate"`
	ElectricityPrice   float64 `json:"electricity_price"`
	WaterUsagePerClean float64 `json:"water_usage_per_clean"`
}

// Validate checks that all farm fields are valid.
func (f *Farm) Validate() error {
	if f.ID == "" {
		return fmt.Errorf("%w: farm id must not be empty", ErrConfig)
	}
	if f.Latitude < -90 || f.Latitude > 90 {
		return fmt.Errorf("%w: farm %s latitude must be between -90 and 90", ErrConfig, f.ID)
	}
	if f.Longitude < -180 || f.Longitude > 180 {
		return fmt.Errorf("%w: farm %s longitude must be between -180 and 180", ErrConfig, f.ID)
	}
	if f.PanelAreaM2 <= 0 {
		return fmt.Errorf("%w: farm %s panel_area_m2 must be > 0", ErrConfig, f.ID)
	}
	if f.DustRate < 0 || math.IsNaN(f.DustRate) {
		return fmt.Errorf("%w: farm %s dust_rate must be >= 0", ErrConfig, f.ID)
	}
	if f.ElectricityPrice <= 0 {
		return fmt.Errorf("%w: farm %s electricity_price must be > 0", ErrConfig, f.ID)
	}
	if f.WaterUsagePerClean < 0 {
		return fmt.Errorf("%w: farm %s water_usage_per_clean must be >= 0", ErrConfig, f.ID)
	}
	return nil
}

// EnvironmentSample is one day of weather for a site. Sequences are ordered
// by date ascending and supplied by an external provider before the engine
// is invoked.
type EnvironmentSample struct {
	Date            time.Time `json:"date"`
	IrradianceKWhM2 float64   `json:"irradiance_kwh_m2"`
	TemperatureC    float64   `json:"temperature_c"`
	PrecipitationMM float64   `json:"precipitation_mm"`
}

// Validate checks that a sample is physically plausible.
func (s *EnvironmentSample) Validate() error {
	if s.Date.IsZero() {
		return fmt.Errorf("%w: sample date must be set", ErrConfig)
	}
	if s.IrradianceKWhM2 < 0 {
		return fmt.Errorf("%w: irradiance must be >= 0", ErrConfig)
	}
	if s.PrecipitationMM < 0 {
		return fmt.Errorf("%w: precipitation must be >= 0", ErrConfig)
	}
	return nil
}
