// Package weather supplies daily environment series for a site.
//
// The engine treats weather as a hard input dependency fetched before any
// analysis runs. The live provider talks to the NASA POWER API; the
// synthetic provider exists only for explicitly-flagged demo/offline use.
package weather

import (
	"context"
	"math"
	"time"

	"github.com/solarops-dev/solarops/internal/models"
)

// Provider supplies an ordered daily series for a location, starting at the
// given date. Implementations return ErrDataUnavailable when the source is
// unreachable; they never fabricate data.
type Provider interface {
	Daily(ctx context.Context, lat, lon float64, start time.Time, days int) ([]models.EnvironmentSample, error)
}

// Synthetic is a deterministic offline provider for demo mode. It produces a
// dry-season sinusoid around a site-dependent mean so demos are repeatable.
// Callers must select it explicitly; nothing falls back to it silently.
type Synthetic struct{}

// Daily generates the series. Never fails.
func (Synthetic) Daily(_ context.Context, lat, lon float64, start time.Time, days int) ([]models.EnvironmentSample, error) {
	samples := make([]models.EnvironmentSample, days)
	base := 5.0 + 0.5*math.Cos(lat*math.Pi/180)
	for i := range samples {
		phase := float64(i) * 2 * math.Pi / 14
		samples[i] = models.EnvironmentSample{
			Date:            start.AddDate(0, 0, i),
			IrradianceKWhM2: base + 0.6*math.Sin(phase+lon/30),
			TemperatureC:    28 + 4*math.Sin(phase),
			PrecipitationMM: 0,
		}
	}
	return samples, nil
}
