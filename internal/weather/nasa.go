package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/solarops-dev/solarops/internal/models"
)

// DefaultBaseURL is the NASA POWER temporal API root.
const DefaultBaseURL = "https://power.larc.nasa.gov/api/temporal/hourly/point"

// fillValue marks missing observations in POWER responses.
const fillValue = -999.0

// NASAPower fetches hourly point data from the NASA POWER API and aggregates
// it into daily environment samples.
type NASAPower struct {
	baseURL    string
	httpClient *http.Client
	maxRetries int
}

// NewNASAPower creates a POWER client with the given endpoint and timeout.
func NewNASAPower(baseURL string, timeout time.Duration, maxRetries int) *NASAPower {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &NASAPower{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		maxRetries: maxRetries,
	}
}

// powerResponse mirrors the subset of the POWER JSON we read. Parameter maps
// are keyed by hour stamps in YYYYMMDDHH form.
type powerResponse struct {
	Properties struct {
		Parameter struct {
			Irradiance    map[string]float64 `json:"ALLSKY_SFC_SW_DWN"`
			Temperature   map[string]float64 `json:"T2M"`
			Precipitation map[string]float64 `json:"PRECTOTCORR"`
		} `json:"parameter"`
	} `json:"properties"`
}

// Daily fetches the hourly series covering [start, start+days) and reduces
// it per day: irradiance summed (Wh/m2 -> kWh/m2), temperature averaged,
// precipitation summed. Fill values are skipped.
func (c *NASAPower) Daily(ctx context.Context, lat, lon float64, start time.Time, days int) ([]models.EnvironmentSample, error) {
	if days <= 0 {
		return nil, fmt.Errorf("%w: days must be > 0, got %d", models.ErrConfig, days)
	}

	end := start.AddDate(0, 0, days-1)
	url := fmt.Sprintf("%s?parameters=ALLSKY_SFC_SW_DWN,T2M,PRECTOTCORR&community=RE&latitude=%.4f&longitude=%.4f&start=%s&end=%s&format=JSON",
		c.baseURL, lat, lon, start.Format("20060102"), end.Format("20060102"))

	resp, err := c.doRequest(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("%w: power fetch failed: %v", models.ErrDataUnavailable, err)
	}
	defer resp.Body.Close()

	var pr powerResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return nil, fmt.Errorf("%w: decode power response: %v", models.ErrDataUnavailable, err)
	}

	samples, err := aggregateDaily(pr)
	if err != nil {
		return nil, err
	}
	if len(samples) < days {
		return nil, fmt.Errorf("%w: power returned %d days, need %d", models.ErrDataUnavailable, len(samples), days)
	}
	return samples[:days], nil
}

func aggregateDaily(pr powerResponse) ([]models.EnvironmentSample, error) {
	type dayAgg struct {
		irradianceWh float64
		tempSum      float64
		tempCount    int
		precipMM     float64
	}

	byDay := make(map[string]*dayAgg)
	agg := func(key string) *dayAgg {
		day := key
		if len(key) > 8 {
			day = key[:8]
		}
		a := byDay[day]
		if a == nil {
			a = &dayAgg{}
			byDay[day] = a
		}
		return a
	}

	for key, v := range pr.Properties.Parameter.Irradiance {
		if v == fillValue {
			continue
		}
		agg(key).irradianceWh += v
	}
	for key, v := range pr.Properties.Parameter.Temperature {
		if v == fillValue {
			continue
		}
		a := agg(key)
		a.tempSum += v
		a.tempCount++
	}
	for key, v := range pr.Properties.Parameter.Precipitation {
		if v == fillValue {
			continue
		}
		agg(key).precipMM += v
	}

	days := make([]string, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Strings(days)

	samples := make([]models.EnvironmentSample, 0, len(days))
	for _, day := range days {
		date, err := time.Parse("20060102", day)
		if err != nil {
			return nil, fmt.Errorf("%w: bad power day stamp %q", models.ErrDataUnavailable, day)
		}
		a := byDay[day]
		sample := models.EnvironmentSample{
			Date:            date,
			IrradianceKWhM2: a.irradianceWh / 1000,
			PrecipitationMM: a.precipMM,
		}
		if a.tempCount > 0 {
			sample.TemperatureC = a.tempSum / float64(a.tempCount)
		}
		samples = append(samples, sample)
	}
	return samples, nil
}

// doRequest performs the GET with linear-backoff retries on transport errors
// and server-side failures.
func (c *NASAPower) doRequest(ctx context.Context, url string) (*http.Response, error) {
	var lastErr error

	for i := 0; i < c.maxRetries; i++ {
		req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
		if err != nil {
			return nil, err
		}

		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			if !sleepCtx(ctx, time.Duration(i+1)*time.Second) {
				return nil, ctx.Err()
			}
			continue
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = fmt.Errorf("server error: %d", resp.StatusCode)
			if !sleepCtx(ctx, time.Duration(i+1)*time.Second) {
				return nil, ctx.Err()
			}
			continue
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
		}

		return resp, nil
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
