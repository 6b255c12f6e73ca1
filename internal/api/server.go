// Package api exposes the analysis and optimization engine over HTTP.
//
// Routes:
//
//	GET  /health          liveness probe
//	GET  /analyze         single-site cleaning decision
//	GET  /rain-forecast   rain wash advice for a location
//	POST /optimize-farms  portfolio water allocation
//
// Configuration errors map to 400, unreachable weather data to 503. All
// decision and selection results are recorded to the history store.
package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/solarops-dev/solarops/internal/config"
	"github.com/solarops-dev/solarops/internal/engine"
	"github.com/solarops-dev/solarops/internal/logger"
	"github.com/solarops-dev/solarops/internal/models"
	"github.com/solarops-dev/solarops/internal/portfolio"
	"github.com/solarops-dev/solarops/internal/rain"
	"github.com/solarops-dev/solarops/internal/storage"
	"github.com/solarops-dev/solarops/internal/weather"
)

// Server wires the engine, optimizer, weather provider and history store
// behind a gin router.
type Server struct {
	eng      engine.Engine
	provider weather.Provider
	store    *storage.Storage
	defaults config.EngineConfig
	router   *gin.Engine
}

// New builds the router. The provider decides live versus demo data; the
// server never falls back on its own.
func New(eng engine.Engine, provider weather.Provider, store *storage.Storage, defaults config.EngineConfig) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		eng:      eng,
		provider: provider,
		store:    store,
		defaults: defaults,
		router:   gin.New(),
	}
	s.router.Use(gin.Recovery())

	s.router.GET("/health", s.handleHealth)
	s.router.GET("/analyze", s.handleAnalyze)
	s.router.GET("/rain-forecast", s.handleRainForecast)
	s.router.POST("/optimize-farms", s.handleOptimizeFarms)
	s.router.GET("/history/:site_id", s.handleHistory)

	return s
}

// Handler returns the http.Handler for the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC()})
}

func (s *Server) handleAnalyze(c *gin.Context) {
	start := time.Now()

	lat, err := queryFloat(c, "lat", 0, true)
	if err != nil {
		badRequest(c, err)
		return
	}
	lon, err := queryFloat(c, "lon", 0, true)
	if err != nil {
		badRequest(c, err)
		return
	}
	carbonWeight, err := queryFloat(c, "carbon_weight", s.defaults.CarbonWeight, false)
	if err != nil {
		badRequest(c, err)
		return
	}
	cleaningCost, err := queryFloat(c, "cleaning_cost", s.defaults.CleaningCost, false)
	if err != nil {
		badRequest(c, err)
		return
	}
	capacityMW, err := queryFloat(c, "plant_capacity_mw", 0, false)
	if err != nil {
		badRequest(c, err)
		return
	}
	panelArea, err := queryFloat(c, "panel_area_m2", 0, false)
	if err != nil {
		badRequest(c, err)
		return
	}
	dustRate, err := queryFloat(c, "dust_rate", 1.0, false)
	if err != nil {
		badRequest(c, err)
		return
	}
	price, err := queryFloat(c, "electricity_price", s.defaults.ElectricityPrice, false)
	if err != nil {
		badRequest(c, err)
		return
	}
	horizon, err := queryInt(c, "horizon_days", s.defaults.HorizonDays)
	if err != nil {
		badRequest(c, err)
		return
	}

	samples, err := s.provider.Daily(c.Request.Context(), lat, lon, time.Now(), horizon)
	if err != nil {
		s.writeError(c, err)
		return
	}

	decision, err := s.eng.Analyze(c.Request.Context(), engine.Request{
		SiteID:           c.Query("site_id"),
		Latitude:         lat,
		Longitude:        lon,
		PlantCapacityMW:  capacityMW,
		PanelAreaM2:      panelArea,
		DustRate:         dustRate,
		ElectricityPrice: price,
		CleaningCost:     cleaningCost,
		CarbonWeight:     carbonWeight,
		HorizonDays:      horizon,
		WaterUsageLiters: s.defaults.WaterUsageLiters,
		WaterUnitCost:    s.defaults.WaterUnitCost,
		Samples:          samples,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}

	siteID := c.Query("site_id")
	if siteID == "" {
		siteID = "adhoc"
	}
	if err := s.store.AddDecision(siteID, time.Since(start), decision); err != nil {
		logger.Warn("api: failed to record decision: %v", err)
	}

	c.JSON(http.StatusOK, decision)
}

func (s *Server) handleRainForecast(c *gin.Context) {
	lat, err := queryFloat(c, "lat", 0, true)
	if err != nil {
		badRequest(c, err)
		return
	}
	lon, err := queryFloat(c, "lon", 0, true)
	if err != nil {
		badRequest(c, err)
		return
	}
	volume, err := queryFloat(c, "planned_volume_liters", s.defaults.WaterUsageLiters, false)
	if err != nil {
		badRequest(c, err)
		return
	}

	samples, err := s.provider.Daily(c.Request.Context(), lat, lon, time.Now(), rain.LookaheadDays)
	if err != nil {
		s.writeError(c, err)
		return
	}

	advice, adviseErr := rain.Advise(rain.Inputs{
		Forecast:       samples,
		PlannedVolumeL: volume,
		WaterUnitCost:  s.defaults.WaterUnitCost,
	})
	if adviseErr != nil {
		if errors.Is(adviseErr, models.ErrForecastUnavailable) {
			// Fail safe when the upstream answered but the forecast
			// is too short or malformed: proceed, not an error.
			logger.Warn("api: rain forecast unavailable for (%.4f, %.4f): %v", lat, lon, adviseErr)
			c.JSON(http.StatusOK, models.RainAdvice{
				Decision: models.RecommendProceed,
				Message:  "rain forecast unavailable, proceed with manual cleaning",
			})
			return
		}
		s.writeError(c, adviseErr)
		return
	}

	c.JSON(http.StatusOK, advice)
}

// optimizeRequest is the POST /optimize-farms body.
type optimizeRequest struct {
	Farms       []models.Farm `json:"farms"`
	WaterBudget float64       `json:"water_budget"`
	Mode        string        `json:"mode"`
	// Strategy selects "greedy" (default) or "exact".
	Strategy string `json:"strategy"`
}

func (s *Server) handleOptimizeFarms(c *gin.Context) {
	start := time.Now()

	var req optimizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	mode, err := models.ParseMode(req.Mode)
	if err != nil {
		badRequest(c, err)
		return
	}

	opt := portfolio.New(s.defaults.AvgIrradiance, s.defaults.WaterUnitCost)
	switch req.Strategy {
	case "", "greedy":
	case "exact":
		opt.Strategy = portfolio.StrategyExactDP
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "strategy must be greedy or exact"})
		return
	}

	selection, err := opt.Optimize(c.Request.Context(), req.Farms, req.WaterBudget, mode)
	if err != nil {
		s.writeError(c, err)
		return
	}

	if err := s.store.AddSelection(time.Since(start), selection); err != nil {
		logger.Warn("api: failed to record selection: %v", err)
	}

	c.JSON(http.StatusOK, selection)
}

func (s *Server) handleHistory(c *gin.Context) {
	records, err := s.store.GetDecisions(c.Param("site_id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}

// writeError maps the error taxonomy onto HTTP statuses.
func (s *Server) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrConfig):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrDataUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		logger.Error("api: internal error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func queryFloat(c *gin.Context, name string, fallback float64, required bool) (float64, error) {
	raw := c.Query(name)
	if raw == "" {
		if required {
			return 0, errors.New(name + " is required")
		}
		return fallback, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errors.New(name + " must be a number")
	}
	return v, nil
}

func queryInt(c *gin.Context, name string, fallback int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New(name + " must be an integer")
	}
	return v, nil
}
