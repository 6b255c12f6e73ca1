package models

import "errors"

// Error taxonomy shared by every engine surface. Callers classify failures
// with errors.Is; constructors wrap these sentinels with the offending field.
var (
	// ErrConfig marks invalid caller-supplied parameters: budgets, areas,
	// weights, malformed required fields. Fatal for the request, no retry.
	ErrConfig = errors.New("config error")

	// ErrDataUnavailable marks an upstream weather fetch failure. The engine
	// never substitutes data silently; callers either abort or switch to an
	// explicitly flagged demo provider.
	ErrDataUnavailable = errors.New("weather data unavailable")

	// ErrForecastUnavailable marks a missing or too-short precipitation
	// forecast. Callers must fail safe to PROCEED rather than wait.
	ErrForecastUnavailable = errors.New("rain forecast unavailable")

	// ErrNumericDomain marks a violated numeric guard (NaN/Inf priority,
	// division by zero outside the sanctioned zero-water case). Indicates an
	// invariant bug rather than bad input.
	ErrNumericDomain = errors.New("numeric domain error")
)
