package service

import "time"

const (
	// HR validation thresholds
	MinValidHeartrate = 30
	MaxValidHeartrate = 230

	// HRPairTolerance is how far apart (seconds) a power and heart rate
	// sample may be and still count as simultaneous
	HRPairTolerance = 1.0

	// Sync batch limits
	SyncPageSize      = 50
	SyncMaxActivities = 200

	// DefaultRequestTimeout bounds Analyze when the caller sets no deadline
	DefaultRequestTimeout = 30 * time.Second
)

// Error kinds reported in module status and used as metric labels
const (
	KindOK               = "ok"
	KindInsufficientData = "insufficient_data"
	KindFitQuality       = "fit_quality"
	KindInvalidInput     = "invalid_input"
	KindTimeout          = "timeout"
	KindInternal         = "internal"
)

// Status keys beyond the analysis module names
const (
	ModulePreprocessRR    = "preprocess_rr"
	ModulePreprocessPower = "preprocess_power"
	ModuleReadiness       = "readiness"
	ModulePower           = "power"
	ModuleEfficiency      = "efficiency"
)
