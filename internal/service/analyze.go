package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"velolab/internal/analysis"
	"velolab/internal/cache"
	"velolab/internal/config"
	"velolab/internal/metrics"
)

var (
	// ErrEmptyPayload is returned when a payload has nothing to analyze
	ErrEmptyPayload = errors.New("payload carries no rr, power, efforts or load")
	// ErrTimeout is returned when the request deadline passes before all modules finish
	ErrTimeout = errors.New("analysis timed out")
	// ErrNoStore is returned by PMC operations when no store is configured
	ErrNoStore = errors.New("no pmc store configured")
)

// PMCStore is the athlete-keyed append-only PMC persistence
type PMCStore interface {
	LatestPMC(ctx context.Context, athleteID string) (*analysis.PMCState, error)
	PMCHistory(ctx context.Context, athleteID string, from, to time.Time) ([]analysis.PMCState, error)
	AppendPMC(ctx context.Context, athleteID string, date time.Time, load float64, cfg analysis.PMCConfig) (analysis.PMCUpdate, error)
	SupersedePMC(ctx context.Context, athleteID string, states []analysis.PMCState) error
	DailyLoads(ctx context.Context, athleteID string) ([]analysis.DailyLoad, error)
}

// ResultCache stores analysis results by key
type ResultCache interface {
	Get(ctx context.Context, key string, dst any) error
	Set(ctx context.Context, key string, value any) error
}

// Analyzer runs the analysis pipeline over payloads
type Analyzer struct {
	cfg    analysis.Config
	zones  analysis.HRZones
	body   analysis.MetabolicInput
	store  PMCStore
	cache  ResultCache
	logger *zap.Logger
	now    func() time.Time
}

// Option configures an Analyzer
type Option func(*Analyzer)

// WithStore enables PMC persistence for payloads carrying an athlete id
func WithStore(s PMCStore) Option {
	return func(a *Analyzer) { a.store = s }
}

// WithCache enables result caching
func WithCache(c ResultCache) Option {
	return func(a *Analyzer) { a.cache = c }
}

// WithClock overrides the clock used for undated loads
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) { a.now = now }
}

// NewAnalyzer creates an analyzer. The athlete FTP overrides the NP config
// when set.
func NewAnalyzer(cfg *config.Config, logger *zap.Logger, opts ...Option) *Analyzer {
	a := &Analyzer{
		cfg:    cfg.Analysis,
		zones:  analysis.HRZones{RestingHR: cfg.Athlete.RestingHR, MaxHR: cfg.Athlete.MaxHR},
		logger: logger,
		now:    time.Now,
	}
	a.body = analysis.MetabolicInput{
		WeightKg:       cfg.Athlete.WeightKg,
		HeightCm:       cfg.Athlete.HeightCm,
		Age:            cfg.Athlete.Age,
		Sex:            cfg.Athlete.Sex,
		BodyFatPercent: cfg.Athlete.BodyFatPercent,
		Somatotype:     cfg.Athlete.Somatotype,
	}
	if cfg.Athlete.FTP > 0 {
		a.cfg.NP.FTP = cfg.Athlete.FTP
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Config returns the analysis thresholds in use
func (a *Analyzer) Config() analysis.Config { return a.cfg }

// Analyze runs every module the payload has inputs for. Module failures are
// reported in Result.Status and never fail the call; only an empty or
// undatable payload, or an expired deadline, returns an error.
func (a *Analyzer) Analyze(ctx context.Context, p *Payload) (*Result, error) {
	if p == nil || !p.HasSignals() {
		return nil, ErrEmptyPayload
	}
	date, err := p.ParseDate(a.now())
	if err != nil {
		return nil, err
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultRequestTimeout)
		defer cancel()
	}

	start := time.Now()
	res, err := a.analyzeSignals(ctx, p)
	if err != nil {
		return nil, err
	}
	res.RequestID = uuid.NewString()
	res.AthleteID = p.AthleteID

	a.updatePMC(ctx, p, date, res)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTimeout, err)
	}

	a.logger.Info("analysis complete",
		zap.String("request_id", res.RequestID),
		zap.String("athlete_id", p.AthleteID),
		zap.Int("modules", len(res.Status)),
		zap.Bool("cached", res.Cached),
		zap.Duration("elapsed", time.Since(start)),
	)
	return res, nil
}

// analyzeSignals runs the pure modules, consulting the cache first
func (a *Analyzer) analyzeSignals(ctx context.Context, p *Payload) (*Result, error) {
	var key string
	if a.cache != nil {
		k, err := cache.Key("analyze", a.cacheView(p))
		if err != nil {
			a.logger.Warn("skipping cache", zap.Error(err))
		} else {
			key = k
			var cached Result
			err := a.cache.Get(ctx, key, &cached)
			switch {
			case err == nil:
				cached.Cached = true
				if cached.Status == nil {
					cached.Status = make(map[string]ModuleStatus)
				}
				return &cached, nil
			case !errors.Is(err, cache.ErrMiss):
				a.logger.Warn("cache read failed", zap.Error(err))
			}
		}
	}

	res, err := a.compute(ctx, p)
	if err != nil {
		return nil, err
	}

	if key != "" {
		if err := a.cache.Set(ctx, key, res); err != nil {
			a.logger.Warn("cache write failed", zap.Error(err))
		}
	}
	return res, nil
}

func (a *Analyzer) cacheView(p *Payload) cacheView {
	return cacheView{
		RR:         p.RR(),
		Power:      p.PowerData,
		HeartRate:  p.HeartRate,
		Altitude:   p.AltitudeM,
		Temp:       p.TemperatureC,
		Efforts:    p.Efforts,
		HRVHistory: p.HRVHistory,
		Config:     a.cfg,
		FTP:        a.cfg.NP.FTP,
		Body:       a.bodyFor(p),
	}
}

// run collects module statuses from concurrent branches
type run struct {
	mu     sync.Mutex
	res    *Result
	logger *zap.Logger
}

// record stores the outcome of one module and reports whether it succeeded
func (r *run) record(module string, started time.Time, err error) bool {
	kind := errorKind(err)
	metrics.ModuleRuns.WithLabelValues(module, kind).Inc()
	metrics.ModuleDuration.WithLabelValues(module).Observe(time.Since(started).Seconds())

	st := ModuleStatus{OK: err == nil}
	if err != nil {
		st.ErrorKind = kind
		st.Message = err.Error()
		r.logger.Debug("module failed", zap.String("module", module), zap.String("kind", kind), zap.Error(err))
	}

	r.mu.Lock()
	r.res.Status[module] = st
	r.mu.Unlock()
	return err == nil
}

// compute runs the rr and power branches in parallel, then the modules that
// need both.
func (a *Analyzer) compute(ctx context.Context, p *Payload) (*Result, error) {
	r := &run{res: &Result{Status: make(map[string]ModuleStatus)}, logger: a.logger}

	var (
		wg       sync.WaitGroup
		rrSeries *analysis.CleanedSeries
		pwSeries *analysis.CleanedSeries
	)

	if rr := p.RR(); len(rr) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rrSeries = a.rrBranch(r, rr)
		}()
	}
	if len(p.PowerData) > 0 || len(p.Efforts) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pwSeries = a.powerBranch(r, p)
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrTimeout, ctx.Err())
	}

	res := r.res
	if len(res.DFA) > 0 {
		start := time.Now()
		var power []analysis.Point
		if pwSeries != nil {
			power = pwSeries.Points
		}
		vt1, err := analysis.DetectVT1(res.DFA, power, a.cfg.VT1)
		if r.record(analysis.ModuleVT1, start, err) {
			res.VT1 = &vt1
		}
	}

	if pwSeries != nil {
		hr := validHeartRate(p.HeartRate)
		if len(hr) == 0 && rrSeries != nil {
			hr = heartRateFromRR(rrSeries)
		}
		if len(hr) > 0 {
			start := time.Now()
			eff, err := efficiency(pwSeries.Points, hr)
			if r.record(ModuleEfficiency, start, err) {
				res.Efficiency = eff
			}
		}
	}

	if res.HRV != nil && res.HRV.RMSSD != nil && len(p.HRVHistory) > 0 {
		start := time.Now()
		rd, err := analysis.AssessReadiness(p.HRVHistory, *res.HRV.RMSSD, a.cfg.Readiness)
		if r.record(ModuleReadiness, start, err) {
			res.Readiness = &rd
		}
	}

	return res, nil
}

// rrBranch runs preprocessing, HRV and DFA over the rr samples
func (a *Analyzer) rrBranch(r *run, rr []analysis.RRSample) *analysis.CleanedSeries {
	start := time.Now()
	series, err := analysis.PreprocessRR(rr, a.cfg.RR)
	if !r.record(ModulePreprocessRR, start, err) {
		return nil
	}
	r.res.RRSeries = summarizeSeries(series)

	start = time.Now()
	hrv, err := analysis.ComputeHRV(series)
	if r.record(analysis.ModuleHRV, start, err) {
		r.res.HRV = &hrv
	}

	start = time.Now()
	windows, err := analysis.DFAAlpha1(series, a.cfg.DFA)
	if r.record(analysis.ModuleDFA, start, err) {
		r.res.DFA = windows
	}
	return series
}

// powerBranch runs preprocessing, power summary, NP correction, CP and W'
func (a *Analyzer) powerBranch(r *run, p *Payload) *analysis.CleanedSeries {
	res := r.res
	var series *analysis.CleanedSeries

	if len(p.PowerData) > 0 {
		start := time.Now()
		s, err := analysis.PreprocessPower(p.PowerData, a.cfg.Power)
		if r.record(ModulePreprocessPower, start, err) {
			series = s
			res.PowerSeries = summarizeSeries(s)
		}
	}

	if series != nil {
		start := time.Now()
		summary, err := analysis.SummarizePower(series, a.cfg.NP)
		if r.record(ModulePower, start, err) {
			res.Power = &summary

			start = time.Now()
			alt, temp := a.cfg.NP.ReferenceAltitude, a.cfg.NP.ReferenceTemperature
			if p.AltitudeM != nil {
				alt = *p.AltitudeM
			}
			if p.TemperatureC != nil {
				temp = *p.TemperatureC
			}
			corr, err := analysis.CorrectNormalizedPower(summary.NormalizedPower, alt, temp, a.cfg.NP)
			if r.record(analysis.ModuleNP, start, err) {
				res.NP = &corr
			}
		}
	}

	// Derived efforts and the W' balance input carry the NP correction so
	// CP is fitted in the same environment-adjusted watts as the load.
	factor := 1.0
	if res.NP != nil && res.NP.Applied {
		factor = res.NP.Factor
	}

	efforts := p.Efforts
	if len(efforts) == 0 && series != nil {
		efforts = scaleEfforts(analysis.BestEfforts(series, a.cfg.CP.Durations), factor)
		res.Efforts = efforts
	}
	if len(efforts) == 0 {
		return series
	}

	start := time.Now()
	model, err := analysis.FitCriticalPower(efforts, a.cfg.CP)
	r.record(analysis.ModuleCP, start, err)
	var fq *analysis.FitQualityError
	if err == nil || errors.As(err, &fq) {
		res.CP = &model
	}

	if model.Valid() && series != nil {
		start = time.Now()
		bal, err := analysis.ComputeWPrimeBalance(scalePoints(series.Points, factor), *model.CPWatts, *model.WPrimeJoules)
		if r.record(analysis.ModuleWPrime, start, err) {
			res.WPrime = &WPrimeSummary{
				Min:        bal.Min,
				MinAt:      bal.MinAt,
				MaxDeficit: bal.MaxDeficit,
				Exhausted:  bal.Exhausted,
			}
		}
	}

	a.profileBranch(r, p, series, efforts, factor)
	return series
}

// bodyFor returns the athlete body data with the payload weight applied
func (a *Analyzer) bodyFor(p *Payload) analysis.MetabolicInput {
	body := a.body
	if p.WeightKg != nil {
		body.WeightKg = *p.WeightKg
	}
	return body
}

// metabolicMinDuration is the longest power the metabolic estimate reads, seconds
const metabolicMinDuration = 900

// profileBranch classifies the rider and estimates the metabolic profile
// from the power-duration curve. Both need a body weight.
func (a *Analyzer) profileBranch(r *run, p *Payload, series *analysis.CleanedSeries, efforts []analysis.Effort, factor float64) {
	body := a.bodyFor(p)
	if body.WeightKg <= 0 {
		return
	}
	res := r.res

	merged := append([]analysis.Effort(nil), efforts...)
	if series != nil {
		merged = append(merged, scaleEfforts(analysis.BestEfforts(series, analysis.ProfileDurations), factor)...)
	}

	start := time.Now()
	curve, err := analysis.NormalizeCurve(merged)
	if err == nil && len(curve) == 0 {
		err = &analysis.InsufficientDataError{Module: analysis.ModuleProfile, Need: 1}
	}
	if err != nil {
		r.record(analysis.ModuleProfile, start, err)
		return
	}
	profile, err := analysis.AnalyzePowerProfile(curve, body.WeightKg, res.CP)
	if r.record(analysis.ModuleProfile, start, err) {
		res.Profile = &profile
	}

	start = time.Now()
	var metabolic analysis.MetabolicProfile
	if longest := curve[len(curve)-1].DurationSeconds; longest < metabolicMinDuration {
		err = &analysis.InsufficientDataError{Module: analysis.ModuleMetabolic, Need: metabolicMinDuration, Got: int(longest)}
	} else {
		body.PMax = analysis.PowerAt(curve, 5)
		body.MMP3 = analysis.PowerAt(curve, 180)
		body.MMP6 = analysis.PowerAt(curve, 360)
		body.MMP15 = analysis.PowerAt(curve, 900)
		metabolic, err = analysis.EstimateMetabolicProfile(body)
	}
	if r.record(analysis.ModuleMetabolic, start, err) {
		res.Metabolic = &metabolic
	}
}

func scaleEfforts(efforts []analysis.Effort, factor float64) []analysis.Effort {
	if factor == 1 {
		return efforts
	}
	out := make([]analysis.Effort, len(efforts))
	for i, e := range efforts {
		out[i] = analysis.Effort{DurationSeconds: e.DurationSeconds, Watts: e.Watts * factor}
	}
	return out
}

func scalePoints(points []analysis.Point, factor float64) []analysis.Point {
	if factor == 1 {
		return points
	}
	out := make([]analysis.Point, len(points))
	for i, p := range points {
		out[i] = analysis.Point{T: p.T, V: p.V * factor}
	}
	return out
}

// updatePMC applies the payload load to the athlete's chart. It runs when a
// load is given, prior history is supplied or the athlete has a stored chart.
func (a *Analyzer) updatePMC(ctx context.Context, p *Payload, date time.Time, res *Result) {
	persist := a.store != nil && p.AthleteID != ""
	if p.Load == nil && len(p.PriorPMC) == 0 && !persist {
		return
	}
	load, ok := a.resolveLoad(p, res)
	if !ok {
		return
	}

	start := time.Now()
	var (
		update analysis.PMCUpdate
		err    error
	)
	if persist {
		update, err = a.store.AppendPMC(ctx, p.AthleteID, date, load, a.cfg.PMC)
	} else {
		history := append([]analysis.PMCState(nil), p.PriorPMC...)
		sort.SliceStable(history, func(i, j int) bool { return history[i].Date.Before(history[j].Date) })
		update, err = analysis.UpdatePMC(history, date, load, a.cfg.PMC)
	}

	r := &run{res: res, logger: a.logger}
	if r.record(analysis.ModulePMC, start, err) {
		res.PMC = &update
		if p.AthleteID != "" {
			metrics.CurrentTSB.WithLabelValues(p.AthleteID).Set(update.Current.TSB)
		}
	}
}

// resolveLoad picks the day's training stress: the explicit load, else TSS
// from the corrected NP, else HRSS from heart rate.
func (a *Analyzer) resolveLoad(p *Payload, res *Result) (float64, bool) {
	if p.Load != nil {
		return *p.Load, true
	}
	if res.Power != nil && a.cfg.NP.FTP > 0 {
		np := res.Power.NormalizedPower
		if res.NP != nil {
			np = res.NP.CorrectedNP
		}
		return analysis.TrainingStressScore(res.Power.DurationSeconds, np, a.cfg.NP.FTP), true
	}
	if res.HRV != nil && res.RRSeries != nil && res.RRSeries.DurationS > 0 {
		return analysis.HRSS(res.RRSeries.DurationS, res.HRV.MeanHR, a.zones), true
	}
	return 0, false
}

func summarizeSeries(s *analysis.CleanedSeries) *SeriesSummary {
	return &SeriesSummary{
		Samples:      len(s.Points),
		Segments:     len(s.Segments),
		Removed:      s.Removed,
		Interpolated: s.Interpolated,
		DurationS:    s.Duration(),
		Quality:      analysis.DataQuality(s),
	}
}

func efficiency(power, hr []analysis.Point) (*EfficiencySummary, error) {
	pairs := analysis.PairPowerHR(power, hr, HRPairTolerance)
	if len(pairs) < 2 {
		return nil, &analysis.InsufficientDataError{Module: ModuleEfficiency, Need: 2, Got: len(pairs)}
	}
	var sum float64
	for _, s := range pairs {
		sum += s.Watts
	}
	avg := sum / float64(len(pairs))
	return &EfficiencySummary{
		EfficiencyFactor: analysis.EfficiencyFactor(pairs),
		Decoupling:       analysis.AerobicDecoupling(pairs),
		CardiacDrift:     analysis.CardiacDrift(pairs, avg),
		SteadyStatePct:   analysis.SteadyStatePct(pairs, avg),
		Pairs:            len(pairs),
	}, nil
}

// validHeartRate drops samples outside the plausible heart rate range
func validHeartRate(hr []analysis.Point) []analysis.Point {
	out := make([]analysis.Point, 0, len(hr))
	for _, p := range hr {
		if p.V >= MinValidHeartrate && p.V <= MaxValidHeartrate {
			out = append(out, p)
		}
	}
	return out
}

// heartRateFromRR converts cleaned rr intervals to instantaneous heart rate
func heartRateFromRR(s *analysis.CleanedSeries) []analysis.Point {
	out := make([]analysis.Point, 0, len(s.Points))
	for _, p := range s.Points {
		if p.V > 0 {
			out = append(out, analysis.Point{T: p.T, V: 60000 / p.V})
		}
	}
	return validHeartRate(out)
}

// errorKind maps an error to its status kind
func errorKind(err error) string {
	var (
		insufficient *analysis.InsufficientDataError
		fitQuality   *analysis.FitQualityError
		invalidInput *analysis.InvalidInputError
	)
	switch {
	case err == nil:
		return KindOK
	case errors.As(err, &insufficient):
		return KindInsufficientData
	case errors.As(err, &fitQuality):
		return KindFitQuality
	case errors.As(err, &invalidInput):
		return KindInvalidInput
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled), errors.Is(err, ErrTimeout):
		return KindTimeout
	default:
		return KindInternal
	}
}

// ErrorKind exposes the status kind of err for callers mapping errors
func ErrorKind(err error) string { return errorKind(err) }
