package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"velolab/internal/strava"
)

// ActivitySource is the part of the Strava client the sync needs
type ActivitySource interface {
	GetActivities(ctx context.Context, after time.Time, page, perPage int) ([]strava.Activity, error)
	GetActivityStreams(ctx context.Context, activityID int64) (*strava.Streams, error)
}

// SyncService pulls rides from Strava and runs them through the analyzer
type SyncService struct {
	client    ActivitySource
	analyzer  *Analyzer
	athleteID string
	logger    *zap.Logger
}

// NewSyncService creates a sync service feeding the given athlete's chart
func NewSyncService(client ActivitySource, analyzer *Analyzer, athleteID string, logger *zap.Logger) *SyncService {
	return &SyncService{
		client:    client,
		analyzer:  analyzer,
		athleteID: athleteID,
		logger:    logger,
	}
}

// SyncProgress reports progress during sync
type SyncProgress struct {
	Phase           string // "activities", "analysis"
	Total           int
	Completed       int
	CurrentActivity string
}

// SyncResult contains the results of a sync operation
type SyncResult struct {
	ActivitiesFetched int
	RidesAnalyzed     int
	LoadsApplied      int
	Results           []*Result
	Errors            []error
}

// FetchPayload maps one activity's streams into an analysis payload: 1 Hz
// power and heart rate plus the mean altitude and temperature.
func (s *SyncService) FetchPayload(ctx context.Context, activityID int64) (*Payload, error) {
	streams, err := s.client.GetActivityStreams(ctx, activityID)
	if err != nil {
		return nil, fmt.Errorf("fetching streams for %d: %w", activityID, err)
	}
	p := &Payload{
		AthleteID:    s.athleteID,
		PowerData:    streams.PowerSamples(),
		HeartRate:    streams.HeartRate(),
		AltitudeM:    streams.MeanAltitude(),
		TemperatureC: streams.MeanTemperature(),
	}
	s.logger.Debug("streams mapped",
		zap.Int64("activity_id", activityID),
		zap.Int("power_samples", len(p.PowerData)),
		zap.Int("hr_samples", len(p.HeartRate)),
	)
	return p, nil
}

// SyncRecent analyzes every ride started after the given time, oldest first,
// so each ride's load lands on the chart in date order.
func (s *SyncService) SyncRecent(ctx context.Context, after time.Time, progress chan<- SyncProgress) (*SyncResult, error) {
	if progress != nil {
		defer close(progress)
	}

	result := &SyncResult{}

	rides, err := s.listRides(ctx, after, progress, result)
	if err != nil {
		return result, fmt.Errorf("listing activities: %w", err)
	}

	if err := s.analyzeRides(ctx, rides, progress, result); err != nil {
		return result, fmt.Errorf("analyzing rides: %w", err)
	}

	return result, nil
}

// listRides pages through activities and keeps rides with power
func (s *SyncService) listRides(ctx context.Context, after time.Time, progress chan<- SyncProgress, result *SyncResult) ([]strava.Activity, error) {
	var rides []strava.Activity
	page := 1

	for len(rides) < SyncMaxActivities {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		activities, err := s.client.GetActivities(ctx, after, page, SyncPageSize)
		if err != nil {
			return nil, fmt.Errorf("fetching page %d: %w", page, err)
		}
		if len(activities) == 0 {
			break
		}
		result.ActivitiesFetched += len(activities)

		for _, a := range activities {
			if isRide(a) && a.DeviceWatts {
				rides = append(rides, a)
			}
		}

		if progress != nil {
			progress <- SyncProgress{Phase: "activities", Total: result.ActivitiesFetched, Completed: len(rides)}
		}

		if len(activities) < SyncPageSize {
			break
		}
		page++
	}

	if len(rides) > SyncMaxActivities {
		rides = rides[:SyncMaxActivities]
	}
	sort.SliceStable(rides, func(i, j int) bool { return rides[i].StartDate.Before(rides[j].StartDate) })
	return rides, nil
}

func (s *SyncService) analyzeRides(ctx context.Context, rides []strava.Activity, progress chan<- SyncProgress, result *SyncResult) error {
	for i, ride := range rides {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if progress != nil {
			progress <- SyncProgress{Phase: "analysis", Total: len(rides), Completed: i, CurrentActivity: ride.Name}
		}

		p, err := s.FetchPayload(ctx, ride.ID)
		if err != nil {
			result.Errors = append(result.Errors, err)
			continue
		}
		p.Date = ride.StartDate.UTC().Format(time.DateOnly)

		res, err := s.analyzer.Analyze(ctx, p)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("activity %d (%s): %w", ride.ID, ride.Name, err))
			continue
		}
		result.RidesAnalyzed++
		if res.PMC != nil {
			result.LoadsApplied++
		}
		result.Results = append(result.Results, res)
	}

	if progress != nil {
		progress <- SyncProgress{Phase: "analysis", Total: len(rides), Completed: len(rides)}
	}
	return nil
}

func isRide(a strava.Activity) bool {
	switch a.SportType {
	case "Ride", "VirtualRide", "GravelRide", "MountainBikeRide", "EBikeRide":
		return true
	}
	return a.Type == "Ride" || a.Type == "VirtualRide"
}
