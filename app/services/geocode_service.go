package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/echoface/proximityhash"
	"github.com/mmcloughlin/geohash"
	"go.uber.org/zap"

	"github.com/gazetteer-geocoder/app/config"
	"github.com/gazetteer-geocoder/app/models"
	"github.com/gazetteer-geocoder/helpers/utils"
	"github.com/gazetteer-geocoder/internal/extract"
	"github.com/gazetteer-geocoder/internal/index"
	"github.com/gazetteer-geocoder/internal/normalizer"
	"github.com/gazetteer-geocoder/internal/resolver"
)

// ErrJobNotFound is returned for unknown batch job ids.
var ErrJobNotFound = errors.New("batch job not found")

const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

// perItemEstimate is the planning figure for batch duration estimates,
// measured against uncached resolution.
const perItemEstimate = 25 * time.Millisecond

// jobRetention bounds how long a finished batch job and its results stay
// queryable. Expired jobs are swept when a new job is submitted.
const jobRetention = time.Hour

// BatchJob tracks one asynchronous batch geocode.
type BatchJob struct {
	mu sync.Mutex

	ID          string    `json:"id"`
	Status      string    `json:"status"`
	Total       int       `json:"total"`
	Processed   int       `json:"processed"`
	Matched     int       `json:"matched"`
	CreatedAt   time.Time `json:"created_at"`
	CompletedAt time.Time `json:"completed_at,omitempty"`
	Error       string    `json:"error,omitempty"`

	results []*models.GeocodeResult
}

// BatchJobStatus is a copyable view of a job for API responses.
type BatchJobStatus struct {
	ID          string    `json:"id"`
	Status      string    `json:"status"`
	Total       int       `json:"total"`
	Processed   int       `json:"processed"`
	Matched     int       `json:"matched"`
	CreatedAt   time.Time `json:"created_at"`
	CompletedAt time.Time `json:"completed_at,omitempty"`
	Error       string    `json:"error,omitempty"`
}

// NearbyResult is one settlement within a proximity query.
type NearbyResult struct {
	FeatureID  string  `json:"feature_id"`
	Name       string  `json:"name"`
	Lon        float64 `json:"lon"`
	Lat        float64 `json:"lat"`
	DistanceKm float64 `json:"distance_km"`
	County     string  `json:"county,omitempty"`
	State      string  `json:"state,omitempty"`
}

// GeocodeService fronts the resolver with caching and the batch, document
// and proximity surfaces. Caching is transparent: a cached answer is the
// answer resolution would produce, because the fingerprint binds the
// normalized text to the index version. Constrained lookups bypass the
// cache entirely, the constraint is not part of the key.
type GeocodeService struct {
	resolver  *resolver.SpatialResolver
	extractor *extract.DocumentExtractor
	cache     ICacheService
	snapshots *index.Store
	cfg       *config.GeocoderCfg
	logger    *zap.Logger

	jobsMu sync.RWMutex
	jobs   map[string]*BatchJob
}

func NewGeocodeService(sr *resolver.SpatialResolver, cache ICacheService, snapshots *index.Store, cfg *config.GeocoderCfg, logger *zap.Logger) *GeocodeService {
	s := &GeocodeService{
		resolver:  sr,
		cache:     cache,
		snapshots: snapshots,
		cfg:       cfg,
		logger:    logger,
		jobs:      make(map[string]*BatchJob),
	}
	s.extractor = extract.NewDocumentExtractor(
		func(ctx context.Context, text string) (*models.GeocodeResult, error) {
			return s.Geocode(ctx, text, nil, true)
		},
		&cfg.Extract, logger)
	return s
}

// Geocode resolves text, consulting the cache only for unconstrained
// lookups.
func (s *GeocodeService) Geocode(ctx context.Context, text string, explicit *normalizer.Constraint, useCache bool) (*models.GeocodeResult, error) {
	con := explicit
	if con.IsEmpty() {
		con = s.resolver.ParseConstraint(text)
	}
	cacheable := useCache && con.IsEmpty() && s.cache != nil

	// One snapshot serves both the fingerprint and the resolution, so a
	// concurrent swap cannot cache a result under the wrong version.
	snap := s.snapshots.Current()
	if snap == nil {
		return nil, resolver.ErrDataStore
	}

	var fingerprint, version string
	if cacheable {
		version = snap.Version()
		normalized := s.resolver.Normalizer().Normalize(text)
		fingerprint = s.resolver.Normalizer().Fingerprint(normalized, version)
		if cached, ok := s.cache.Get(ctx, fingerprint); ok {
			hit := *cached
			hit.InputText = text
			return &hit, nil
		}
	}

	result, err := s.resolver.ResolveWithSnapshot(ctx, snap, text, explicit)
	if err != nil {
		return nil, err
	}

	if cacheable && fingerprint != "" {
		if err := s.cache.Set(ctx, fingerprint, result, version); err != nil {
			s.logger.Warn("cache set failed", zap.Error(err))
		}
	}
	return result, nil
}

// StartBatchJob queues texts for asynchronous resolution and returns
// immediately with the job id.
func (s *GeocodeService) StartBatchJob(texts []string) *BatchJobStatus {
	job := &BatchJob{
		ID:        utils.NewID(),
		Status:    JobStatusPending,
		Total:     len(texts),
		CreatedAt: time.Now().UTC(),
	}
	s.jobsMu.Lock()
	s.sweepJobsLocked(time.Now().UTC())
	s.jobs[job.ID] = job
	s.jobsMu.Unlock()

	go s.runBatchJob(job, texts)
	return snapshotJob(job)
}

// sweepJobsLocked deletes finished jobs past retention. Caller holds jobsMu.
func (s *GeocodeService) sweepJobsLocked(now time.Time) {
	for id, job := range s.jobs {
		job.mu.Lock()
		done := job.Status == JobStatusCompleted || job.Status == JobStatusFailed
		expired := done && now.Sub(job.CompletedAt) > jobRetention
		job.mu.Unlock()
		if expired {
			delete(s.jobs, id)
		}
	}
}

func (s *GeocodeService) runBatchJob(job *BatchJob, texts []string) {
	ctx, cancel := context.WithTimeout(context.Background(),
		time.Duration(len(texts)+1)*config.RequestTimeout())
	defer cancel()

	job.mu.Lock()
	job.Status = JobStatusProcessing
	job.mu.Unlock()

	for _, text := range texts {
		result, err := s.Geocode(ctx, text, nil, true)
		if err != nil {
			if errors.Is(err, resolver.ErrEmptyInput) {
				result = &models.GeocodeResult{InputText: text}
			} else {
				job.mu.Lock()
				job.Status = JobStatusFailed
				job.Error = err.Error()
				job.CompletedAt = time.Now().UTC()
				job.mu.Unlock()
				s.logger.Error("batch job failed",
					zap.String("job_id", job.ID), zap.Error(err))
				return
			}
		}
		job.mu.Lock()
		job.results = append(job.results, result)
		job.Processed++
		if result.IsMatch() {
			job.Matched++
		}
		job.mu.Unlock()
	}

	job.mu.Lock()
	job.Status = JobStatusCompleted
	job.CompletedAt = time.Now().UTC()
	job.mu.Unlock()
	s.logger.Info("batch job completed",
		zap.String("job_id", job.ID),
		zap.Int("total", job.Total),
		zap.Int("matched", job.Matched))
}

// JobStatus returns a copy of the job state.
func (s *GeocodeService) JobStatus(id string) (*BatchJobStatus, error) {
	s.jobsMu.RLock()
	job, ok := s.jobs[id]
	s.jobsMu.RUnlock()
	if !ok {
		return nil, ErrJobNotFound
	}
	return snapshotJob(job), nil
}

// JobResults returns the accumulated results of a completed job.
func (s *GeocodeService) JobResults(id string) ([]*models.GeocodeResult, error) {
	s.jobsMu.RLock()
	job, ok := s.jobs[id]
	s.jobsMu.RUnlock()
	if !ok {
		return nil, ErrJobNotFound
	}

	job.mu.Lock()
	defer job.mu.Unlock()
	out := make([]*models.GeocodeResult, len(job.results))
	copy(out, job.results)
	return out, nil
}

// StreamJobResults writes results as NDJSON, one result per line.
func (s *GeocodeService) StreamJobResults(id string, w io.Writer) error {
	results, err := s.JobResults(id)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	for _, r := range results {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}

// EstimateBatchDuration gives callers a planning figure before submitting.
func (s *GeocodeService) EstimateBatchDuration(count int) time.Duration {
	return time.Duration(count) * perItemEstimate
}

// ExtractFromDocument runs the extraction ladder over narrative text.
func (s *GeocodeService) ExtractFromDocument(ctx context.Context, text string) (*extract.ExtractionResult, error) {
	return s.extractor.ExtractLocations(ctx, text)
}

// Nearby returns settlements within radiusKm of a point, closest first. The
// geohash cover bounds the scan to the cells overlapping the radius.
func (s *GeocodeService) Nearby(ctx context.Context, lat, lon, radiusKm float64, limit int) ([]NearbyResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	snap := s.snapshots.Current()
	if snap == nil {
		return nil, resolver.ErrDataStore
	}
	if radiusKm <= 0 {
		return nil, fmt.Errorf("radius must be positive, got %v", radiusKm)
	}

	cells := proximityhash.CreateGeohash(lat, lon, radiusKm*1000, 5)
	cells = proximityhash.CompressGeoHash(cells, 3, 5)
	if len(cells) == 0 {
		cells = []string{geohash.EncodeWithPrecision(lat, lon, 5)}
	}

	var out []NearbyResult
	for _, id := range snap.SettlementsInCells(cells) {
		sp := snap.Settlement(id)
		if sp == nil {
			continue
		}
		dist := haversineKm(lat, lon, sp.Lat, sp.Lon)
		if dist > radiusKm {
			continue
		}
		out = append(out, NearbyResult{
			FeatureID:  sp.FeatureID,
			Name:       sp.Name,
			Lon:        sp.Lon,
			Lat:        sp.Lat,
			DistanceKm: dist,
			County:     sp.Lineage.County,
			State:      sp.Lineage.State,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].DistanceKm != out[j].DistanceKm {
			return out[i].DistanceKm < out[j].DistanceKm
		}
		return out[i].FeatureID < out[j].FeatureID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

const earthRadiusKm = 6371.0088

func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}

func snapshotJob(job *BatchJob) *BatchJobStatus {
	job.mu.Lock()
	defer job.mu.Unlock()
	return &BatchJobStatus{
		ID:          job.ID,
		Status:      job.Status,
		Total:       job.Total,
		Processed:   job.Processed,
		Matched:     job.Matched,
		CreatedAt:   job.CreatedAt,
		CompletedAt: job.CompletedAt,
		Error:       job.Error,
	}
}
