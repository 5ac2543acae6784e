package services

import (
	"context"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"github.com/gazetteer-geocoder/app/config"
	"github.com/gazetteer-geocoder/app/models"
	"github.com/gazetteer-geocoder/internal/index"
	"github.com/gazetteer-geocoder/internal/normalizer"
	"github.com/gazetteer-geocoder/internal/resolver"
)

func newTestService(t *testing.T) (*GeocodeService, *index.Store) {
	t.Helper()

	features := map[string][]*models.AdminFeature{
		models.LayerState: {
			{FeatureID: "st-wbg", Layer: models.LayerState, Name: "Western Bahr el Ghazal",
				Geometry: orb.MultiPolygon{{{{26, 6}, {29, 6}, {29, 9}, {26, 9}, {26, 6}}}},
				Lineage:  models.Lineage{State: "Western Bahr el Ghazal"}},
		},
		models.LayerCounty: {
			{FeatureID: "cty-wau", Layer: models.LayerCounty, Name: "Wau County",
				Geometry: orb.MultiPolygon{{{{27.5, 7}, {28.5, 7}, {28.5, 8.5}, {27.5, 8.5}, {27.5, 7}}}},
				Lineage:  models.Lineage{State: "Western Bahr el Ghazal", County: "Wau County"}},
		},
	}
	settlements := []*models.SettlementPoint{
		{FeatureID: "pt-wau", Name: "Wau", Lon: 28.0, Lat: 7.7,
			Lineage: models.Lineage{State: "Western Bahr el Ghazal", County: "Wau County"}},
		{FeatureID: "pt-haimasana", Name: "Hai Masana", Lon: 28.01, Lat: 7.71,
			Lineage: models.Lineage{State: "Western Bahr el Ghazal", County: "Wau County"}},
		{FeatureID: "pt-busere", Name: "Busere", Lon: 27.9, Lat: 7.55,
			Lineage: models.Lineage{State: "Western Bahr el Ghazal", County: "Wau County"}},
	}

	store := index.NewStore()
	store.Swap(index.Assemble(features, settlements, normalizer.NewTextNormalizer()))

	logger := zap.NewNop()
	sr := resolver.NewSpatialResolver(store, &config.C, logger)
	cache := NewMemoryCacheService(&config.C.Cache, logger)
	return NewGeocodeService(sr, cache, store, &config.C, logger), store
}

func TestGeocodeCacheTransparency(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	first, err := s.Geocode(ctx, "Wau", nil, true)
	if err != nil {
		t.Fatalf("Geocode: %v", err)
	}
	second, err := s.Geocode(ctx, "Wau", nil, true)
	if err != nil {
		t.Fatalf("Geocode (cached): %v", err)
	}

	if first.FeatureID != second.FeatureID || first.Score != second.Score {
		t.Errorf("cached result differs: %+v vs %+v", first, second)
	}

	stats, err := s.cache.GetStats(ctx)
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats.Hits == 0 {
		t.Error("second lookup should have hit the cache")
	}
}

func TestGeocodeConstraintBypassesCache(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	if _, err := s.Geocode(ctx, "Hai Masana, Wau County", nil, true); err != nil {
		t.Fatalf("Geocode: %v", err)
	}
	if _, err := s.Geocode(ctx, "Hai Masana, Wau County", nil, true); err != nil {
		t.Fatalf("Geocode: %v", err)
	}

	stats, _ := s.cache.GetStats(ctx)
	if stats.Entries != 0 || stats.Hits != 0 {
		t.Errorf("constrained lookups must not touch the cache: %+v", stats)
	}
}

func TestGeocodeStaleVersionMisses(t *testing.T) {
	s, store := newTestService(t)
	ctx := context.Background()

	if _, err := s.Geocode(ctx, "Wau", nil, true); err != nil {
		t.Fatalf("Geocode: %v", err)
	}

	// A rebuild changes the snapshot version, so old fingerprints miss.
	settlements := []*models.SettlementPoint{
		{FeatureID: "pt-wau", Name: "Wau", Lon: 28.0, Lat: 7.7,
			Lineage: models.Lineage{State: "Western Bahr el Ghazal", County: "Wau County"}},
	}
	store.Swap(index.Assemble(map[string][]*models.AdminFeature{}, settlements, normalizer.NewTextNormalizer()))

	before, _ := s.cache.GetStats(ctx)
	if _, err := s.Geocode(ctx, "Wau", nil, true); err != nil {
		t.Fatalf("Geocode after rebuild: %v", err)
	}
	after, _ := s.cache.GetStats(ctx)
	if after.Hits != before.Hits {
		t.Error("lookup after rebuild must not hit stale cache entries")
	}
}

func TestBatchJobLifecycle(t *testing.T) {
	s, _ := newTestService(t)

	status := s.StartBatchJob([]string{"Wau", "Busere", "Xyzzyxx Qqqq"})
	if status.ID == "" || status.Total != 3 {
		t.Fatalf("job status = %+v", status)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		st, err := s.JobStatus(status.ID)
		if err != nil {
			t.Fatalf("JobStatus: %v", err)
		}
		if st.Status == JobStatusCompleted {
			if st.Processed != 3 || st.Matched != 2 {
				t.Errorf("completed job = %+v", st)
			}
			break
		}
		if st.Status == JobStatusFailed {
			t.Fatalf("job failed: %s", st.Error)
		}
		if time.Now().After(deadline) {
			t.Fatal("job did not complete in time")
		}
		time.Sleep(10 * time.Millisecond)
	}

	results, err := s.JobResults(status.ID)
	if err != nil {
		t.Fatalf("JobResults: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("results = %d", len(results))
	}
	if results[2].IsMatch() {
		t.Error("nonsense input should be a no-match result")
	}

	if _, err := s.JobStatus("nope"); err != ErrJobNotFound {
		t.Errorf("unknown job err = %v", err)
	}
}

func TestBatchJobEviction(t *testing.T) {
	s, _ := newTestService(t)

	old := s.StartBatchJob([]string{"Wau"})
	deadline := time.Now().Add(5 * time.Second)
	for {
		st, err := s.JobStatus(old.ID)
		if err != nil {
			t.Fatalf("JobStatus: %v", err)
		}
		if st.Status == JobStatusCompleted {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("job did not complete in time")
		}
		time.Sleep(10 * time.Millisecond)
	}

	// Age the finished job past retention; the next submission sweeps it.
	s.jobsMu.Lock()
	job := s.jobs[old.ID]
	s.jobsMu.Unlock()
	job.mu.Lock()
	job.CompletedAt = time.Now().UTC().Add(-2 * jobRetention)
	job.mu.Unlock()

	fresh := s.StartBatchJob([]string{"Busere"})

	if _, err := s.JobStatus(old.ID); err != ErrJobNotFound {
		t.Errorf("expired job err = %v, want ErrJobNotFound", err)
	}
	if _, err := s.JobStatus(fresh.ID); err != nil {
		t.Errorf("fresh job should survive the sweep: %v", err)
	}
}

func TestNearby(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	got, err := s.Nearby(ctx, 7.7, 28.0, 5, 10)
	if err != nil {
		t.Fatalf("Nearby: %v", err)
	}
	if len(got) < 2 {
		t.Fatalf("expected wau and hai masana within 5km, got %+v", got)
	}
	if got[0].FeatureID != "pt-wau" || got[0].DistanceKm > 0.001 {
		t.Errorf("closest should be the query point itself: %+v", got[0])
	}
	for i := 1; i < len(got); i++ {
		if got[i].DistanceKm < got[i-1].DistanceKm {
			t.Error("results not sorted by distance")
		}
	}
	for _, r := range got {
		if r.FeatureID == "pt-busere" && r.DistanceKm > 25 {
			t.Errorf("busere distance = %v", r.DistanceKm)
		}
	}

	if _, err := s.Nearby(ctx, 7.7, 28.0, -1, 10); err == nil {
		t.Error("negative radius should error")
	}
}
