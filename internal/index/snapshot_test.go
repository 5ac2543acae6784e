package index

import (
	"testing"

	"github.com/mmcloughlin/geohash"

	"github.com/gazetteer-geocoder/app/models"
	"github.com/gazetteer-geocoder/internal/normalizer"
)

func testSnapshot(t *testing.T) *Snapshot {
	t.Helper()
	tn := normalizer.NewTextNormalizer()

	features := map[string][]*models.AdminFeature{
		models.LayerState: {
			{FeatureID: "st-ce", Layer: models.LayerState, Name: "Central Equatoria",
				Lineage: models.Lineage{State: "Central Equatoria"}},
			{FeatureID: "st-wbg", Layer: models.LayerState, Name: "Western Bahr el Ghazal",
				Lineage: models.Lineage{State: "Western Bahr el Ghazal"}},
		},
		models.LayerCounty: {
			{FeatureID: "cty-juba", Layer: models.LayerCounty, Name: "Juba County",
				Lineage: models.Lineage{State: "Central Equatoria", County: "Juba County"}},
			{FeatureID: "cty-wau", Layer: models.LayerCounty, Name: "Wau County",
				Aliases: []string{"Waau"},
				Lineage: models.Lineage{State: "Western Bahr el Ghazal", County: "Wau County"}},
		},
	}
	settlements := []*models.SettlementPoint{
		{FeatureID: "pt-juba", Name: "Juba", Lon: 31.58, Lat: 4.85,
			Lineage: models.Lineage{State: "Central Equatoria", County: "Juba County"}},
		{FeatureID: "pt-wau", Name: "Wau", Lon: 28.0, Lat: 7.7,
			Lineage: models.Lineage{State: "Western Bahr el Ghazal", County: "Wau County"}},
		{FeatureID: "pt-mayen", Name: "Mayen", Lon: 28.1, Lat: 7.6,
			Lineage: models.Lineage{State: "Western Bahr el Ghazal", County: "Wau County"}},
	}
	return Assemble(features, settlements, tn)
}

func TestVersionTracksContent(t *testing.T) {
	tn := normalizer.NewTextNormalizer()

	build := func(alias, county string) *Snapshot {
		features := map[string][]*models.AdminFeature{
			models.LayerCounty: {
				{FeatureID: "cty-wau", Layer: models.LayerCounty, Name: "Wau County",
					Aliases: []string{alias},
					Lineage: models.Lineage{State: "Western Bahr el Ghazal", County: "Wau County"}},
			},
		}
		settlements := []*models.SettlementPoint{
			{FeatureID: "pt-wau", Name: "Wau", Lon: 28.0, Lat: 7.7,
				Lineage: models.Lineage{State: "Western Bahr el Ghazal", County: county}},
		}
		return Assemble(features, settlements, tn)
	}

	base := build("Waau", "Wau County")

	if got := build("Waau", "Wau County").Version(); got != base.Version() {
		t.Errorf("identical data should yield an identical version: %s vs %s", got, base.Version())
	}

	// Renaming an alias keeps every count identical but must still move
	// the version, or stale cache entries would survive the edit.
	if got := build("Wow", "Wau County").Version(); got == base.Version() {
		t.Error("alias rename did not change the version")
	}
	if got := build("Waau", "Jur River County").Version(); got == base.Version() {
		t.Error("lineage correction did not change the version")
	}
}

func TestSnapshotExact(t *testing.T) {
	snap := testSnapshot(t)

	entries := snap.Exact(models.LayerSettlements, "juba")
	if len(entries) != 1 || entries[0].FeatureID != "pt-juba" {
		t.Fatalf("Exact(juba) = %+v", entries)
	}

	aliases := snap.Exact(models.LayerCounty, "waau")
	if len(aliases) != 1 || !aliases[0].IsAlias || aliases[0].FeatureID != "cty-wau" {
		t.Fatalf("alias lookup = %+v", aliases)
	}

	if got := snap.Exact(models.LayerSettlements, "xyzzyxx"); got != nil {
		t.Fatalf("expected no entries, got %+v", got)
	}
}

func TestSnapshotEntriesScoping(t *testing.T) {
	snap := testSnapshot(t)

	all := snap.Entries(models.LayerSettlements, nil)
	if len(all) != 3 {
		t.Fatalf("unscoped pool = %d entries", len(all))
	}

	scoped := snap.Entries(models.LayerSettlements, &normalizer.Constraint{County: "wau"})
	if len(scoped) != 2 {
		t.Fatalf("county-scoped pool = %+v", scoped)
	}
	for _, e := range scoped {
		if e.FeatureID == "pt-juba" {
			t.Fatal("juba should be scoped out by county=wau")
		}
	}

	// A coarse qualifier naming the state still scopes through the county
	// slot.
	byState := snap.Entries(models.LayerSettlements, &normalizer.Constraint{County: "central equatoria"})
	if len(byState) != 1 || byState[0].FeatureID != "pt-juba" {
		t.Fatalf("state-through-county scoping = %+v", byState)
	}
}

func TestLineageAgrees(t *testing.T) {
	tests := []struct {
		a, b     string
		expected bool
	}{
		{"wau", "wau county", true},
		{"waw", "wau county", true},
		{"wau county", "wau", true},
		{"juba", "wau county", false},
		{"central equatoria", "central equatoria", true},
		{"", "wau", false},
		{"county", "county", false},
	}
	for _, tt := range tests {
		if got := LineageAgrees(tt.a, tt.b); got != tt.expected {
			t.Errorf("LineageAgrees(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.expected)
		}
	}
}

func TestSettlementsInCells(t *testing.T) {
	snap := testSnapshot(t)

	cell := geohash.EncodeWithPrecision(7.7, 28.0, 5)
	ids := snap.SettlementsInCells([]string{cell})
	if len(ids) == 0 {
		t.Fatal("expected settlements in wau cell")
	}
	for _, id := range ids {
		if id == "pt-juba" {
			t.Fatal("juba should not appear in wau cell")
		}
	}

	// Coarser cells expand to every bucket underneath them.
	coarse := snap.SettlementsInCells([]string{cell[:3]})
	if len(coarse) < len(ids) {
		t.Fatalf("coarse cell returned fewer ids: %d < %d", len(coarse), len(ids))
	}
}

func TestStoreSwap(t *testing.T) {
	store := NewStore()
	if store.Current() != nil {
		t.Fatal("fresh store should have no snapshot")
	}

	first := testSnapshot(t)
	if prev := store.Swap(first); prev != nil {
		t.Fatal("first swap should return nil")
	}
	if store.Current() != first {
		t.Fatal("current should be the installed snapshot")
	}

	second := testSnapshot(t)
	if prev := store.Swap(second); prev != first {
		t.Fatal("swap should return the replaced snapshot")
	}
	if store.Current() != second {
		t.Fatal("current should be the new snapshot")
	}
}
