package models

// Alternative is a lower-ranked candidate surfaced alongside the best match.
type Alternative struct {
	Layer     string   `bson:"layer" json:"layer"`
	FeatureID string   `bson:"feature_id" json:"feature_id"`
	Name      string   `bson:"name" json:"name"`
	Score     float64  `bson:"score" json:"score"`
	Lon       *float64 `bson:"lon,omitempty" json:"lon,omitempty"`
	Lat       *float64 `bson:"lat,omitempty" json:"lat,omitempty"`
}

// GeocodeResult is the outcome of resolving one location string.
//
// A no-match is a normal result with Score 0 and empty ResolvedLayer, not an
// error. County and state matches never carry coordinates: a point at that
// granularity would be misleadingly precise, so ResolutionTooCoarse is set
// instead.
type GeocodeResult struct {
	InputText      string `bson:"input_text" json:"input_text"`
	NormalizedText string `bson:"normalized_text" json:"normalized_text"`

	ResolvedLayer string  `bson:"resolved_layer,omitempty" json:"resolved_layer,omitempty"`
	FeatureID     string  `bson:"feature_id,omitempty" json:"feature_id,omitempty"`
	MatchedName   string  `bson:"matched_name,omitempty" json:"matched_name,omitempty"`
	Score         float64 `bson:"score" json:"score"`

	Lon *float64 `bson:"lon,omitempty" json:"lon,omitempty"`
	Lat *float64 `bson:"lat,omitempty" json:"lat,omitempty"`

	State   string `bson:"state,omitempty" json:"state,omitempty"`
	County  string `bson:"county,omitempty" json:"county,omitempty"`
	Payam   string `bson:"payam,omitempty" json:"payam,omitempty"`
	Boma    string `bson:"boma,omitempty" json:"boma,omitempty"`
	Village string `bson:"village,omitempty" json:"village,omitempty"`

	ResolutionTooCoarse bool          `bson:"resolution_too_coarse" json:"resolution_too_coarse"`
	Alternatives        []Alternative `bson:"alternatives,omitempty" json:"alternatives,omitempty"`
}

// IsMatch reports whether the result resolved to any layer.
func (r *GeocodeResult) IsMatch() bool {
	return r.ResolvedLayer != ""
}

// HasCoordinates reports whether the result carries a usable point.
func (r *GeocodeResult) HasCoordinates() bool {
	return r.Lon != nil && r.Lat != nil
}
