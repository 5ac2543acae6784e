package requests

import (
	"github.com/gazetteer-geocoder/internal/normalizer"
)

// ResolveRequest is the body of a single resolution call.
type ResolveRequest struct {
	Text       string             `json:"text" binding:"required"`
	Constraint *ConstraintRequest `json:"constraint,omitempty"`
	UseCache   *bool              `json:"use_cache,omitempty"`
}

// ShouldUseCache defaults to true when the flag is omitted.
func (r *ResolveRequest) ShouldUseCache() bool {
	return r.UseCache == nil || *r.UseCache
}

// ConstraintRequest carries explicit administrative qualifiers.
type ConstraintRequest struct {
	State   string `json:"state,omitempty"`
	County  string `json:"county,omitempty"`
	Payam   string `json:"payam,omitempty"`
	Boma    string `json:"boma,omitempty"`
	Village string `json:"village,omitempty"`
}

// ToConstraint normalizes the fields into the resolver's constraint form.
func (c *ConstraintRequest) ToConstraint(tn *normalizer.TextNormalizer) *normalizer.Constraint {
	if c == nil {
		return nil
	}
	return &normalizer.Constraint{
		State:   tn.Normalize(c.State),
		County:  tn.Normalize(c.County),
		Payam:   tn.Normalize(c.Payam),
		Boma:    tn.Normalize(c.Boma),
		Village: tn.Normalize(c.Village),
	}
}

// BatchRequest submits texts for asynchronous resolution.
type BatchRequest struct {
	Texts []string `json:"texts" binding:"required,min=1,max=10000"`
}

// ExtractRequest submits a document for location extraction.
type ExtractRequest struct {
	Text string `json:"text" binding:"required"`
}

// SettlementRequest creates or updates a settlement point.
type SettlementRequest struct {
	FeatureID string   `json:"feature_id,omitempty"`
	Name      string   `json:"name" binding:"required"`
	Lon       float64  `json:"lon" binding:"required"`
	Lat       float64  `json:"lat" binding:"required"`
	Aliases   []string `json:"aliases,omitempty"`
	State     string   `json:"state,omitempty"`
	County    string   `json:"county,omitempty"`
	Payam     string   `json:"payam,omitempty"`
	Boma      string   `json:"boma,omitempty"`
	Source    string   `json:"source,omitempty"`
}

// AliasRequest adds an alternate name to an existing feature.
type AliasRequest struct {
	Layer     string `json:"layer" binding:"required"`
	FeatureID string `json:"feature_id" binding:"required"`
	Alias     string `json:"alias" binding:"required"`
}
