package feature

import (
	ierr "github.com/flexprice/gatekeeper/internal/errors"
	"github.com/flexprice/gatekeeper/internal/types"
)

// Feature represents a named capability customers can be entitled to use.
// Identity, type and meter kind are immutable once an entitlement references
// the feature; only display metadata may change after that.
type Feature struct {
	ID            string            `db:"id" json:"id"`
	Name          string            `db:"name" json:"name"`
	LookupKey     string            `db:"lookup_key" json:"lookup_key"`
	Description   string            `db:"description" json:"description"`
	Type          types.FeatureType `db:"type" json:"type"`
	MeterKind     types.MeterKind   `db:"meter_kind" json:"meter_kind"`
	UnitSingular  string            `db:"unit_singular" json:"unit_singular,omitempty"`
	UnitPlural    string            `db:"unit_plural" json:"unit_plural,omitempty"`
	Metadata      types.Metadata    `db:"metadata" json:"metadata,omitempty"`
	EnvironmentID string            `db:"environment_id" json:"environment_id"`
	types.BaseModel
}

// Validate performs validation on the feature
func (f *Feature) Validate() error {
	if f.Name == "" {
		return ierr.NewError("feature name is required").
			WithHint("Please provide a feature name").
			Mark(ierr.ErrValidation)
	}
	if err := f.Type.Validate(); err != nil {
		return err
	}
	if err := f.MeterKind.Validate(); err != nil {
		return err
	}

	switch f.Type {
	case types.FeatureTypeBoolean:
		if f.MeterKind != types.MeterKindNone {
			return ierr.NewError("boolean features cannot be metered").
				WithHint("Boolean features carry no usage counter").
				WithReportableDetails(map[string]any{
					"feature_id": f.ID,
					"meter_kind": f.MeterKind,
				}).
				Mark(ierr.ErrValidation)
		}
	case types.FeatureTypeMetered:
		if f.MeterKind == types.MeterKindNone {
			return ierr.NewError("metered features require a meter kind").
				WithHint("Please specify incremental or fluctuating metering").
				WithReportableDetails(map[string]any{
					"feature_id": f.ID,
				}).
				Mark(ierr.ErrValidation)
		}
	}

	return nil
}

// IsMetered reports whether the feature carries a usage counter
func (f *Feature) IsMetered() bool {
	return f.Type == types.FeatureTypeMetered
}
