package types

import (
	ierr "github.com/flexprice/gatekeeper/internal/errors"
	"github.com/samber/lo"
)

type FeatureType string

const (
	FeatureTypeBoolean FeatureType = "boolean"
	FeatureTypeMetered FeatureType = "metered"
)

func (f FeatureType) String() string {
	return string(f)
}

func (f FeatureType) Validate() error {
	allowed := []FeatureType{
		FeatureTypeBoolean,
		FeatureTypeMetered,
	}
	if !lo.Contains(allowed, f) {
		return ierr.NewError("invalid feature type").
			WithHint("Feature type must be boolean or metered").
			WithReportableDetails(map[string]any{
				"feature_type": f,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// MeterKind describes how usage reports move a feature's counter.
type MeterKind string

const (
	// MeterKindNone marks features that carry no usage counter at all
	MeterKindNone MeterKind = "none"
	// MeterKindIncremental counters only grow within a period (DELTA reports)
	MeterKindIncremental MeterKind = "incremental"
	// MeterKindFluctuating counters can move both ways (SET reports, negative deltas)
	MeterKindFluctuating MeterKind = "fluctuating"
)

func (m MeterKind) String() string {
	return string(m)
}

func (m MeterKind) Validate() error {
	allowed := []MeterKind{
		MeterKindNone,
		MeterKindIncremental,
		MeterKindFluctuating,
	}
	if !lo.Contains(allowed, m) {
		return ierr.NewError("invalid meter kind").
			WithHint("Meter kind must be none, incremental or fluctuating").
			WithReportableDetails(map[string]any{
				"meter_kind": m,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
