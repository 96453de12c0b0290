package repository

import "errors"

var (
	// ErrStoreUnavailable wraps connectivity or permission failures talking to
	// the store. Callers keep their last-known-good state when they see it.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrFeatureExists is returned when creating a feature flag whose name is
	// already registered.
	ErrFeatureExists = errors.New("feature already exists")

	// ErrFeatureNotFound is returned when toggling a flag id that does not exist.
	ErrFeatureNotFound = errors.New("feature not found")

	// ErrReportNotFound is returned when a report id does not exist.
	ErrReportNotFound = errors.New("report not found")
)
