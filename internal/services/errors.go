package services

import "errors"

// Dataset service errors
var (
	ErrNoData         = errors.New("no data loaded")
	ErrUnknownCountry = errors.New("unknown country")
	ErrUnknownMetric  = errors.New("unknown metric")
	ErrInvalidRange   = errors.New("invalid year range")
)
