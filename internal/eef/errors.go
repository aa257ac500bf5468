package eef

import "errors"

var (
	// ErrLengthMismatch is returned when the input series differ in length.
	ErrLengthMismatch = errors.New("input series lengths differ")

	// ErrMissingLongitude is returned when gain is enabled without a longitude.
	ErrMissingLongitude = errors.New("local-time gain requires a longitude")

	// ErrMissingStart is returned when gain is enabled without a start instant.
	ErrMissingStart = errors.New("local-time gain requires a start instant")

	// ErrInvalidCadence is returned for a zero or negative cadence.
	ErrInvalidCadence = errors.New("cadence must be positive")

	ErrEmptyTable = errors.New("local-time table needs at least two points")
	ErrTableOrder = errors.New("local-time table hours must be strictly increasing")
)
