package geo

import "errors"

var (
	// ErrNotFound is returned when an address is not in the datasets.
	ErrNotFound = errors.New("address not found in geo datasets")

	// ErrNotIPv4 is returned for lookups of non-IPv4 addresses.
	ErrNotIPv4 = errors.New("address is not IPv4")

	// ErrFatalStatus is returned when the release server answers with a
	// status that retrying will not fix.
	ErrFatalStatus = errors.New("fatal http status")

	// ErrInvalidURL is returned when a request URL cannot be built.
	ErrInvalidURL = errors.New("invalid url")

	// ErrNoAssets is returned when the latest release has no usable asset.
	ErrNoAssets = errors.New("release has no database assets")
)
