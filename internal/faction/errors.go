package faction

import "errors"

var (
	// ErrDuplicateFaction is returned when a faction type is registered twice.
	ErrDuplicateFaction = errors.New("faction already registered")
	// ErrUnknownFaction is returned for lookups of a type that was never registered.
	ErrUnknownFaction = errors.New("unknown faction")
	// ErrInvalidArgument covers rejected inputs such as a relation of a faction with itself.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInvalidName is returned for display names outside the allowed length.
	ErrInvalidName = errors.New("invalid faction name")
)
