package fleet

import "errors"

var (
	ErrNoOwner            = errors.New("ship has no owner")
	ErrAlreadyInitialized = errors.New("ship already initialized")
	ErrFactionMismatch    = errors.New("owner faction does not match ship faction")
	ErrShipSinking        = errors.New("ship is sinking")
	ErrUnknownPirate      = errors.New("unknown pirate")
	ErrUnknownShip        = errors.New("unknown ship")
)
