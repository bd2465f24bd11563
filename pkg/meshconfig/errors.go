package meshconfig

import "errors"

// Config API errors (spec.md §7), surfaced directly to the caller rather
// than silently dropped.
var (
	ErrKeyIndexOutOfRange           = errors.New("meshconfig: key index out of range")
	ErrAddressNotAvailable          = errors.New("meshconfig: address not available")
	ErrOverlappingProvisionerRanges = errors.New("meshconfig: provisioner ranges overlap")
	ErrNoAddressAvailable           = errors.New("meshconfig: no unicast address available in provisioner's ranges")
	ErrInvalidRange                 = errors.New("meshconfig: invalid address range")
	ErrProvisionerUsedInAnotherNetwork = errors.New("meshconfig: provisioner UUID already used in another network")
	ErrProvisionerNotInNetwork      = errors.New("meshconfig: provisioner not part of this network")
	ErrNodeAlreadyExists            = errors.New("meshconfig: node already exists")

	errMalformedDocument = errors.New("meshconfig: malformed network document")
)
