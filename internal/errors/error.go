package errors

import (
	"errors"
	"fmt"
)

var (
	ErrInsufficientSpace           = errors.New("insufficient storage space")
	ErrUnsupportedInStandaloneMode = errors.New("operation not supported in standalone mode")
	ErrNodeNotFound                = errors.New("storage node not found")
	ErrNoTopologySource            = errors.New("no topology source configured")
	ErrInvalidRequest              = errors.New("invalid placement request")
)

// Reasons attached to an InsufficientSpaceError.
const (
	ReasonNoDatacenter       = "no datacenter with sufficient space"
	ReasonTooFewDatacenters  = "too few datacenters for %d copies"
	ReasonTooManyCopies      = "copies requested exceeds available storage nodes"
	ReasonInsufficientDCSpan = "insufficient number of DCs selected"
)

// InsufficientSpaceError reports that no placement could satisfy a request
// of SizeMB megabytes.
type InsufficientSpaceError struct {
	SizeMB int64
	Reason string
}

func (e *InsufficientSpaceError) Error() string {
	return fmt.Sprintf("insufficient space for %d MB: %s", e.SizeMB, e.Reason)
}

// Is lets errors.Is match any InsufficientSpaceError against ErrInsufficientSpace.
func (e *InsufficientSpaceError) Is(target error) bool {
	return target == ErrInsufficientSpace
}

// InsufficientSpace builds an InsufficientSpaceError.
func InsufficientSpace(sizeMB int64, reason string) error {
	return &InsufficientSpaceError{SizeMB: sizeMB, Reason: reason}
}

// TooFewDatacenters formats the reason used when fewer datacenters qualify
// than the copy count requires.
func TooFewDatacenters(sizeMB int64, copies int) error {
	return InsufficientSpace(sizeMB, fmt.Sprintf(ReasonTooFewDatacenters, copies))
}

func ConfigNotSetError(config string) error {
	return fmt.Errorf("the %s setting must be set", config)
}

// FetchingResourceError generates a formatted error for failed fetching of any resource by its type.
func FetchingResourceError(resource string, err error) error {
	return fmt.Errorf("failed to fetch %s: %w", resource, err)
}
