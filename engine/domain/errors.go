package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for extraction and annotation failures.
var (
	ErrMissingAttribute     = errors.New("missing attribute")
	ErrUnconnectedDevice    = errors.New("device is not connected to a bus")
	ErrUnconnectedBranch    = errors.New("branch endpoint is not connected")
	ErrIncompleteWindingSet = errors.New("three-winding transformer needs three connections")
	ErrBusNotFound          = errors.New("bus not found")
	ErrInvalidVoltage       = errors.New("invalid nominal voltage")
	ErrMissingParameters    = errors.New("simulation parameters missing")
	ErrRolesNotAssigned     = errors.New("transformer winding roles not assigned")
	ErrInvalidParameters    = errors.New("invalid simulation parameters")
	ErrMalformedResponse    = errors.New("malformed solver response")
)

// ElementError ties a sentinel to the diagram element that caused it.
type ElementError struct {
	CellID  string
	Name    string // friendly name, may be empty
	Field   string // attribute or role, may be empty
	Wrapped error
}

func (e *ElementError) Error() string {
	who := e.CellID
	if e.Name != "" && e.Name != e.CellID {
		who = fmt.Sprintf("%s (%s)", e.Name, e.CellID)
	}
	if e.Field != "" {
		return fmt.Sprintf("element %s: %s: %s", who, e.Wrapped, e.Field)
	}
	return fmt.Sprintf("element %s: %s", who, e.Wrapped)
}

func (e *ElementError) Unwrap() error { return e.Wrapped }

// NewElementError creates an ElementError.
func NewElementError(cellID, field string, wrapped error) *ElementError {
	return &ElementError{CellID: cellID, Field: field, Wrapped: wrapped}
}

// CellOf returns the element id carried by err, if any.
func CellOf(err error) (string, bool) {
	var ee *ElementError
	if errors.As(err, &ee) {
		return ee.CellID, true
	}
	return "", false
}
