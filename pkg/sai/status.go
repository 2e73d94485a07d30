package sai

import (
	"errors"
	"fmt"
)

// Status is a SAI status code. Zero is success; failures are negative.
// Status implements error so a backend can return a bare code.
type Status int32

const (
	StatusSuccess                   Status = 0
	StatusFailure                   Status = -1
	StatusNotSupported              Status = -2
	StatusNoMemory                  Status = -3
	StatusInsufficientResources     Status = -4
	StatusInvalidParameter          Status = -5
	StatusItemAlreadyExists         Status = -6
	StatusItemNotFound              Status = -7
	StatusTableFull                 Status = -13
	StatusMandatoryAttributeMissing Status = -14
	StatusNotImplemented            Status = -15
	StatusObjectInUse               Status = -17
	StatusInvalidObjectType         Status = -18
	StatusInvalidObjectID           Status = -19

	// Ranged codes: the attribute's list index is subtracted from the base.
	StatusInvalidAttribute0   Status = -0x00010000
	StatusInvalidAttrValue0   Status = -0x00020000
	StatusAttrNotImplemented0 Status = -0x00030000
	StatusUnknownAttribute0   Status = -0x00040000
	StatusAttrNotSupported0   Status = -0x00050000
	statusAttributeRangeSpan  Status = 0x10000
)

var statusNames = map[Status]string{
	StatusSuccess:                   "SAI_STATUS_SUCCESS",
	StatusFailure:                   "SAI_STATUS_FAILURE",
	StatusNotSupported:              "SAI_STATUS_NOT_SUPPORTED",
	StatusNoMemory:                  "SAI_STATUS_NO_MEMORY",
	StatusInsufficientResources:     "SAI_STATUS_INSUFFICIENT_RESOURCES",
	StatusInvalidParameter:          "SAI_STATUS_INVALID_PARAMETER",
	StatusItemAlreadyExists:         "SAI_STATUS_ITEM_ALREADY_EXISTS",
	StatusItemNotFound:              "SAI_STATUS_ITEM_NOT_FOUND",
	StatusTableFull:                 "SAI_STATUS_TABLE_FULL",
	StatusMandatoryAttributeMissing: "SAI_STATUS_MANDATORY_ATTRIBUTE_MISSING",
	StatusNotImplemented:            "SAI_STATUS_NOT_IMPLEMENTED",
	StatusObjectInUse:               "SAI_STATUS_OBJECT_IN_USE",
	StatusInvalidObjectType:         "SAI_STATUS_INVALID_OBJECT_TYPE",
	StatusInvalidObjectID:           "SAI_STATUS_INVALID_OBJECT_ID",
}

var rangedStatusNames = []struct {
	base Status
	name string
}{
	{StatusInvalidAttribute0, "SAI_STATUS_INVALID_ATTRIBUTE_"},
	{StatusInvalidAttrValue0, "SAI_STATUS_INVALID_ATTR_VALUE_"},
	{StatusAttrNotImplemented0, "SAI_STATUS_ATTR_NOT_IMPLEMENTED_"},
	{StatusUnknownAttribute0, "SAI_STATUS_UNKNOWN_ATTRIBUTE_"},
	{StatusAttrNotSupported0, "SAI_STATUS_ATTR_NOT_SUPPORTED_"},
}

// WithIndex offsets a ranged base code by an attribute list index.
func (s Status) WithIndex(index int) Status {
	if index < 0 || Status(index) >= statusAttributeRangeSpan {
		return s
	}
	return s - Status(index)
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	for _, r := range rangedStatusNames {
		if s <= r.base && s > r.base-statusAttributeRangeSpan {
			return fmt.Sprintf("%s%d", r.name, int32(r.base-s))
		}
	}
	return fmt.Sprintf("SAI_STATUS_%d", int32(s))
}

func (s Status) Error() string {
	return s.String()
}

// Sentinel errors for dispatcher failures
var (
	ErrObjectNotFound            = errors.New("object not found")
	ErrObjectTypeMismatch        = errors.New("object type mismatch")
	ErrInvalidObjectType         = errors.New("invalid object type")
	ErrInvalidAttributeKey       = errors.New("invalid attribute key")
	ErrDuplicateAttributeKey     = errors.New("duplicate attribute key")
	ErrAttributeTypeMismatch     = errors.New("attribute type mismatch")
	ErrMandatoryAttributeMissing = errors.New("mandatory attribute missing")
	ErrAttributeNotSettable      = errors.New("attribute not settable")
	ErrBackendFailure            = errors.New("backend failure")
)

// ObjectError reports an identity failure: the id is not live, or is live
// with another object type.
type ObjectError struct {
	Op       string
	Type     ObjectType
	ID       ObjectID
	Actual   ObjectType // set for type mismatches
	Sentinel error
}

func (e *ObjectError) Error() string {
	if errors.Is(e.Sentinel, ErrObjectTypeMismatch) {
		return fmt.Sprintf("%s %s: %s is %s", e.Op, e.Type, e.ID, e.Actual)
	}
	return fmt.Sprintf("%s %s %s: %v", e.Op, e.Type, e.ID, e.Sentinel)
}

func (e *ObjectError) Unwrap() error {
	return e.Sentinel
}

// AttributeError reports an input validation failure on one attribute.
// Index is the attribute's position in the caller's list, -1 if not applicable.
type AttributeError struct {
	Op       string
	Type     ObjectType
	Attr     AttrID
	Index    int
	Detail   string
	Sentinel error
}

func (e *AttributeError) Error() string {
	msg := fmt.Sprintf("%s %s: %v: %s", e.Op, e.Type, e.Sentinel, e.Attr)
	if e.Index >= 0 {
		msg += fmt.Sprintf(" (index %d)", e.Index)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *AttributeError) Unwrap() error {
	return e.Sentinel
}

// BackendError wraps an error returned by a backend handler. The backend's
// own status code is preserved; errors.Is(err, ErrBackendFailure) holds.
type BackendError struct {
	Op     string
	Type   ObjectType
	ID     ObjectID
	Status Status
	Err    error
}

// NewBackendError wraps err, lifting a Status out of it when present.
func NewBackendError(op string, t ObjectType, id ObjectID, err error) *BackendError {
	status := StatusFailure
	var s Status
	if errors.As(err, &s) && s != StatusSuccess {
		status = s
	}
	return &BackendError{Op: op, Type: t, ID: id, Status: status, Err: err}
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s %s %s: backend: %v", e.Op, e.Type, e.ID, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

func (e *BackendError) Is(target error) bool {
	return target == ErrBackendFailure
}

// StatusOf maps any error returned by the dispatcher to a SAI status code.
func StatusOf(err error) Status {
	if err == nil {
		return StatusSuccess
	}

	var be *BackendError
	if errors.As(err, &be) {
		return be.Status
	}

	var ae *AttributeError
	if errors.As(err, &ae) {
		switch {
		case errors.Is(ae.Sentinel, ErrInvalidAttributeKey):
			return StatusUnknownAttribute0.WithIndex(ae.Index)
		case errors.Is(ae.Sentinel, ErrDuplicateAttributeKey):
			return StatusInvalidAttribute0.WithIndex(ae.Index)
		case errors.Is(ae.Sentinel, ErrAttributeTypeMismatch):
			return StatusInvalidAttrValue0.WithIndex(ae.Index)
		case errors.Is(ae.Sentinel, ErrAttributeNotSettable):
			return StatusAttrNotSupported0.WithIndex(ae.Index)
		case errors.Is(ae.Sentinel, ErrMandatoryAttributeMissing):
			return StatusMandatoryAttributeMissing
		}
		return StatusInvalidParameter
	}

	switch {
	case errors.Is(err, ErrObjectNotFound):
		return StatusItemNotFound
	case errors.Is(err, ErrObjectTypeMismatch), errors.Is(err, ErrInvalidObjectType):
		return StatusInvalidObjectType
	}

	var s Status
	if errors.As(err, &s) {
		return s
	}
	return StatusFailure
}
