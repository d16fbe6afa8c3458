package ordering

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes ordering errors.
type ErrorCode string

const (
	// ErrCodeInvalidSector indicates an unknown sector code or an order whose
	// sector digits do not address a catalog entry.
	ErrCodeInvalidSector ErrorCode = "INVALID_SECTOR"

	// ErrCodeOutOfRange indicates a sequence or target position outside valid bounds.
	ErrCodeOutOfRange ErrorCode = "OUT_OF_RANGE"

	// ErrCodeCrossSectorSwap indicates a swap between products of different sectors.
	ErrCodeCrossSectorSwap ErrorCode = "CROSS_SECTOR_SWAP"

	// ErrCodeInconsistentState indicates duplicate or gapped sequences after a
	// mutation: corrupted input or an engine defect.
	ErrCodeInconsistentState ErrorCode = "INCONSISTENT_STATE"

	// ErrCodeNotFound indicates the referenced product is not in the collection.
	ErrCodeNotFound ErrorCode = "PRODUCT_NOT_FOUND"

	// ErrCodeDuplicateProduct indicates an insert of an id that already exists.
	ErrCodeDuplicateProduct ErrorCode = "DUPLICATE_PRODUCT"

	// ErrCodeInvalidProduct indicates a malformed product (empty id).
	ErrCodeInvalidProduct ErrorCode = "INVALID_PRODUCT"
)

// Error is returned by every ordering operation that rejects its input.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// ProductID identifies the product involved, if any.
	ProductID string

	// Sector identifies the sector involved, if any.
	Sector string

	// Details contains additional context.
	Details map[string]string
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.ProductID != "" && e.Sector != "":
		return fmt.Sprintf("%s: %s (product=%s, sector=%s)", e.Code, e.Message, e.ProductID, e.Sector)
	case e.ProductID != "":
		return fmt.Sprintf("%s: %s (product=%s)", e.Code, e.Message, e.ProductID)
	case e.Sector != "":
		return fmt.Sprintf("%s: %s (sector=%s)", e.Code, e.Message, e.Sector)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// CodeOf returns the ErrorCode carried by err, or "" if err is not an *Error.
func CodeOf(err error) ErrorCode {
	var oe *Error
	if errors.As(err, &oe) {
		return oe.Code
	}
	return ""
}

// IsInvalidSector reports whether err is an INVALID_SECTOR error.
func IsInvalidSector(err error) bool { return CodeOf(err) == ErrCodeInvalidSector }

// IsOutOfRange reports whether err is an OUT_OF_RANGE error.
func IsOutOfRange(err error) bool { return CodeOf(err) == ErrCodeOutOfRange }

// IsCrossSectorSwap reports whether err is a CROSS_SECTOR_SWAP error.
func IsCrossSectorSwap(err error) bool { return CodeOf(err) == ErrCodeCrossSectorSwap }

// IsInconsistentState reports whether err is an INCONSISTENT_STATE error.
// These indicate pre-existing corruption and should reach operators, not just users.
func IsInconsistentState(err error) bool { return CodeOf(err) == ErrCodeInconsistentState }

// IsNotFound reports whether err is a PRODUCT_NOT_FOUND error.
func IsNotFound(err error) bool { return CodeOf(err) == ErrCodeNotFound }

func invalidSectorCode(code string) *Error {
	return &Error{
		Code:    ErrCodeInvalidSector,
		Message: "sector code not in catalog",
		Sector:  code,
	}
}

func invalidSectorIndex(order, index int) *Error {
	return &Error{
		Code:    ErrCodeInvalidSector,
		Message: fmt.Sprintf("order %d decodes to sector index %d, not in catalog", order, index),
		Details: map[string]string{
			"order":        fmt.Sprintf("%d", order),
			"sector_index": fmt.Sprintf("%d", index),
		},
	}
}

func outOfRange(what string, value, lo, hi int) *Error {
	return &Error{
		Code:    ErrCodeOutOfRange,
		Message: fmt.Sprintf("%s %d outside [%d, %d]", what, value, lo, hi),
		Details: map[string]string{
			"value": fmt.Sprintf("%d", value),
			"min":   fmt.Sprintf("%d", lo),
			"max":   fmt.Sprintf("%d", hi),
		},
	}
}

func notFound(id string) *Error {
	return &Error{
		Code:      ErrCodeNotFound,
		Message:   "product not in collection",
		ProductID: id,
	}
}
