package cli

import (
	"errors"

	"github.com/roach88/bakeorder/internal/ordering"
	"github.com/roach88/bakeorder/internal/store"
)

// Error codes reported by commands. E1xx codes mirror ordering rejections and
// are stable across releases.
const (
	ErrCodeGeneric  = "E001" // Generic/unknown error
	ErrCodeNotFound = "E002" // Path not found
	ErrCodeCatalog  = "E003" // Catalog failed to load or validate
	ErrCodeDatabase = "E004" // Database could not be opened or read
	ErrCodeArgument = "E005" // Malformed command argument

	ErrCodeScenarioFailed = "E010" // One or more scenarios failed

	ErrCodeInvalidSector     = "E101"
	ErrCodeOutOfRange        = "E102"
	ErrCodeCrossSectorSwap   = "E103"
	ErrCodeInconsistentState = "E104"
	ErrCodeProductNotFound   = "E105"
	ErrCodeDuplicateProduct  = "E106"
	ErrCodeInvalidProduct    = "E107"
	ErrCodeRevisionConflict  = "E108"
)

var orderingCodes = map[ordering.ErrorCode]string{
	ordering.ErrCodeInvalidSector:     ErrCodeInvalidSector,
	ordering.ErrCodeOutOfRange:        ErrCodeOutOfRange,
	ordering.ErrCodeCrossSectorSwap:   ErrCodeCrossSectorSwap,
	ordering.ErrCodeInconsistentState: ErrCodeInconsistentState,
	ordering.ErrCodeNotFound:          ErrCodeProductNotFound,
	ordering.ErrCodeDuplicateProduct:  ErrCodeDuplicateProduct,
	ordering.ErrCodeInvalidProduct:    ErrCodeInvalidProduct,
}

// classify maps err to its CLI code and exit code. Ordering rejections and
// lost revision races exit 1; everything else is a command error.
func classify(err error) (code string, exit int) {
	var oe *ordering.Error
	if errors.As(err, &oe) {
		if c, ok := orderingCodes[oe.Code]; ok {
			return c, ExitFailure
		}
		return ErrCodeGeneric, ExitFailure
	}
	if errors.Is(err, store.ErrRevisionConflict) {
		return ErrCodeRevisionConflict, ExitFailure
	}
	if errors.Is(err, store.ErrProductNotFound) {
		return ErrCodeProductNotFound, ExitFailure
	}
	return ErrCodeGeneric, ExitCommandError
}

// fail reports err through the formatter and returns the matching ExitError.
func fail(f *OutputFormatter, err error) error {
	code, exit := classify(err)

	var details interface{}
	var oe *ordering.Error
	if errors.As(err, &oe) {
		details = errorDetails(oe)
	}
	_ = f.Error(code, err.Error(), details)
	return WrapExitError(exit, code, err)
}

// failWith reports a command error with an explicit code.
func failWith(f *OutputFormatter, code string, err error) error {
	_ = f.Error(code, err.Error(), nil)
	return WrapExitError(ExitCommandError, code, err)
}

func errorDetails(oe *ordering.Error) map[string]string {
	d := make(map[string]string, len(oe.Details)+3)
	for k, v := range oe.Details {
		d[k] = v
	}
	d["reason"] = string(oe.Code)
	if oe.ProductID != "" {
		d["product_id"] = oe.ProductID
	}
	if oe.Sector != "" {
		d["sector"] = oe.Sector
	}
	return d
}
