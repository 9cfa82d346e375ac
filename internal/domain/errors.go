package domain

import (
	"errors"
	"fmt"
)

// Error codes surfaced in failed forecast responses
const (
	CodeNoData         = "no_data"
	CodeInvalidBudget  = "invalid_budget"
	CodeInvalidRequest = "invalid_request"
	CodeInternal       = "internal_error"
)

var (
	ErrNoData         = errors.New("sales ledger is empty")
	ErrInvalidBudget  = errors.New("budget must be greater than zero for optimize")
	ErrInvalidRequest = errors.New("invalid forecast request")

	// ErrSnapshotNotFound is returned before the first successful run
	ErrSnapshotNotFound = errors.New("no forecast snapshot has been persisted yet")
)

// ForecastError is a fatal run error carrying its response code
type ForecastError struct {
	Code    string
	Message string
	Err     error
}

func (e *ForecastError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ForecastError) Unwrap() error {
	return e.Err
}

// NewForecastError wraps err with the response code matching its sentinel
func NewForecastError(err error) *ForecastError {
	var fe *ForecastError
	if errors.As(err, &fe) {
		return fe
	}

	code := CodeInternal
	switch {
	case errors.Is(err, ErrNoData):
		code = CodeNoData
	case errors.Is(err, ErrInvalidBudget):
		code = CodeInvalidBudget
	case errors.Is(err, ErrInvalidRequest):
		code = CodeInvalidRequest
	}

	return &ForecastError{Code: code, Message: err.Error(), Err: err}
}

// Validate normalizes the request and checks action/budget consistency
func (r *ForecastRequest) Validate(defaultHorizon int) error {
	if r.Action == "" {
		r.Action = ActionFullForecast
	}
	if r.Action != ActionFullForecast && r.Action != ActionOptimize {
		return fmt.Errorf("%w: unknown action %q", ErrInvalidRequest, r.Action)
	}

	if r.HorizonDays < 0 {
		return fmt.Errorf("%w: horizon_days must not be negative", ErrInvalidRequest)
	}
	if r.HorizonDays == 0 {
		r.HorizonDays = defaultHorizon
	}

	if r.Action == ActionOptimize {
		if r.Budget == nil || *r.Budget <= 0 {
			return ErrInvalidBudget
		}
	}

	return nil
}
