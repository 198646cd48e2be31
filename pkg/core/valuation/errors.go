package valuation

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is wrapped by every InputValidationError.
	ErrInvalidInput = errors.New("invalid valuation input")
	// ErrArithmeticDomain is wrapped by every ArithmeticDomainError.
	ErrArithmeticDomain = errors.New("arithmetic domain error")
)

// InputValidationError reports a malformed or out-of-range ProjectionInput.
// It is raised before any computation happens.
type InputValidationError struct {
	Field  string
	Reason string
}

func (e *InputValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *InputValidationError) Unwrap() error { return ErrInvalidInput }

// ArithmeticDomainError reports inputs that make the DCF formulas undefined,
// e.g. a discount rate equal to the terminal growth rate.
type ArithmeticDomainError struct {
	DiscountRate   float64
	TerminalGrowth float64
	Reason         string
}

func (e *ArithmeticDomainError) Error() string {
	return fmt.Sprintf("arithmetic domain error (wacc=%.4f, g=%.4f): %s", e.DiscountRate, e.TerminalGrowth, e.Reason)
}

func (e *ArithmeticDomainError) Unwrap() error { return ErrArithmeticDomain }
