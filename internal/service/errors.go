package service

import (
	"errors"
	"strings"
)

var (
	ErrCartEmpty       = errors.New("cart is empty")
	ErrProductNotFound = errors.New("product not found")
	// ErrCallbackBaseUnknown means no public base URL could be derived for
	// the gateway's return and notify URLs.
	ErrCallbackBaseUnknown = errors.New("unable to determine public base URL")
)

// ValidationError is a client input problem. Message is safe to return to callers.
type ValidationError struct {
	Message string
	Fields  []string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	return e.Message + ": " + strings.Join(e.Fields, ", ")
}

// Gateway call steps
const (
	StepOrderCreation  = "order_creation"
	StepPaymentSession = "payment_session_creation"
	StepSessionCreated = "payment_session_created"
)

// GatewayStepError records which gateway call failed.
type GatewayStepError struct {
	Step string
	Err  error
}

func (e *GatewayStepError) Error() string {
	return e.Step + ": " + e.Err.Error()
}

func (e *GatewayStepError) Unwrap() error {
	return e.Err
}
