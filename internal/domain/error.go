package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// Common domain errors
	ErrNotFound        = errors.New("entity not found")
	ErrAlreadyExists   = errors.New("entity already exists")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrRequestRunning  = errors.New("request is currently running")
)

// RemoteError is a non-success response from an external service.
type RemoteError struct {
	Service string
	Status  int
	Body    string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: remote failure: status %d: %s", e.Service, e.Status, e.Body)
}

// TransportError is a network-level failure before any response arrived.
type TransportError struct {
	Service string
	Cause   error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport failure: %v", e.Service, e.Cause)
}

func (e *TransportError) Unwrap() error { return e.Cause }

// ParseError is a response that could not be decoded.
type ParseError struct {
	Service string
	Detail  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: parse failure: %s", e.Service, e.Detail)
}

// InvalidInputError flags malformed caller input, e.g. a channel URL.
type InvalidInputError struct {
	Field  string
	Detail string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Detail)
}

// TimeoutError is an adapter call that exceeded its deadline.
type TimeoutError struct {
	Service string
	After   time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: timeout after %s", e.Service, e.After)
}

// MissingImplError guards unhandled step precondition combinations.
type MissingImplError struct {
	StepType string
}

func (e *MissingImplError) Error() string {
	return fmt.Sprintf("no implementation for step %s with the given inputs", e.StepType)
}
