package services

import "fmt"

// ValidationError is a client input error. No upstream call is made.
type ValidationError struct{ Message string }

func (e *ValidationError) Error() string { return e.Message }

// ClassifierError is recoverable: it is logged and classification falls back to simple.
type ClassifierError struct {
	Err error
}

func (e *ClassifierError) Error() string {
	return fmt.Sprintf("classification failed: %v", e.Err)
}

func (e *ClassifierError) Unwrap() error { return e.Err }
