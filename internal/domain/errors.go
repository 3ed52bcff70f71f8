package domain

import "errors"

var (
	// ErrInsufficientFunds is returned when an account's cash cannot cover
	// a debit or a buy-side reservation.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInsufficientUnits is returned when an account's position cannot
	// cover a withdrawal or a sell-side reservation.
	ErrInsufficientUnits = errors.New("insufficient units")
)

// ConfigError represents a configuration error (never recoverable at runtime).
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return "config error [" + e.Field + "]: " + e.Err.Error()
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
