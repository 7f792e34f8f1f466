package config

import "errors"

var (
	// ErrEmptyDatabasePath is returned when database path is empty
	ErrEmptyDatabasePath = errors.New("database_path cannot be empty")
	// ErrEmptyUserAgent is returned when no user agent is configured
	ErrEmptyUserAgent = errors.New("user_agent cannot be empty")
	// ErrInvalidPageBudget is returned when the page budget is negative
	ErrInvalidPageBudget = errors.New("page_budget cannot be negative")
	// ErrInvalidRequestDelay is returned when the request delay is negative
	ErrInvalidRequestDelay = errors.New("request_delay cannot be negative")
	// ErrInvalidRunInterval is returned when the run interval is negative
	ErrInvalidRunInterval = errors.New("run_interval cannot be negative")
	// ErrInvalidLogLevel is returned when the log level is not recognized
	ErrInvalidLogLevel = errors.New("log_level must be one of debug, info, warn, error")
)
