// Package logging configures the slog loggers used across bindery.
//
// Two handler flavours are provided: a human-oriented console handler for
// terminal use and a JSON handler for log files and machine consumption.
// Helper constructors mirror the slog attr functions so call sites stay
// terse, and NewNop returns a logger that discards everything for tests.
package logging
