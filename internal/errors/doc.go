// Package errors defines error types for the analyzer client.
//
// Each failure mode of the client has its own struct type so callers can
// tell a launch failure from a dead server or a broken exchange. All error
// types support error unwrapping and can be checked using errors.Is,
// errors.As, and errors.AsType.
package errors
