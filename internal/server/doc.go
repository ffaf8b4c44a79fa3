// Package server implements the core of the Cyber Chat service: the
// session registry, message router, connection supervisor, aggregate
// statistics, and the admin surface.
//
// The implementation is organized into specialized files for
// configuration, the registry, routing, sessions, the supervisor, and
// admin handlers to keep the codebase maintainable and testable as the
// project grows.
package server
