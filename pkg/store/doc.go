// Package store is the boundary to the external document store.
//
// The permission engine treats everything here as externally-owned facts: it
// issues fetch-by-id reads at decision time and never caches or mutates. Two
// implementations exist: PostgresStore for deployments and MemoryStore for
// tests and local development. Both return ErrNotFound for absent records so
// callers can fail closed without distinguishing "missing" from "denied".
package store
