// Package middleware provides the HTTP middleware chain: request IDs and
// per-request loggers, bearer-token authentication, and local plus
// Redis-backed rate limiting.
//
// Authentication here only establishes WHO is calling. Whether the caller may
// act is decided per-operation by pkg/perm, so most routes run with optional
// auth and let the permission engine deny guests where guests are not
// allowed.
package middleware
