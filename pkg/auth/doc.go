// Package auth establishes who is calling.
//
// Identity lifecycle is owned by the external OpenID Connect provider; this
// package only verifies bearer tokens it issued and maps them to a Caller.
// Authorization decisions live in pkg/perm and consume the Caller, never the
// raw token.
package auth
