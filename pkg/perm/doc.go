// Package perm evaluates who may do what to trees and wishes.
//
// The engine is stateless: every decision is computed from records fetched at
// call time, so a rotated invite token or a removed collaborator is observed
// on the very next check. Decisions are never cached. Every lookup failure,
// missing record, or deadline overrun degrades to deny, never to an error the
// caller could accidentally treat as allow.
package perm
