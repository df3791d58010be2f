// Package invites manages signup invite codes. Codes are minted by admins,
// optionally usage-limited, stored uppercase, and matched case-insensitively
// on entry. Exhausted codes are swept out by a periodic job after a grace
// period.
//
// Invite codes gate SIGNUP and are unrelated to tree invite tokens, which
// gate viewing a private tree.
package invites
