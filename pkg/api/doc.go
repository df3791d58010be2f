// Package api exposes the HTTP surface: tree and wish CRUD, permission
// snapshots, collaborator and invite token management, and invite code
// entry.
//
// Handlers never make authorization decisions themselves. They parse the
// request, hand it to a service, and translate service errors to statuses.
// Denied reads on private trees surface as 404 so the response does not
// reveal whether the tree exists.
package api
