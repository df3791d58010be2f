// Package trees implements the tree lifecycle: creation, visibility and
// collaborator management, invite token rotation, and deletion with its wish
// cascade. Every mutation is authorized through pkg/perm before it touches
// the store, and privileged mutations leave an audit trail.
package trees
