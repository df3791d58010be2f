// Package audit records privileged mutations: tree deletion, invite token
// rotation, collaborator changes, admin wish deletion, and invite code
// minting. The trail answers "who changed what, when" after the fact; it is
// never consulted for authorization decisions.
package audit
