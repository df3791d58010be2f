// Package wishes implements the wish lifecycle: attaching wishes to trees,
// editing, and deletion. Public trees take wishes from anyone including
// anonymous guests; private trees require tree access. Deletion is open to
// the wish's creator, the tree's owner, and admins.
package wishes
