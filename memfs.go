// Package memfs contains the shared domain types of the memfs filesystem:
// node kinds, access actions, permission records and the typed error
// taxonomy returned by every operation.
//
// The tree itself lives in package filesystem, access control in
// permissions, and the session-based API in operations.
package memfs
