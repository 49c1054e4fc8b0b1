// Package pty spawns a child process attached to a pseudo-terminal and
// exposes the master side as byte streams, plus exit-status tracking and
// best-effort termination of the child.
package pty
