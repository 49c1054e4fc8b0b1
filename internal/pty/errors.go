package pty

import "errors"

var (
	// ErrNoCommand is returned when a SpawnRequest carries an empty argv.
	ErrNoCommand = errors.New("no command specified")

	// ErrBadGeometry is returned for non-positive terminal dimensions.
	ErrBadGeometry = errors.New("terminal geometry must be positive")

	// ErrSpawn wraps OS-level pty allocation or process start failures.
	// No child process is running when Spawn returns it.
	ErrSpawn = errors.New("pty spawn failed")

	// ErrGeometry wraps a failed window-size ioctl on the master after the
	// child has already started. Spawn kills and reaps the child before
	// returning it.
	ErrGeometry = errors.New("failed to set pty window size")
)
