package pty

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	ptylib "github.com/creack/pty"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// Session is a live pty-backed child process. It owns exactly one child
// pid and one pty master descriptor for its whole lifetime. The caller
// owns the Session and is responsible for closing both streams; nothing
// is released automatically.
type Session struct {
	ID string

	pid    int
	reader *os.File // the pty master
	writer *os.File // dup of the master

	logger *zap.Logger

	mu      sync.Mutex
	cond    *sync.Cond // signalled when a blocking reap finishes
	reaping bool       // a goroutine is in a blocking wait4 outside the mutex
	status  *int       // decoded exit status, set exactly once on reap
}

// Pid returns the child's process id.
func (s *Session) Pid() int { return s.pid }

// Reader returns the child-to-parent stream. A pty is a single combined
// channel for the child's stdout and stderr; there is no separate error
// stream.
func (s *Session) Reader() io.ReadCloser { return s.reader }

// Writer returns the parent-to-child stream feeding the child's stdin.
func (s *Session) Writer() io.WriteCloser { return s.writer }

// TryWait polls the child without blocking, even while another goroutine
// sits in a blocking Wait. exited reports whether an exit status is
// available. Once a status has been recorded it is served from cache with
// no further OS calls.
func (s *Session) TryWait() (status int, exited bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != nil {
		return *s.status, true, nil
	}
	if s.reaping {
		// A blocking Wait owns the reap; it will record the status.
		return 0, false, nil
	}
	var ws unix.WaitStatus
	for {
		wpid, werr := unix.Wait4(s.pid, &ws, unix.WNOHANG, nil)
		if werr == unix.EINTR {
			continue
		}
		if werr != nil {
			return 0, false, fmt.Errorf("wait4 pid %d: %w", s.pid, werr)
		}
		if wpid == 0 {
			return 0, false, nil
		}
		return s.recordStatus(ws), true, nil
	}
}

// Wait blocks until the child exits and returns its decoded status. The
// blocking wait4 runs with the mutex released so concurrent TryWait and
// Terminate calls are never held up behind it; the reaping flag keeps the
// OS handle queried by exactly one goroutine, and late arrivals park on
// the condition until the status lands in the cache.
func (s *Session) Wait() (int, error) {
	s.mu.Lock()
	for s.status == nil && s.reaping {
		s.cond.Wait()
	}
	if s.status != nil {
		st := *s.status
		s.mu.Unlock()
		return st, nil
	}
	s.reaping = true
	s.mu.Unlock()

	var ws unix.WaitStatus
	var werr error
	for {
		_, werr = unix.Wait4(s.pid, &ws, 0, nil)
		if werr != unix.EINTR {
			break
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.reaping = false
	defer s.cond.Broadcast()
	if werr != nil {
		return 0, fmt.Errorf("wait4 pid %d: %w", s.pid, werr)
	}
	return s.recordStatus(ws), nil
}

// recordStatus caches the decoded status for ws. Set exactly once; the
// caller must hold s.mu and have confirmed no status is recorded yet.
func (s *Session) recordStatus(ws unix.WaitStatus) int {
	st := decodeWaitStatus(ws)
	s.status = &st
	s.logger.Info("pty session exited",
		zap.String("session_id", s.ID),
		zap.Int("pid", s.pid),
		zap.Int("status", st),
	)
	return st
}

// Terminate sends SIGTERM to the child if no exit status has been
// recorded yet; otherwise it is a no-op. It never waits for the child to
// die, and the child is free to catch or ignore the signal.
func (s *Session) Terminate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != nil {
		return nil
	}
	if err := unix.Kill(s.pid, unix.SIGTERM); err != nil {
		return fmt.Errorf("signal pid %d: %w", s.pid, err)
	}
	s.logger.Debug("sent SIGTERM",
		zap.String("session_id", s.ID),
		zap.Int("pid", s.pid),
	)
	return nil
}

// Resize repeats the spawn-time geometry step against the live master.
func (s *Session) Resize(cols, rows uint16) error {
	if cols == 0 || rows == 0 {
		return fmt.Errorf("%w: got %dx%d", ErrBadGeometry, cols, rows)
	}
	return ptylib.Setsize(s.reader, &ptylib.Winsize{Rows: rows, Cols: cols})
}

// Close releases both stream handles. It does not signal the child; use
// Terminate for that.
func (s *Session) Close() error {
	rerr := s.reader.Close()
	werr := s.writer.Close()
	if rerr != nil {
		return rerr
	}
	return werr
}

// decodeWaitStatus collapses a raw wait status into the shell convention:
// 128 plus the signal number for a signal death, the exit code otherwise.
func decodeWaitStatus(ws unix.WaitStatus) int {
	if ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	return ws.ExitStatus()
}

// IsEOF reports whether err marks the end of a pty master stream. Linux
// returns EIO rather than io.EOF once the child has exited and the slave
// side is closed, so read loops must accept both.
func IsEOF(err error) bool {
	return err == io.EOF || errors.Is(err, unix.EIO)
}
