package pty

import (
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"

	ptylib "github.com/creack/pty"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// SpawnRequest describes the child process to attach to a new pty.
// It is consumed once by Spawn.
type SpawnRequest struct {
	// Argv is the program and its arguments; Argv[0] is the executable.
	// Must be non-empty.
	Argv []string

	// Dir is the child's working directory. Empty inherits the caller's.
	// A directory the child cannot enter kills the child, not the spawn;
	// the parent sees it as an early abnormal exit status.
	Dir string

	// Env holds environment overrides applied on top of the caller's
	// environment. A nil value unsets the variable. TERM is forced to
	// "linux" regardless of what the caller puts here.
	Env map[string]*string

	// Cols and Rows give the initial terminal geometry. Both must be
	// positive.
	Cols uint16
	Rows uint16

	// Logger receives session lifecycle events. Nil disables logging.
	Logger *zap.Logger
}

// Spawn validates req, allocates a pty pair and starts the requested
// program on the slave side as a session leader with the pty as its
// controlling terminal. On success the returned Session's streams are
// immediately usable. Validation and allocation failures happen before
// any process exists; if the window-size ioctl fails after the child is
// already running, the child is killed and reaped before the error is
// returned, so a failed Spawn never leaves a live process behind.
func Spawn(req SpawnRequest) (*Session, error) {
	if len(req.Argv) == 0 {
		return nil, ErrNoCommand
	}
	if req.Cols == 0 || req.Rows == 0 {
		return nil, fmt.Errorf("%w: got %dx%d", ErrBadGeometry, req.Cols, req.Rows)
	}

	logger := req.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	// Everything needing the full runtime happens before the fork. The
	// fork-to-exec window itself is the runtime's fork/exec path, which
	// restricts the child to signal-safe work: setsid, controlling-tty
	// acquisition, chdir and exec, with only the three slave stdio
	// descriptors surviving into the child (all others are close-on-exec).
	env := buildEnv(os.Environ(), req.Env)

	master, slave, err := ptylib.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: open pty: %v", ErrSpawn, err)
	}

	cmd := exec.Command(req.Argv[0], req.Argv[1:]...)
	cmd.Dir = req.Dir
	cmd.Env = env
	cmd.Stdin = slave
	cmd.Stdout = slave
	cmd.Stderr = slave
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid:  true,
		Setctty: true,
	}

	if err := cmd.Start(); err != nil {
		master.Close()
		slave.Close()
		return nil, fmt.Errorf("%w: %v", ErrSpawn, err)
	}

	// The child holds its own copy of the slave now.
	slave.Close()

	pid := cmd.Process.Pid

	if err := ptylib.Setsize(master, &ptylib.Winsize{Rows: req.Rows, Cols: req.Cols}); err != nil {
		killAndReap(pid)
		master.Close()
		return nil, fmt.Errorf("%w: %v", ErrGeometry, err)
	}

	// Second handle onto the master so the read and write sides can be
	// closed independently without double-closing the descriptor.
	wfd, err := unix.Dup(int(master.Fd()))
	if err != nil {
		killAndReap(pid)
		master.Close()
		return nil, fmt.Errorf("%w: dup master: %v", ErrSpawn, err)
	}
	unix.CloseOnExec(wfd)

	sess := &Session{
		ID:     uuid.New().String(),
		pid:    pid,
		reader: master,
		writer: os.NewFile(uintptr(wfd), master.Name()),
		logger: logger,
	}
	sess.cond = sync.NewCond(&sess.mu)

	logger.Info("spawned pty session",
		zap.String("session_id", sess.ID),
		zap.Int("pid", pid),
		zap.String("command", req.Argv[0]),
		zap.Uint16("cols", req.Cols),
		zap.Uint16("rows", req.Rows),
	)
	return sess, nil
}

// killAndReap forcibly ends a child that Spawn can no longer hand to the
// caller, and collects its status so no zombie is left.
func killAndReap(pid int) {
	_ = unix.Kill(pid, unix.SIGKILL)
	var ws unix.WaitStatus
	for {
		if _, err := unix.Wait4(pid, &ws, 0, nil); err != unix.EINTR {
			return
		}
	}
}
