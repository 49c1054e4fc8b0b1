package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	ptylib "github.com/creack/pty"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/tarasov95/webterm-pty/internal/pty"
)

// Config is read from WEBTERM_* environment variables. Flags and
// positional arguments override it.
type Config struct {
	Command string `envconfig:"COMMAND"`
	Workdir string `envconfig:"WORKDIR"`
	Cols    uint16 `envconfig:"COLS" default:"80"`
	Rows    uint16 `envconfig:"ROWS" default:"24"`
	Debug   bool   `envconfig:"DEBUG"`
}

func main() {
	os.Exit(run())
}

func run() int {
	var cfg Config
	if err := envconfig.Process("webterm", &cfg); err != nil {
		fmt.Fprintf(os.Stderr, "webterm-pty: bad configuration: %v\n", err)
		return 1
	}

	workdir := flag.String("workdir", cfg.Workdir, "working directory for the child")
	cols := flag.Uint("cols", uint(cfg.Cols), "initial terminal columns")
	rows := flag.Uint("rows", uint(cfg.Rows), "initial terminal rows")
	flag.Parse()

	logger := newLogger(cfg.Debug)
	defer logger.Sync()

	argv := flag.Args()
	if len(argv) == 0 && cfg.Command != "" {
		argv = strings.Fields(cfg.Command)
	}
	if len(argv) == 0 {
		shell, err := pty.DetectShell()
		if err != nil {
			logger.Error("no command given and no shell found", zap.Error(err))
			return 1
		}
		argv = []string{shell}
	}

	// When stdin is a real terminal, start the child with its size.
	c, r := uint16(*cols), uint16(*rows)
	if ws, err := ptylib.GetsizeFull(os.Stdin); err == nil && ws.Cols > 0 && ws.Rows > 0 {
		c, r = ws.Cols, ws.Rows
	}

	sess, err := pty.Spawn(pty.SpawnRequest{
		Argv:   argv,
		Dir:    *workdir,
		Cols:   c,
		Rows:   r,
		Logger: logger,
	})
	if err != nil {
		logger.Error("spawn failed", zap.Error(err))
		return 1
	}
	defer sess.Close()

	// Raw mode so keystrokes reach the child unmangled.
	if term.IsTerminal(int(os.Stdin.Fd())) {
		oldState, err := term.MakeRaw(int(os.Stdin.Fd()))
		if err != nil {
			logger.Error("failed to enter raw mode", zap.Error(err))
			return 1
		}
		defer term.Restore(int(os.Stdin.Fd()), oldState)
	}

	// Propagate local window-size changes to the child.
	winch := make(chan os.Signal, 1)
	signal.Notify(winch, syscall.SIGWINCH)
	defer signal.Stop(winch)
	go func() {
		for range winch {
			if ws, err := ptylib.GetsizeFull(os.Stdin); err == nil {
				if err := sess.Resize(ws.Cols, ws.Rows); err != nil {
					logger.Warn("resize failed", zap.Error(err))
				}
			}
		}
	}()

	go func() {
		// Ends when stdin closes or the session's writer is closed.
		_, _ = io.Copy(sess.Writer(), os.Stdin)
	}()

	buf := make([]byte, 4096)
	for {
		n, err := sess.Reader().Read(buf)
		if n > 0 {
			os.Stdout.Write(buf[:n])
		}
		if err != nil {
			if !pty.IsEOF(err) {
				logger.Warn("pty read error", zap.Error(err))
			}
			break
		}
	}

	status, err := sess.Wait()
	if err != nil {
		logger.Error("wait failed", zap.Error(err))
		return 1
	}
	logger.Debug("child exited",
		zap.Int("pid", sess.Pid()),
		zap.Int("status", status),
	)
	return status
}

// newLogger builds a stderr logger. The default level is warn so log
// output does not interleave with the attached terminal; WEBTERM_DEBUG=1
// switches to a verbose development logger.
func newLogger(debug bool) *zap.Logger {
	if debug {
		logger, err := zap.NewDevelopment()
		if err != nil {
			return zap.NewNop()
		}
		return logger
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	cfg.OutputPaths = []string{"stderr"}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
