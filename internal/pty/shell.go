package pty

import (
	"fmt"
	"os"
)

// DetectShell finds the first available shell in order of preference:
// $SHELL, then /bin/bash, /bin/zsh, /bin/sh. Returns an error if none of
// them is executable.
func DetectShell() (string, error) {
	candidates := []string{os.Getenv("SHELL"), "/bin/bash", "/bin/zsh", "/bin/sh"}

	for _, candidate := range candidates {
		if candidate != "" && isExecutable(candidate) {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("no shell found: checked $SHELL, /bin/bash, /bin/zsh, /bin/sh")
}

// isExecutable reports whether path is a regular file with an execute bit.
func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular() && info.Mode()&0111 != 0
}
