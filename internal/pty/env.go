package pty

import "strings"

// buildEnv merges override entries into a base environment of KEY=VALUE
// strings. A nil override value unsets the variable. TERM is always forced
// to "linux" last, so the child sees a known terminal type no matter what
// the caller supplies.
func buildEnv(base []string, overrides map[string]*string) []string {
	drop := make(map[string]bool, len(overrides)+1)
	for name := range overrides {
		drop[name] = true
	}
	drop["TERM"] = true

	env := make([]string, 0, len(base)+len(overrides)+1)
	for _, kv := range base {
		name := kv
		if i := strings.IndexByte(kv, '='); i >= 0 {
			name = kv[:i]
		}
		if drop[name] {
			continue
		}
		env = append(env, kv)
	}

	for name, value := range overrides {
		if name == "TERM" || value == nil {
			continue
		}
		env = append(env, name+"="+*value)
	}

	return append(env, "TERM=linux")
}
