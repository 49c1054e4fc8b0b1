package pty

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func TestBuildEnvForcesTerm(t *testing.T) {
	base := []string{"PATH=/usr/bin", "TERM=xterm-256color"}

	env := buildEnv(base, map[string]*string{"TERM": strPtr("xterm")})

	assert.Contains(t, env, "TERM=linux")
	assert.NotContains(t, env, "TERM=xterm")
	assert.NotContains(t, env, "TERM=xterm-256color")
	assert.Contains(t, env, "PATH=/usr/bin")
}

func TestBuildEnvOverride(t *testing.T) {
	base := []string{"FOO=old", "BAR=keep"}

	env := buildEnv(base, map[string]*string{"FOO": strPtr("new")})

	assert.Contains(t, env, "FOO=new")
	assert.NotContains(t, env, "FOO=old")
	assert.Contains(t, env, "BAR=keep")
}

func TestBuildEnvUnset(t *testing.T) {
	base := []string{"FOO=gone", "BAR=keep"}

	env := buildEnv(base, map[string]*string{"FOO": nil})

	for _, kv := range env {
		assert.False(t, strings.HasPrefix(kv, "FOO="), "FOO should be unset, found %q", kv)
	}
	assert.Contains(t, env, "BAR=keep")
}

func TestBuildEnvProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	base := []string{"PATH=/usr/bin", "HOME=/home/user", "TERM=vt100"}

	properties.Property("TERM=linux appears exactly once and last wins", prop.ForAll(
		func(overrides map[string]string) bool {
			m := make(map[string]*string, len(overrides))
			for k, v := range overrides {
				v := v
				m[k] = &v
			}
			env := buildEnv(base, m)

			terms := 0
			for _, kv := range env {
				if strings.HasPrefix(kv, "TERM=") {
					if kv != "TERM=linux" {
						return false
					}
					terms++
				}
			}
			return terms == 1
		},
		gen.MapOf(gen.Identifier(), gen.AlphaString()),
	))

	properties.Property("every non-TERM override is present verbatim", prop.ForAll(
		func(overrides map[string]string) bool {
			m := make(map[string]*string, len(overrides))
			for k, v := range overrides {
				v := v
				m[k] = &v
			}
			env := buildEnv(base, m)

			for k, v := range overrides {
				if k == "TERM" {
					continue
				}
				found := false
				for _, kv := range env {
					if kv == k+"="+v {
						found = true
						break
					}
				}
				if !found {
					return false
				}
			}
			return true
		},
		gen.MapOf(gen.Identifier(), gen.AlphaString()),
	))

	properties.Property("unset names never survive", prop.ForAll(
		func(names []string) bool {
			m := make(map[string]*string, len(names))
			for _, n := range names {
				m[n] = nil
			}
			env := buildEnv(append(base, "X=1"), m)

			for _, n := range names {
				for _, kv := range env {
					if strings.HasPrefix(kv, n+"=") && n != "TERM" {
						return false
					}
				}
			}
			return true
		},
		gen.SliceOf(gen.Identifier()),
	))

	properties.TestingRun(t)
}
