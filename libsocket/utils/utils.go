// Package utils provides general helper utilities used in libsocket.
package utils

import (
	"strings"
)

// SearchEnv searches through a list of key=value pairs for a given key,
// returning its value, and the binary flag telling whether the key exist.
func SearchEnv(env []string, key string) (string, bool) {
	key += "="
	for _, s := range env {
		if val, ok := strings.CutPrefix(s, key); ok {
			return val, true
		}
	}
	return "", false
}

// WithoutEnv returns env with every entry for the given keys removed. The
// order of the remaining entries is preserved.
func WithoutEnv(env []string, keys ...string) []string {
	out := make([]string, 0, len(env))
next:
	for _, s := range env {
		name, _, _ := strings.Cut(s, "=")
		for _, k := range keys {
			if name == k {
				continue next
			}
		}
		out = append(out, s)
	}
	return out
}
