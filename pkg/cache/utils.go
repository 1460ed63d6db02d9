package cache

import "strings"

// GenerateKey joins a prefix and key parts with ':'. Empty parts are skipped.
func GenerateKey(prefix string, parts ...string) string {
	out := make([]string, 0, len(parts)+1)
	if prefix != "" {
		out = append(out, prefix)
	}
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ":")
}
