// Package template expands %TOKEN% placeholders in notification messages.
package template

import (
	"sort"
	"strings"
)

// Placeholders understood by build notifications.
const (
	Project     = "%PROJECT%"
	Build       = "%BUILD%"
	Status      = "%STATUS%"
	Artifacts   = "%ARTIFACTS%"
	Culprits    = "%CULPRITS%"
	CulpritName = "%CULPRIT-NAME%"
)

// Vars maps a placeholder token to its value.
type Vars map[string]string

// Clone returns a shallow copy with room for extra keys.
func (v Vars) Clone() Vars {
	out := make(Vars, len(v)+1)
	for k, val := range v {
		out[k] = val
	}
	return out
}

// With returns a copy of v with key set to value. v is left untouched.
func (v Vars) With(key, value string) Vars {
	out := v.Clone()
	out[key] = value
	return out
}

// Substitute replaces every occurrence of each key in tmpl with its value.
// Keys are literal tokens. The input is scanned once, so a substituted value
// is never expanded again even if it contains another key. When keys overlap
// at the same position the longer key wins; ties break lexically.
func Substitute(tmpl string, vars Vars) string {
	if len(vars) == 0 || tmpl == "" {
		return tmpl
	}
	keys := make([]string, 0, len(vars))
	for k := range vars {
		if k != "" {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	pairs := make([]string, 0, 2*len(keys))
	for _, k := range keys {
		pairs = append(pairs, k, vars[k])
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}
