// Package serialization holds helpers for rendering job data safely in logs and output.
package serialization

import (
	"sort"
	"strings"
)

// MaskValue replaces the value of every masked parameter key.
const MaskValue = "********"

// MaskSet is a set of sensitive parameter names, matched case-insensitively.
type MaskSet map[string]struct{}

// NewMaskSet builds a MaskSet from keys. Blank keys are ignored.
func NewMaskSet(keys []string) MaskSet {
	set := make(MaskSet, len(keys))
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			set[strings.ToLower(k)] = struct{}{}
		}
	}
	return set
}

// IsMasked reports whether key is sensitive.
func (s MaskSet) IsMasked(key string) bool {
	_, ok := s[strings.ToLower(key)]
	return ok
}

// MaskParameters returns a copy of params with sensitive values replaced by MaskValue.
func (s MaskSet) MaskParameters(params map[string]string) map[string]string {
	out := make(map[string]string, len(params))
	for k, v := range params {
		if s.IsMasked(k) {
			v = MaskValue
		}
		out[k] = v
	}
	return out
}

// FormatParameters renders params as "{k1=v1, k2=v2}" sorted by key, masking sensitive values.
func (s MaskSet) FormatParameters(params map[string]string) string {
	masked := s.MaskParameters(params)
	keys := make([]string, 0, len(masked))
	for k := range masked {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(masked[k])
	}
	b.WriteByte('}')
	return b.String()
}
