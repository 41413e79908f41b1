package diag

import (
	"fmt"
	"strings"
)

// Severity orders diagnostics; a translation fails when any SevError is
// present.
type Severity uint8

const (
	SevInfo Severity = iota
	SevWarning
	SevError
)

func (s Severity) String() string {
	switch s {
	case SevInfo:
		return "INFO"
	case SevWarning:
		return "WARNING"
	case SevError:
		return "ERROR"
	}
	return "UNKNOWN"
}

// Label is the lowercase form used in golden output and config files.
func (s Severity) Label() string {
	return strings.ToLower(s.String())
}

// ParseSeverity accepts "info", "warning"/"warn" or "error" in any case.
func ParseSeverity(v string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "info":
		return SevInfo, nil
	case "warning", "warn":
		return SevWarning, nil
	case "error":
		return SevError, nil
	}
	return SevInfo, fmt.Errorf("unknown severity %q", v)
}

// Promote raises every diagnostic at or above from (and below to) to
// severity to, returning how many changed. Used for --warnings-as-errors.
func (b *Bag) Promote(from, to Severity) int {
	if b == nil {
		return 0
	}
	n := 0
	for i := range b.items {
		if sev := b.items[i].Severity; sev >= from && sev < to {
			b.items[i].Severity = to
			n++
		}
	}
	return n
}

// Filter drops diagnostics below min.
func (b *Bag) Filter(min Severity) {
	if b == nil {
		return
	}
	out := b.items[:0]
	for _, d := range b.items {
		if d.Severity >= min {
			out = append(out, d)
		}
	}
	b.items = out
}
