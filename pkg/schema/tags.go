package schema

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var unitTagPattern = regexp.MustCompile(`^([A-Z]+-\d+-)(\d+)$`)

// LooseTagNormalize zero-pads the last dash-separated segment of a tag to two
// digits when the tag has at least three segments and the last one parses as
// an integer below 10. Anything else is returned unchanged.
//
// This is the policy of the store write path (ApplyMapping, SaveHWRows). It
// pads tags with more than three segments, which StrictTagNormalize does not.
func LooseTagNormalize(tag string) string {
	if tag == "" {
		return tag
	}
	parts := strings.Split(tag, "-")
	if len(parts) < 3 {
		return tag
	}
	n, err := strconv.Atoi(strings.TrimSpace(parts[len(parts)-1]))
	if err != nil {
		return tag
	}
	if n < 10 {
		parts[len(parts)-1] = fmt.Sprintf("%02d", n)
	}
	return strings.Join(parts, "-")
}

// StrictTagNormalize trims tag and, when it is exactly LETTERS-DIGITS-DIGITS
// with a single-digit final group, zero-pads that group: V-1-1 becomes V-1-01.
// Any other input is returned trimmed.
//
// This is the policy of the comparison path.
func StrictTagNormalize(tag string) string {
	trimmed := strings.TrimSpace(tag)
	m := unitTagPattern.FindStringSubmatch(trimmed)
	if m == nil || len(m[2]) != 1 {
		return trimmed
	}
	return m[1] + "0" + m[2]
}

// TagDisplay is the label shown for a tag: the raw form, or "raw → normalized"
// when normalization changed it.
func TagDisplay(raw, normalized string) string {
	if raw == normalized {
		return raw
	}
	return raw + " → " + normalized
}

// TagFromDisplay recovers the tag to match from a display label: the
// normalized side of "raw → normalized", with any double-space suffix removed.
func TagFromDisplay(label string) string {
	label = StripTagSuffix(label)
	if _, normalized, ok := strings.Cut(label, " → "); ok {
		return strings.TrimSpace(normalized)
	}
	return label
}

// StripTagSuffix drops display decoration appended after a double space,
// e.g. "V-1-01  (VAV-8)" becomes "V-1-01".
func StripTagSuffix(tag string) string {
	if i := strings.Index(tag, "  "); i >= 0 {
		tag = tag[:i]
	}
	return strings.TrimSpace(tag)
}
