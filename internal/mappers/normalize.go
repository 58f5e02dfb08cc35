package mappers

import (
	"strings"
	"time"
)

// AbsoluteURL resolves a possibly relative image or page path against base.
func AbsoluteURL(base, in string) string {
	in = strings.TrimSpace(in)
	if in == "" {
		return ""
	}
	if strings.HasPrefix(in, "http://") || strings.HasPrefix(in, "https://") {
		return in
	}
	if strings.HasPrefix(in, "//") {
		return "https:" + in
	}
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if strings.HasPrefix(in, "/") {
		return base + in
	}
	return base + "/" + in
}

func FirstNonEmpty(vals ...string) string {
	for _, v := range vals {
		v = strings.TrimSpace(v)
		if v != "" {
			return v
		}
	}
	return ""
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"02/01/2006",
	"20060102",
}

// NormalizeDate renders any recognised date as YYYY-MM-DD, or "" when the
// input cannot be parsed. Slash dates are read day first.
func NormalizeDate(in string) string {
	t, ok := ParseDate(in)
	if !ok {
		return ""
	}
	return t.Format("2006-01-02")
}

func ParseDate(in string) (time.Time, bool) {
	in = strings.TrimSpace(in)
	if in == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, in); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
