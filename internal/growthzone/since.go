package growthzone

import (
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// sinceLayouts are the colon-free shapes GrowthZone may accept as a path
// segment, in the order they are tried.
var sinceLayouts = []string{
	"2006-01-02T150405Z",
	"2006-01-02T150405",
	"20060102T150405Z",
	"20060102T150405",
}

var (
	safeSegment    = regexp.MustCompile(`^[0-9A-Za-z+\-._TZ]+$`)
	isoWithColons  = regexp.MustCompile(`(?i)^(\d{4})-(\d{2})-(\d{2})T(\d{2}):(\d{2}):(\d{2})(?:\.\d+)?Z$`)
	dashNoColons   = regexp.MustCompile(`(?i)^(\d{4})-(\d{2})-(\d{2})T(\d{2})(\d{2})(\d{2})Z$`)
	compactNoColon = regexp.MustCompile(`(?i)^(\d{4})(\d{2})(\d{2})T(\d{2})(\d{2})(\d{2})Z$`)
)

func isSafeSegment(s string) bool {
	return s != "" && !strings.ContainsAny(s, `:/\`) && safeSegment.MatchString(s)
}

// SinceCandidates returns the path segments to try for a changes-since
// timestamp: raw itself first when it is already a safe segment, then the
// parsed instant in every colon-free layout, without duplicates. ok is false
// when there is nothing to try.
func SinceCandidates(raw string) ([]string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, false
	}
	var out []string
	if isSafeSegment(raw) {
		out = append(out, raw)
	}
	if t, ok := ParseSince(raw); ok {
		for _, layout := range sinceLayouts {
			c := t.Format(layout)
			if !isSafeSegment(c) || slices.Contains(out, c) {
				continue
			}
			out = append(out, c)
		}
	}
	return out, len(out) > 0
}

// ParseSince reads a UTC instant from the accepted timestamp shapes, falling
// back to any shape dateparse understands. The result is truncated to whole
// seconds.
func ParseSince(raw string) (time.Time, bool) {
	for _, re := range []*regexp.Regexp{isoWithColons, dashNoColons, compactNoColon} {
		if m := re.FindStringSubmatch(raw); m != nil {
			return dateFromParts(m[1:]), true
		}
	}
	t, err := dateparse.ParseIn(raw, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC().Truncate(time.Second), true
}

func dateFromParts(p []string) time.Time {
	n := make([]int, len(p))
	for i, s := range p {
		n[i], _ = strconv.Atoi(s)
	}
	return time.Date(n[0], time.Month(n[1]), n[2], n[3], n[4], n[5], 0, time.UTC)
}
