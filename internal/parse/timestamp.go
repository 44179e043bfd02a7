// Package parse extracts best-effort timestamps from raw log lines.
package parse

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	reISO8601 = regexp.MustCompile(`\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}:\d{2}(?:[.,]\d{1,9})?(?:Z|[+-]\d{2}:?\d{2})?`)
	reSyslog  = regexp.MustCompile(`\b(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)\s+(\d{1,2})\s+(\d{2}):(\d{2}):(\d{2})`)
)

var isoLayouts = []string{
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04:05.999999999",
}

// TimestampParser finds the first timestamp in a line. Lines without one
// are a valid state and yield nil.
type TimestampParser struct {
	layout string
	tokens int
	now    func() time.Time
}

// NewTimestampParser returns a parser. A non-empty layout (Go reference
// time) is tried against the leading fields of each line before the built-in
// formats.
func NewTimestampParser(layout string) *TimestampParser {
	p := &TimestampParser{layout: strings.TrimSpace(layout), now: time.Now}
	if p.layout != "" {
		p.tokens = len(strings.Fields(p.layout))
	}
	return p
}

// WithClock overrides the clock used to infer the year of syslog stamps.
func (p *TimestampParser) WithClock(now func() time.Time) *TimestampParser {
	p.now = now
	return p
}

func (p *TimestampParser) Parse(line string) *time.Time {
	if p.layout != "" {
		if t, ok := p.parseLeading(line); ok {
			return &t
		}
	}
	if t, ok := parseISO(line); ok {
		return &t
	}
	if t, ok := p.parseSyslog(line); ok {
		return &t
	}
	return nil
}

func (p *TimestampParser) parseLeading(line string) (time.Time, bool) {
	fields := strings.Fields(line)
	if len(fields) < p.tokens {
		return time.Time{}, false
	}
	t, err := time.Parse(p.layout, strings.Join(fields[:p.tokens], " "))
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

func parseISO(line string) (time.Time, bool) {
	raw := reISO8601.FindString(line)
	if raw == "" {
		return time.Time{}, false
	}
	b := []byte(raw)
	b[10] = 'T'
	if i := strings.IndexByte(raw, ','); i > 0 {
		b[i] = '.'
	}
	s := string(b)
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func (p *TimestampParser) parseSyslog(line string) (time.Time, bool) {
	m := reSyslog.FindStringSubmatch(line)
	if m == nil {
		return time.Time{}, false
	}
	month, err := time.Parse("Jan", m[1])
	if err != nil {
		return time.Time{}, false
	}
	day, _ := strconv.Atoi(m[2])
	hour, _ := strconv.Atoi(m[3])
	minute, _ := strconv.Atoi(m[4])
	sec, _ := strconv.Atoi(m[5])
	if day < 1 || day > 31 || hour > 23 || minute > 59 || sec > 60 {
		return time.Time{}, false
	}
	year := p.now().Year()
	return time.Date(year, month.Month(), day, hour, minute, sec, 0, time.UTC), true
}
