package compress

import (
	"sort"
	"strconv"
	"strings"

	"github.com/local/pdftools/internal/apperr"
)

// Level names a compression setting, e.g. "medium".
type Level string

// Levels maps level names to JPEG quality factors in (0,1]. Higher quality
// means larger output.
type Levels map[Level]float64

// DefaultLevels is used when no table is configured.
func DefaultLevels() Levels {
	return Levels{"low": 0.4, "medium": 0.65, "high": 0.9}
}

// DefaultLevel is the level used when none is given.
const DefaultLevel Level = "medium"

// Quality returns the factor for a level.
func (l Levels) Quality(level Level) (float64, error) {
	q, ok := l[Level(strings.ToLower(strings.TrimSpace(string(level))))]
	if !ok {
		return 0, apperr.Newf(apperr.KindInvalidOption, "compress.level", "unknown level %q", level)
	}
	return q, nil
}

// Names returns level names ordered by quality.
func (l Levels) Names() []string {
	names := make([]string, 0, len(l))
	for k := range l {
		names = append(names, string(k))
	}
	sort.Slice(names, func(i, j int) bool {
		qi, qj := l[Level(names[i])], l[Level(names[j])]
		if qi != qj {
			return qi < qj
		}
		return names[i] < names[j]
	})
	return names
}

// ParseLevels reads "low=0.4,medium=0.65,high=0.9".
func ParseLevels(s string) (Levels, error) {
	const op = "compress.levels"
	out := Levels{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, val, ok := strings.Cut(part, "=")
		if !ok {
			return nil, apperr.Newf(apperr.KindInvalidOption, op, "entry %q has no '='", part)
		}
		q, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return nil, apperr.Newf(apperr.KindInvalidOption, op, "entry %q: bad quality", part)
		}
		out[Level(strings.ToLower(strings.TrimSpace(name)))] = q
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

// Validate checks that the table is non-empty and every quality is in (0,1].
func (l Levels) Validate() error {
	if len(l) == 0 {
		return apperr.New(apperr.KindInvalidOption, "compress.levels", "no levels configured")
	}
	for name, q := range l {
		if name == "" || q <= 0 || q > 1 {
			return apperr.Newf(apperr.KindInvalidOption, "compress.levels", "level %q quality %v outside (0,1]", name, q)
		}
	}
	return nil
}
