// Package pagerange parses user supplied page range expressions such as
// "all", "1-3, 5" or "2,4-6" into a set of 1-based page numbers.
package pagerange

import (
	"sort"
	"strconv"
	"strings"

	"github.com/local/pdftools/internal/apperr"
)

// Mode selects how invalid tokens are treated.
type Mode int

const (
	// Strict rejects the whole expression on the first bad token.
	Strict Mode = iota
	// Lenient drops bad tokens and clips ranges to the document.
	Lenient
)

func (m Mode) String() string {
	if m == Lenient {
		return "lenient"
	}
	return "strict"
}

const op = "pagerange.parse"

// Set is a set of page numbers, each in [1, total].
type Set struct {
	pages map[int]struct{}
}

// All returns the set {1..total}.
func All(total int) Set {
	s := Set{pages: make(map[int]struct{}, max(total, 0))}
	for i := 1; i <= total; i++ {
		s.pages[i] = struct{}{}
	}
	return s
}

// Of builds a set from explicit page numbers; it does not range check.
func Of(pages ...int) Set {
	s := Set{pages: make(map[int]struct{}, len(pages))}
	for _, p := range pages {
		s.pages[p] = struct{}{}
	}
	return s
}

// Len returns the number of pages in the set.
func (s Set) Len() int { return len(s.pages) }

// Contains reports whether page is a member.
func (s Set) Contains(page int) bool {
	_, ok := s.pages[page]
	return ok
}

// Pages returns the members in ascending order.
func (s Set) Pages() []int {
	out := make([]int, 0, len(s.pages))
	for p := range s.pages {
		out = append(out, p)
	}
	sort.Ints(out)
	return out
}

func (s Set) add(p int) { s.pages[p] = struct{}{} }

// Parse turns expr into a page set for a document with total pages.
//
// "all" (any case) and the empty expression select every page. Otherwise
// expr is a comma separated list of N or A-B tokens. In Strict mode any
// malformed or out of range token fails the whole expression with
// KindMalformedExpression; in Lenient mode such tokens are skipped and ranges
// are clipped. A parse that selects nothing fails with KindEmptyResult.
func Parse(expr string, total int, mode Mode) (Set, error) {
	trimmed := strings.TrimSpace(expr)
	if trimmed == "" || strings.EqualFold(trimmed, "all") {
		if total < 1 {
			return Set{}, apperr.New(apperr.KindEmptyResult, op, "document has no pages")
		}
		return All(total), nil
	}

	set := Of()
	for _, raw := range strings.Split(trimmed, ",") {
		tok := strings.Join(strings.Fields(raw), "")
		if tok == "" {
			continue
		}
		start, end, err := parseToken(tok)
		if err != nil {
			if mode == Strict {
				return Set{}, apperr.Newf(apperr.KindMalformedExpression, op, "token %q", tok)
			}
			continue
		}
		if start > end {
			if mode == Strict {
				return Set{}, apperr.Newf(apperr.KindMalformedExpression, op, "range %q starts after it ends", tok)
			}
			continue
		}
		if mode == Strict && (start < 1 || end > total) {
			return Set{}, apperr.Newf(apperr.KindMalformedExpression, op, "%q outside 1-%d", tok, total)
		}
		for p := max(start, 1); p <= min(end, total); p++ {
			set.add(p)
		}
	}

	if set.Len() == 0 {
		return Set{}, apperr.Newf(apperr.KindEmptyResult, op, "%q selects no pages", expr)
	}
	return set, nil
}

// parseToken returns the inclusive bounds of a single N or A-B token.
func parseToken(tok string) (int, int, error) {
	a, b, isRange := strings.Cut(tok, "-")
	if !isRange {
		n, err := strconv.Atoi(tok)
		return n, n, err
	}
	start, err := strconv.Atoi(a)
	if err != nil {
		return 0, 0, err
	}
	end, err := strconv.Atoi(b)
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}
