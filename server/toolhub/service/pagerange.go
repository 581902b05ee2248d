package service

import (
	"fmt"
	"strconv"
	"strings"

	"toolhub/server/toolhub/domain"
)

// PageRange is one inclusive 1-based page interval.
type PageRange struct {
	Start int
	End   int
}

// ParsePageRanges parses the "1,3-5,8" grammar. Every endpoint must lie in
// [1, totalPages] and start must not exceed end; one bad element rejects the
// whole expression so nothing gets silently skipped.
func ParsePageRanges(expr string, totalPages int) ([]PageRange, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, fmt.Errorf("%w: pages must not be empty", domain.ErrBadRequest)
	}

	var ranges []PageRange
	for _, elem := range strings.Split(expr, ",") {
		elem = strings.TrimSpace(elem)
		start, end, err := parseRangeElement(elem)
		if err != nil {
			return nil, err
		}
		if start < 1 || end > totalPages {
			return nil, fmt.Errorf("%w: pages %q outside document range 1-%d", domain.ErrBadRequest, elem, totalPages)
		}
		ranges = append(ranges, PageRange{Start: start, End: end})
	}
	return ranges, nil
}

func parseRangeElement(elem string) (int, int, error) {
	if elem == "" {
		return 0, 0, fmt.Errorf("%w: empty pages element", domain.ErrBadRequest)
	}
	if start, end, found := strings.Cut(elem, "-"); found {
		a, errA := strconv.Atoi(strings.TrimSpace(start))
		b, errB := strconv.Atoi(strings.TrimSpace(end))
		if errA != nil || errB != nil {
			return 0, 0, fmt.Errorf("%w: pages element %q is not a number or range", domain.ErrBadRequest, elem)
		}
		if a > b {
			return 0, 0, fmt.Errorf("%w: pages range %q is inverted", domain.ErrBadRequest, elem)
		}
		return a, b, nil
	}
	n, err := strconv.Atoi(elem)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: pages element %q is not a number or range", domain.ErrBadRequest, elem)
	}
	return n, n, nil
}

// Selection renders the ranges in the form the PDF library expects.
func Selection(ranges []PageRange) []string {
	selected := make([]string, 0, len(ranges))
	for _, r := range ranges {
		if r.Start == r.End {
			selected = append(selected, strconv.Itoa(r.Start))
			continue
		}
		selected = append(selected, fmt.Sprintf("%d-%d", r.Start, r.End))
	}
	return selected
}
