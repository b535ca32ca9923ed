package config

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ParseIntList expands a comma list whose items are integers or ranges
// start..end[:step]. The result is sorted and free of duplicates.
func ParseIntList(spec string) ([]int, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, nil
	}
	values := map[int]struct{}{}
	for _, tok := range strings.Split(spec, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		if strings.Contains(tok, "..") {
			rangeVals, err := expandRange(tok)
			if err != nil {
				return nil, err
			}
			for _, v := range rangeVals {
				values[v] = struct{}{}
			}
			continue
		}
		v, err := strconv.Atoi(tok)
		if err != nil {
			return nil, fmt.Errorf("invalid value %q: %w", tok, err)
		}
		values[v] = struct{}{}
	}
	if len(values) == 0 {
		return nil, errors.New("empty value set")
	}
	out := make([]int, 0, len(values))
	for v := range values {
		out = append(out, v)
	}
	sort.Ints(out)
	return out, nil
}

func expandRange(rng string) ([]int, error) {
	step := 1
	rangePart := rng
	if strings.Contains(rng, ":") {
		parts := strings.SplitN(rng, ":", 2)
		rangePart = parts[0]
		val, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			return nil, fmt.Errorf("invalid step in %q: %w", rng, err)
		}
		if val <= 0 {
			return nil, fmt.Errorf("step must be >0 in %q", rng)
		}
		step = val
	}
	bounds := strings.SplitN(rangePart, "..", 2)
	start, err := strconv.Atoi(strings.TrimSpace(bounds[0]))
	if err != nil {
		return nil, fmt.Errorf("invalid start in %q: %w", rng, err)
	}
	end, err := strconv.Atoi(strings.TrimSpace(bounds[1]))
	if err != nil {
		return nil, fmt.Errorf("invalid end in %q: %w", rng, err)
	}
	if end < start {
		return nil, fmt.Errorf("range end < start in %q", rng)
	}
	out := []int{}
	for v := start; v <= end; v += step {
		out = append(out, v)
	}
	return out, nil
}
