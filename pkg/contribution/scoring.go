package contribution

import (
	"fmt"
	"sort"
)

// Policy maps contribution kinds to point values.
// The kinds present in the table are the only kinds accepted at ingestion.
type Policy struct {
	points map[Kind]int
}

// NewPolicy builds a Policy from a kind → points table, typically the scoring config section.
func NewPolicy(table map[string]int) (*Policy, error) {
	if len(table) == 0 {
		return nil, fmt.Errorf("scoring table is empty")
	}
	points := make(map[Kind]int, len(table))
	for name, p := range table {
		kind := ParseKind(name)
		if kind == "" {
			return nil, fmt.Errorf("scoring table has an empty kind")
		}
		if p < 0 {
			return nil, fmt.Errorf("scoring table: kind %q has negative points %d", kind, p)
		}
		points[kind] = p
	}
	return &Policy{points: points}, nil
}

// Points returns the point value of kind, or ErrInvalidKind.
func (p *Policy) Points(kind Kind) (int, error) {
	pts, ok := p.points[kind]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}
	return pts, nil
}

// Known reports whether kind is in the table.
func (p *Policy) Known(kind Kind) bool {
	_, ok := p.points[kind]
	return ok
}

// Kinds returns the known kinds in lexical order.
func (p *Policy) Kinds() []Kind {
	kinds := make([]Kind, 0, len(p.points))
	for k := range p.points {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
