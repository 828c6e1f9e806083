package query

import (
	"sort"
	"strconv"
	"strings"
)

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

const DefaultPageSize = 25

// Filter is one filter value: a scalar, an inclusive range, or a
// multi-select set. A zero Filter means "not applied" and is omitted from
// the canonical key.
type Filter struct {
	Equals string   `json:"equals,omitempty"`
	Min    string   `json:"min,omitempty"`
	Max    string   `json:"max,omitempty"`
	AnyOf  []string `json:"anyOf,omitempty"`
}

func (f Filter) IsZero() bool {
	return f.Equals == "" && f.Min == "" && f.Max == "" && len(f.AnyOf) == 0
}

// Params is an immutable query descriptor. Apply returns a modified copy;
// existing values are never mutated, so a Params can be shared freely and
// used as a cache key after canonicalization.
type Params struct {
	Entity        string            `json:"entity"`
	Page          int               `json:"page"`
	PageSize      int               `json:"pageSize"`
	SearchText    string            `json:"searchText,omitempty"`
	SortField     string            `json:"sortField,omitempty"`
	SortDirection Direction         `json:"sortDirection,omitempty"`
	Filters       map[string]Filter `json:"filters,omitempty"`
}

func NewParams(entity string) Params {
	return Params{
		Entity:        entity,
		Page:          1,
		PageSize:      DefaultPageSize,
		SortDirection: Desc,
	}
}

func (p Params) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// Patch is a partial edit to Params. Nil fields are left untouched. A zero
// Filter value in Filters removes that filter key.
type Patch struct {
	Page          *int              `json:"page,omitempty"`
	PageSize      *int              `json:"pageSize,omitempty"`
	SearchText    *string           `json:"searchText,omitempty"`
	SortField     *string           `json:"sortField,omitempty"`
	SortDirection *Direction        `json:"sortDirection,omitempty"`
	Filters       map[string]Filter `json:"filters,omitempty"`
}

// Apply merges a patch into the params, last writer wins. Editing the search
// text or any filter resets the page to 1; an explicit page in the same
// patch is applied after the reset and therefore wins.
func (p Params) Apply(patch Patch) Params {
	next := p
	next.Filters = make(map[string]Filter, len(p.Filters))
	for k, v := range p.Filters {
		next.Filters[k] = v
	}

	if patch.SearchText != nil {
		next.SearchText = *patch.SearchText
		next.Page = 1
	}
	if patch.Filters != nil {
		for k, v := range patch.Filters {
			if v.IsZero() {
				delete(next.Filters, k)
			} else {
				next.Filters[k] = v
			}
		}
		next.Page = 1
	}
	if patch.SortField != nil {
		next.SortField = *patch.SortField
	}
	if patch.SortDirection != nil {
		next.SortDirection = *patch.SortDirection
	}
	if patch.PageSize != nil && *patch.PageSize > 0 {
		next.PageSize = *patch.PageSize
	}
	if patch.Page != nil && *patch.Page >= 1 {
		next.Page = *patch.Page
	}
	return next
}

// CanonicalKey encodes the params as a normalized, order-independent string:
// filter keys are sorted, multi-select values are sorted, empty filters and
// empty search are omitted. Structurally equal params always produce the
// same key.
func (p Params) CanonicalKey() string {
	var b strings.Builder
	b.WriteString(p.Entity)
	b.WriteString("|p=")
	b.WriteString(strconv.Itoa(p.Page))
	b.WriteString("|s=")
	b.WriteString(strconv.Itoa(p.PageSize))

	if q := strings.TrimSpace(p.SearchText); q != "" {
		b.WriteString("|q=")
		b.WriteString(q)
	}
	if p.SortField != "" {
		b.WriteString("|sort=")
		b.WriteString(p.SortField)
		b.WriteString(":")
		b.WriteString(string(p.SortDirection))
	}

	keys := make([]string, 0, len(p.Filters))
	for k, f := range p.Filters {
		if !f.IsZero() {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		f := p.Filters[k]
		b.WriteString("|f.")
		b.WriteString(k)
		b.WriteString("=")
		switch {
		case len(f.AnyOf) > 0:
			values := append([]string(nil), f.AnyOf...)
			sort.Strings(values)
			b.WriteString("in:")
			b.WriteString(strings.Join(values, ","))
		case f.Min != "" || f.Max != "":
			b.WriteString("rng:")
			b.WriteString(f.Min)
			b.WriteString("..")
			b.WriteString(f.Max)
		default:
			b.WriteString("eq:")
			b.WriteString(f.Equals)
		}
	}
	return b.String()
}

// KeyPrefix is the canonical-key prefix shared by every query against one
// entity type. Mutations invalidate by this prefix.
func KeyPrefix(entity string) string {
	return entity + "|"
}
