package mysql

import (
	"fmt"
	"sort"
	"strings"

	"absstitch/internal/query"
)

// CriteriaConverter turns query.Params into SQL clauses with ? placeholders.
// Filter keys and the sort field are mapped through an allow-list of
// columns; unknown fields are ignored rather than interpolated, so params
// coming from the edge can never inject identifiers.
type CriteriaConverter struct {
	columns       map[string]string
	searchColumns []string
}

func NewCriteriaConverter(columns map[string]string, searchColumns []string) *CriteriaConverter {
	return &CriteriaConverter{
		columns:       columns,
		searchColumns: searchColumns,
	}
}

// SelectSQL appends WHERE, ORDER BY and LIMIT/OFFSET clauses to a base
// SELECT statement.
func (c *CriteriaConverter) SelectSQL(base string, p query.Params) (string, []any) {
	parts := []string{base}
	var args []any

	if where, whereArgs := c.whereClause(p); where != "" {
		parts = append(parts, where)
		args = append(args, whereArgs...)
	}
	if order := c.orderClause(p); order != "" {
		parts = append(parts, order)
	}
	parts = append(parts, "LIMIT ? OFFSET ?")
	args = append(args, p.PageSize, p.Offset())

	return strings.Join(parts, " "), args
}

// CountSQL appends only the WHERE clause to a base COUNT statement.
func (c *CriteriaConverter) CountSQL(base string, p query.Params) (string, []any) {
	parts := []string{base}
	var args []any

	if where, whereArgs := c.whereClause(p); where != "" {
		parts = append(parts, where)
		args = append(args, whereArgs...)
	}
	return strings.Join(parts, " "), args
}

func (c *CriteriaConverter) whereClause(p query.Params) (string, []any) {
	var conditions []string
	var args []any

	if q := strings.TrimSpace(p.SearchText); q != "" && len(c.searchColumns) > 0 {
		like := "%" + q + "%"
		var ors []string
		for _, col := range c.searchColumns {
			ors = append(ors, fmt.Sprintf("%s LIKE ?", col))
			args = append(args, like)
		}
		conditions = append(conditions, "("+strings.Join(ors, " OR ")+")")
	}

	// Iterate in canonical-key order so the generated SQL is stable.
	for _, field := range sortedFilterKeys(p.Filters) {
		col, ok := c.columns[field]
		if !ok {
			continue
		}
		f := p.Filters[field]
		switch {
		case len(f.AnyOf) > 0:
			placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(f.AnyOf)), ", ")
			conditions = append(conditions, fmt.Sprintf("%s IN (%s)", col, placeholders))
			for _, v := range f.AnyOf {
				args = append(args, v)
			}
		case f.Min != "" || f.Max != "":
			if f.Min != "" {
				conditions = append(conditions, fmt.Sprintf("%s >= ?", col))
				args = append(args, f.Min)
			}
			if f.Max != "" {
				conditions = append(conditions, fmt.Sprintf("%s <= ?", col))
				args = append(args, f.Max)
			}
		default:
			conditions = append(conditions, fmt.Sprintf("%s = ?", col))
			args = append(args, f.Equals)
		}
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}

func (c *CriteriaConverter) orderClause(p query.Params) string {
	col, ok := c.columns[p.SortField]
	if !ok {
		return ""
	}
	dir := "DESC"
	if p.SortDirection == query.Asc {
		dir = "ASC"
	}
	return fmt.Sprintf("ORDER BY %s %s", col, dir)
}

func sortedFilterKeys(filters map[string]query.Filter) []string {
	keys := make([]string, 0, len(filters))
	for k, f := range filters {
		if !f.IsZero() {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
