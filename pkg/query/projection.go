// Package query builds parameterized Postgres SELECTs from projection maps.
package query

import "strings"

// ProjectionMap maps Go field names to alias-qualified columns of one table.
// Columns keep their declaration order so scans can rely on it.
type ProjectionMap struct {
	from    string
	alias   string
	byField map[string]string
	ordered []string
}

// NewProjectionMap starts a projection over schema.table aliased as alias.
func NewProjectionMap(schema, table, alias string) *ProjectionMap {
	return &ProjectionMap{
		from:    schema + "." + table + " " + alias,
		alias:   alias,
		byField: make(map[string]string),
	}
}

// Project appends column under the field name used by builders and filters.
func (p *ProjectionMap) Project(column, field string) *ProjectionMap {
	qualified := p.alias + "." + column
	p.byField[field] = qualified
	p.ordered = append(p.ordered, qualified)
	return p
}

// Alias returns the table alias.
func (p *ProjectionMap) Alias() string {
	return p.alias
}

// From returns "schema.table alias".
func (p *ProjectionMap) From() string {
	return p.from
}

// Column resolves field to its qualified column. Unknown names pass through.
func (p *ProjectionMap) Column(field string) string {
	if col, ok := p.byField[field]; ok {
		return col
	}
	return field
}

// Columns returns the select list in declaration order.
func (p *ProjectionMap) Columns() string {
	return strings.Join(p.ordered, ", ")
}

// ColumnList returns the qualified columns in declaration order.
func (p *ProjectionMap) ColumnList() []string {
	return p.ordered
}
