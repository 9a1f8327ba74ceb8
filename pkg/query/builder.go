package query

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// predicate is one WHERE term. Each "?" in clause is replaced by the next
// positional parameter when the query is rendered.
type predicate struct {
	clause string
	args   []any
}

// SortField is one ORDER BY term. Field is a view name resolved through the
// projection.
type SortField struct {
	Field      string
	Descending bool
}

// Builder assembles SELECT statements over a projection with numbered
// Postgres parameters.
type Builder struct {
	projection  *ProjectionMap
	predicates  []predicate
	sort        []SortField
	defaultSort []SortField
	forUpdate   bool
}

// NewBuilder creates a Builder for projection. defaultSort applies when no
// explicit order is set.
func NewBuilder(projection *ProjectionMap, defaultSort ...SortField) *Builder {
	return &Builder{
		projection:  projection,
		defaultSort: defaultSort,
	}
}

// ParseSortFields parses "status,-reminderAt" into sort fields. A leading "-"
// sorts descending. Blank entries are skipped and empty input yields nil.
func ParseSortFields(s string) []SortField {
	if strings.TrimSpace(s) == "" {
		return nil
	}

	var fields []SortField
	for part := range strings.SplitSeq(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, desc := strings.CutPrefix(part, "-")
		fields = append(fields, SortField{Field: name, Descending: desc})
	}
	return fields
}

// OrderByFields replaces the default sort order.
func (b *Builder) OrderByFields(fields []SortField) *Builder {
	b.sort = fields
	return b
}

// ForUpdate row-locks the selected rows. It applies to BuildSingle and
// BuildLimit and must run inside a transaction.
func (b *Builder) ForUpdate() *Builder {
	b.forUpdate = true
	return b
}

// WhereEquals adds field = value. Nil values are skipped.
func (b *Builder) WhereEquals(field string, value any) *Builder {
	return b.compare(field, "=", value)
}

// WhereSince adds field >= value. Nil values are skipped.
func (b *Builder) WhereSince(field string, value any) *Builder {
	return b.compare(field, ">=", value)
}

// WhereBefore adds field <= value. Nil values are skipped.
func (b *Builder) WhereBefore(field string, value any) *Builder {
	return b.compare(field, "<=", value)
}

// WhereSearch matches search case-insensitively against any of fields.
// A nil or empty search is skipped.
func (b *Builder) WhereSearch(search *string, fields ...string) *Builder {
	if search == nil || *search == "" || len(fields) == 0 {
		return b
	}

	terms := make([]string, len(fields))
	args := make([]any, len(fields))
	for i, field := range fields {
		terms[i] = b.projection.Column(field) + " ILIKE ?"
		args[i] = "%" + *search + "%"
	}

	b.predicates = append(b.predicates, predicate{
		clause: "(" + strings.Join(terms, " OR ") + ")",
		args:   args,
	})
	return b
}

func (b *Builder) compare(field, op string, value any) *Builder {
	if isNil(value) {
		return b
	}
	b.predicates = append(b.predicates, predicate{
		clause: fmt.Sprintf("%s %s ?", b.projection.Column(field), op),
		args:   []any{value},
	})
	return b
}

// BuildCount returns a COUNT(*) over the current conditions.
func (b *Builder) BuildCount() (string, []any) {
	where, args := b.where()
	return "SELECT COUNT(*) FROM " + b.projection.From() + where, args
}

// BuildPage returns one ordered page. page is 1-based.
func (b *Builder) BuildPage(page, pageSize int) (string, []any) {
	where, args := b.where()
	sql := fmt.Sprintf("%s%s%s LIMIT %d OFFSET %d",
		b.selectFrom(), where, b.orderBy(), pageSize, (page-1)*pageSize)
	return sql, args
}

// BuildLimit returns at most limit ordered rows.
func (b *Builder) BuildLimit(limit int) (string, []any) {
	where, args := b.where()
	sql := fmt.Sprintf("%s%s%s LIMIT %d", b.selectFrom(), where, b.orderBy(), limit)
	return sql + b.lockClause(), args
}

// BuildSingle selects the row whose idField equals id. Other conditions
// are ignored.
func (b *Builder) BuildSingle(idField string, id any) (string, []any) {
	sql := fmt.Sprintf("%s WHERE %s = $1", b.selectFrom(), b.projection.Column(idField))
	return sql + b.lockClause(), []any{id}
}

func (b *Builder) selectFrom() string {
	return "SELECT " + b.projection.Columns() + " FROM " + b.projection.From()
}

func (b *Builder) lockClause() string {
	if b.forUpdate {
		return " FOR UPDATE"
	}
	return ""
}

func (b *Builder) orderBy() string {
	fields := b.sort
	if len(fields) == 0 {
		fields = b.defaultSort
	}
	if len(fields) == 0 {
		return ""
	}

	terms := make([]string, len(fields))
	for i, f := range fields {
		dir := " ASC"
		if f.Descending {
			dir = " DESC"
		}
		terms[i] = b.projection.Column(f.Field) + dir
	}
	return " ORDER BY " + strings.Join(terms, ", ")
}

func (b *Builder) where() (string, []any) {
	if len(b.predicates) == 0 {
		return "", nil
	}

	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString(" WHERE ")
	for i, p := range b.predicates {
		if i > 0 {
			sb.WriteString(" AND ")
		}
		rest := p.clause
		for _, arg := range p.args {
			before, after, _ := strings.Cut(rest, "?")
			args = append(args, arg)
			sb.WriteString(before)
			sb.WriteString("$" + strconv.Itoa(len(args)))
			rest = after
		}
		sb.WriteString(rest)
	}
	return sb.String(), args
}

func isNil(value any) bool {
	if value == nil {
		return true
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return v.IsNil()
	}
	return false
}
