// Package query builds filtered, sorted, paginated collection queries
// from flat request parameters. Configuration calls are chainable and
// order-independent; every Search/Filter/RawFilter call appends to one
// conjunctive condition list.
package query

import (
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"gorm.io/gorm"
)

// Op is a comparison operator recognized as a bracket suffix on filter
// keys, e.g. "totalHours[gte]".
type Op string

const (
	OpEq  Op = "eq"
	OpGt  Op = "gt"
	OpGte Op = "gte"
	OpLt  Op = "lt"
	OpLte Op = "lte"
	OpNe  Op = "ne"
	OpIn  Op = "in"
)

var sqlOperators = map[Op]string{
	OpEq:  "=",
	OpGt:  ">",
	OpGte: ">=",
	OpLt:  "<",
	OpLte: "<=",
	OpNe:  "<>",
}

// Reserved parameter keys that drive other stages and are never
// translated into filter conditions.
var reservedParams = map[string]bool{
	"searchTerm": true,
	"sort":       true,
	"limit":      true,
	"page":       true,
	"fields":     true,
	"date":       true,
}

const (
	defaultPage  = 1
	defaultLimit = 10
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

var filterKeyPattern = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)\[([a-z]+)\]$`)

type relation struct {
	joinSQL string
	table   string
}

type preload struct {
	name string
	args []any
}

// Meta is the pagination envelope returned by CountTotal.
type Meta struct {
	Page      int   `json:"page"`
	Limit     int   `json:"limit"`
	Total     int64 `json:"total"`
	TotalPage int   `json:"totalPage"`
}

// Builder accumulates one query specification over a gorm model. The db
// handle passed to New must already carry the target model, e.g.
// query.New(db.Model(&models.Project{}), params).
type Builder struct {
	db        *gorm.DB
	params    url.Values
	scopes    []func(*gorm.DB) *gorm.DB
	order     []string
	selects   []string
	preloads  []preload
	relations map[string]relation
	usedJoins []string
	page      int
	limit     int
	paginated bool
}

func New(db *gorm.DB, params url.Values) *Builder {
	return &Builder{
		db:        db,
		params:    params,
		relations: make(map[string]relation),
	}
}

// Join registers a one-level relation for dot-nested search and sort
// fields. The join clause is applied only when a nested field actually
// references the relation.
func (b *Builder) Join(name, table, joinSQL string) *Builder {
	b.relations[name] = relation{joinSQL: joinSQL, table: table}
	return b
}

// Search adds an OR-group of case-insensitive substring matches across
// fields when a searchTerm parameter is present. Fields may be nested
// one level ("relation.field") against a registered relation.
func (b *Builder) Search(fields ...string) *Builder {
	term := b.params.Get("searchTerm")
	if term == "" {
		return b
	}

	var conds []string
	var args []any
	pattern := "%" + escapeLike(strings.ToLower(term)) + "%"

	for _, field := range fields {
		col, ok := b.resolveColumn(field)
		if !ok {
			continue
		}
		conds = append(conds, fmt.Sprintf(`LOWER(%s) LIKE ? ESCAPE '\'`, col))
		args = append(args, pattern)
	}
	if len(conds) == 0 {
		return b
	}

	clause := "(" + strings.Join(conds, " OR ") + ")"
	b.scopes = append(b.scopes, func(tx *gorm.DB) *gorm.DB {
		return tx.Where(clause, args...)
	})
	return b
}

// Filter turns every non-reserved parameter into a comparison condition.
// Keys may carry an operator suffix ("field[gte]"); bare keys compare
// for equality. Values that parse as numbers are compared numerically.
func (b *Builder) Filter() *Builder {
	for key, values := range b.params {
		if reservedParams[key] || len(values) == 0 || values[0] == "" {
			continue
		}

		field, op, ok := parseFilterKey(key)
		if !ok {
			continue
		}
		col := toColumn(field)
		value := values[0]

		switch op {
		case OpIn:
			parts := strings.Split(value, ",")
			args := make([]any, 0, len(parts))
			for _, p := range parts {
				args = append(args, parseValue(strings.TrimSpace(p)))
			}
			cond := fmt.Sprintf("%s IN ?", col)
			b.scopes = append(b.scopes, func(tx *gorm.DB) *gorm.DB {
				return tx.Where(cond, args)
			})
		default:
			cond := fmt.Sprintf("%s %s ?", col, sqlOperators[op])
			arg := parseValue(value)
			b.scopes = append(b.scopes, func(tx *gorm.DB) *gorm.DB {
				return tx.Where(cond, arg)
			})
		}
	}
	return b
}

// RawFilter injects a pre-built predicate for conditions the mechanical
// Filter cannot express, such as relation-existential subqueries.
func (b *Builder) RawFilter(cond string, args ...any) *Builder {
	b.scopes = append(b.scopes, func(tx *gorm.DB) *gorm.DB {
		return tx.Where(cond, args...)
	})
	return b
}

// Sort reads the comma-separated sort parameter; a leading "-" means
// descending and fields may be nested one level against a registered
// relation. With no parameter the newest records come first.
func (b *Builder) Sort() *Builder {
	spec := b.params.Get("sort")
	if spec == "" {
		spec = "-createdAt"
	}

	for _, field := range strings.Split(spec, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		dir := "ASC"
		if strings.HasPrefix(field, "-") {
			dir = "DESC"
			field = field[1:]
		}
		col, ok := b.resolveColumn(field)
		if !ok {
			continue
		}
		b.order = append(b.order, col+" "+dir)
	}
	return b
}

// Fields restricts the selected columns to the comma-separated fields
// parameter.
func (b *Builder) Fields() *Builder {
	spec := b.params.Get("fields")
	if spec == "" {
		return b
	}
	for _, field := range strings.Split(spec, ",") {
		col := toColumn(strings.TrimSpace(field))
		if identPattern.MatchString(col) {
			b.selects = append(b.selects, col)
		}
	}
	return b
}

// Paginate applies the page/limit window, defaulting to page 1 with 10
// records.
func (b *Builder) Paginate() *Builder {
	b.page, b.limit = b.pageWindow()
	b.paginated = true
	return b
}

// Include declares a relation to eager-load, with optional conditions in
// gorm Preload form. Calls merge.
func (b *Builder) Include(name string, args ...any) *Builder {
	b.preloads = append(b.preloads, preload{name: name, args: args})
	return b
}

// Execute runs the composed query into dest.
func (b *Builder) Execute(dest any) error {
	tx := b.apply(b.db.Session(&gorm.Session{}))
	switch {
	case len(b.selects) > 0:
		tx = tx.Select(b.selects)
	case len(b.usedJoins) > 0:
		// Joined tables must not leak columns into the scan
		if err := tx.Statement.Parse(tx.Statement.Model); err == nil {
			tx = tx.Select(tx.Statement.Table + ".*")
		}
	}
	for _, o := range b.order {
		tx = tx.Order(o)
	}
	if b.paginated {
		tx = tx.Offset((b.page - 1) * b.limit).Limit(b.limit)
	}
	for _, p := range b.preloads {
		tx = tx.Preload(p.name, p.args...)
	}
	return tx.Find(dest).Error
}

// CountTotal counts the full filtered set, ignoring sort, pagination and
// includes, and returns the pagination envelope.
func (b *Builder) CountTotal() (Meta, error) {
	var total int64
	tx := b.apply(b.db.Session(&gorm.Session{}))
	if err := tx.Count(&total).Error; err != nil {
		return Meta{}, err
	}

	page, limit := b.pageWindow()
	return Meta{
		Page:      page,
		Limit:     limit,
		Total:     total,
		TotalPage: int(math.Ceil(float64(total) / float64(limit))),
	}, nil
}

func (b *Builder) apply(tx *gorm.DB) *gorm.DB {
	for _, join := range b.usedJoins {
		tx = tx.Joins(join)
	}
	for _, scope := range b.scopes {
		tx = scope(tx)
	}
	return tx
}

func (b *Builder) pageWindow() (int, int) {
	page := defaultPage
	limit := defaultLimit
	if p, err := strconv.Atoi(b.params.Get("page")); err == nil && p > 0 {
		page = p
	}
	if l, err := strconv.Atoi(b.params.Get("limit")); err == nil && l > 0 {
		limit = l
	}
	return page, limit
}

// resolveColumn maps a request field to a SQL column, handling one level
// of dot nesting through registered relations. Unresolvable or unsafe
// fields are dropped.
func (b *Builder) resolveColumn(field string) (string, bool) {
	if name, nested, found := strings.Cut(field, "."); found {
		rel, ok := b.relations[name]
		if !ok {
			return "", false
		}
		col := toColumn(nested)
		if !identPattern.MatchString(col) {
			return "", false
		}
		b.markJoin(rel.joinSQL)
		return rel.table + "." + col, true
	}

	col := toColumn(field)
	if !identPattern.MatchString(col) {
		return "", false
	}
	return col, true
}

func (b *Builder) markJoin(joinSQL string) {
	for _, j := range b.usedJoins {
		if j == joinSQL {
			return
		}
	}
	b.usedJoins = append(b.usedJoins, joinSQL)
}

func parseFilterKey(key string) (string, Op, bool) {
	if m := filterKeyPattern.FindStringSubmatch(key); m != nil {
		op := Op(m[2])
		if _, known := sqlOperators[op]; known || op == OpIn {
			return m[1], op, true
		}
		return "", "", false
	}
	if identPattern.MatchString(key) {
		return key, OpEq, true
	}
	return "", "", false
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike neutralizes LIKE metacharacters so search terms match
// literally.
func escapeLike(term string) string {
	return likeEscaper.Replace(term)
}

func parseValue(raw string) any {
	if n, err := strconv.ParseFloat(raw, 64); err == nil {
		return n
	}
	return raw
}

// toColumn converts a camelCase request field to its snake_case column.
func toColumn(field string) string {
	var sb strings.Builder
	for i, r := range field {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				sb.WriteByte('_')
			}
			sb.WriteRune(r + ('a' - 'A'))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
