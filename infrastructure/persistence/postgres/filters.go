package postgres

import (
	"fmt"
	"strings"

	"recall-backend/domain/retrieval"
)

// compileFilter translates the shared pre-filter into a parameterized WHERE
// fragment for memory_units. The same predicate is pushed into every
// retriever's candidate selection, ahead of any ranking expression, so top-k
// always means k matching rows. The opaque visibility fragment uses `?`
// placeholders which are renumbered into the statement's parameter space.
func compileFilter(f retrieval.Filter, args []any) (string, []any) {
	clauses := []string{"NOT m.deleted"}

	if len(f.Tags) > 0 {
		args = append(args, f.Tags)
		clauses = append(clauses, fmt.Sprintf("m.tags @> $%d::text[]", len(args)))
	}
	if f.DateFrom != nil {
		args = append(args, *f.DateFrom)
		clauses = append(clauses, fmt.Sprintf("m.created_at >= $%d", len(args)))
	}
	if f.DateTo != nil {
		args = append(args, *f.DateTo)
		clauses = append(clauses, fmt.Sprintf("m.created_at <= $%d", len(args)))
	}
	if len(f.SourceTypes) > 0 {
		types := make([]string, len(f.SourceTypes))
		for i, st := range f.SourceTypes {
			types[i] = string(st)
		}
		args = append(args, types)
		clauses = append(clauses, fmt.Sprintf("m.source_type = ANY($%d)", len(args)))
	}
	if len(f.Sectors) > 0 {
		sectors := make([]string, len(f.Sectors))
		for i, s := range f.Sectors {
			sectors[i] = string(s)
		}
		args = append(args, sectors)
		clauses = append(clauses, fmt.Sprintf("m.sector = ANY($%d)", len(args)))
	}
	if !f.Visibility.IsZero() {
		fragment := f.Visibility.Fragment
		for _, a := range f.Visibility.Args {
			args = append(args, a)
			fragment = strings.Replace(fragment, "?", fmt.Sprintf("$%d", len(args)), 1)
		}
		clauses = append(clauses, "("+fragment+")")
	}

	return strings.Join(clauses, " AND "), args
}

// escapeLike neutralizes LIKE/ILIKE metacharacters in user-derived match
// terms so a node named "%" or "a_b" matches literally instead of acting
// as a wildcard.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
