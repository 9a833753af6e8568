package db

import (
	"fmt"
	"sort"
	"strings"

	"github.com/core-admin/backend/internal/model"
)

// whereClause renders exact-match filters as "WHERE a = $1 AND b = $2".
// Column names are checked against allowed because they are interpolated.
func whereClause(filters map[string]any, allowed map[string]bool) (string, []any, error) {
	if len(filters) == 0 {
		return "", nil, nil
	}

	cols := make([]string, 0, len(filters))
	for col := range filters {
		if !allowed[col] {
			return "", nil, fmt.Errorf("filter on %q is not allowed", col)
		}
		cols = append(cols, col)
	}
	sort.Strings(cols)

	conds := make([]string, 0, len(cols))
	args := make([]any, 0, len(cols))
	for i, col := range cols {
		conds = append(conds, fmt.Sprintf("%s = $%d", col, i+1))
		args = append(args, filters[col])
	}
	return "WHERE " + strings.Join(conds, " AND "), args, nil
}

// limitClause appends LIMIT/OFFSET placeholders after the filter arguments.
func limitClause(q model.ListQuery, args []any) (string, []any) {
	if q.Limit <= 0 {
		return "", args
	}
	n := len(args)
	args = append(args, q.Limit, q.Offset)
	return fmt.Sprintf("LIMIT $%d OFFSET $%d", n+1, n+2), args
}
