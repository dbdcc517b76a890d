package etl

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Project returns the table restricted to the named columns, in the given
// order. Every named column must be present; missing ones fail the step with
// a schema-mismatch error listing all of them. Silently narrowing the record
// would mask upstream schema drift, so it is never done.
func Project(t *Table, columns []string) (*Table, error) {
	idx := make([]int, 0, len(columns))
	var absent []string
	for _, name := range columns {
		i := t.Index(name)
		if i < 0 {
			absent = append(absent, name)
			continue
		}
		idx = append(idx, i)
	}
	if len(absent) > 0 {
		return nil, eris.Errorf("etl: schema mismatch: missing columns: %s", strings.Join(absent, ", "))
	}

	out := &Table{
		Columns: append([]string(nil), columns...),
		Kinds:   make([]Kind, len(columns)),
		Rows:    make([][]string, len(t.Rows)),
	}
	for j, i := range idx {
		out.Kinds[j] = t.Kinds[i]
	}
	for r, rec := range t.Rows {
		row := make([]string, len(idx))
		for j, i := range idx {
			row[j] = rec[i]
		}
		out.Rows[r] = row
	}
	return out, nil
}
