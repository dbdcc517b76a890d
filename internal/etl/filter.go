package etl

// FilterNulls drops every row with a missing value in any column, where a
// value is missing when it is blank or does not parse under the column's
// kind. No partial-record retention, no imputation: downstream aggregation
// assumes complete records. Returns the kept table and the count of dropped
// rows.
func FilterNulls(t *Table) (*Table, int64) {
	kept := make([][]string, 0, len(t.Rows))
	var dropped int64

	for _, row := range t.Rows {
		complete := true
		for i, val := range row {
			if missing(val, t.Kinds[i]) {
				complete = false
				break
			}
		}
		if complete {
			kept = append(kept, row)
		} else {
			dropped++
		}
	}

	return &Table{Columns: t.Columns, Kinds: t.Kinds, Rows: kept}, dropped
}
