package dataset

import (
	"context"

	"github.com/sells-group/market-etl/internal/etl"
)

// transform runs the shared cleaning sequence for one cut: load the raw
// extract, project the cut's column subset, drop rows with missing values,
// and derive the period year and month name. Returns the enriched table
// with the raw and dropped row counts.
func transform(ctx context.Context, sess *etl.Session, uri string, src Source, columns []string) (*etl.Table, int64, int64, error) {
	tbl, err := etl.Load(ctx, sess, uri, etl.LoadOptions{Encoding: src.Encoding})
	if err != nil {
		return nil, 0, 0, err
	}
	loaded := int64(len(tbl.Rows))

	tbl, err = etl.Project(tbl, columns)
	if err != nil {
		return nil, loaded, 0, err
	}

	tbl, dropped := etl.FilterNulls(tbl)

	if err := etl.DeriveYear(tbl, "period_end", "period_end_yr"); err != nil {
		return nil, loaded, dropped, err
	}
	if err := etl.DeriveMonthName(tbl, "period_end", "period_end_month"); err != nil {
		return nil, loaded, dropped, err
	}
	return tbl, loaded, dropped, nil
}

// indexes maps each column name to its position in the table.
func indexes(t *etl.Table) map[string]int {
	m := make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		m[c] = i
	}
	return m
}
