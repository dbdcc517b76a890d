package dataset

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/market-etl/internal/db"
	"github.com/sells-group/market-etl/internal/etl"
)

const nationalURL = "https://redfin-public-data.s3.us-west-2.amazonaws.com/redfin_market_tracker/us_national_market_tracker.tsv000.gz"

// nationalColumns carries the shared metrics without geography columns.
var nationalColumns = []string{
	"period_end",
	"period_duration",
	"property_type",
	"median_sale_price",
	"median_ppsf",
	"homes_sold",
	"inventory",
	"months_of_supply",
	"median_dom",
	"sold_above_list",
	"last_updated",
}

var nationalLoadColumns = append(append([]string{}, nationalColumns...), "period_end_yr", "period_end_month")

// NationalRow is the typed Parquet schema of the national cut.
type NationalRow struct {
	PeriodEnd       string  `parquet:"name=period_end, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	PeriodDuration  string  `parquet:"name=period_duration, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	PropertyType    string  `parquet:"name=property_type, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	MedianSalePrice float64 `parquet:"name=median_sale_price, type=DOUBLE"`
	MedianPPSF      float64 `parquet:"name=median_ppsf, type=DOUBLE"`
	HomesSold       int64   `parquet:"name=homes_sold, type=INT64"`
	Inventory       int64   `parquet:"name=inventory, type=INT64"`
	MonthsOfSupply  float64 `parquet:"name=months_of_supply, type=DOUBLE"`
	MedianDOM       float64 `parquet:"name=median_dom, type=DOUBLE"`
	SoldAboveList   float64 `parquet:"name=sold_above_list, type=DOUBLE"`
	LastUpdated     string  `parquet:"name=last_updated, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	PeriodEndYr     int32   `parquet:"name=period_end_yr, type=INT32"`
	PeriodEndMonth  string  `parquet:"name=period_end_month, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
}

// National implements the national market tracker cut.
type National struct {
	src Source
}

// NewNational creates the national cut with any manifest overrides applied.
func NewNational(man *Manifest) *National {
	return &National{src: man.source("national", Source{URL: nationalURL})}
}

func (d *National) Name() string        { return "national" }
func (d *National) Table() string       { return "market.national_tracker" }
func (d *National) Source() Source      { return d.src }
func (d *National) RawObject() string   { return "us_national_market_tracker.tsv000.gz" }
func (d *National) CleanObject() string { return "us_national_market_tracker.parquet" }

func (d *National) Run(ctx context.Context, sess *etl.Session) (*etl.Result, error) {
	tbl, loaded, dropped, err := transform(ctx, sess, sess.RawURI(d.RawObject()), d.src, nationalColumns)
	if err != nil {
		return nil, eris.Wrap(err, "national: transform")
	}

	rows := buildNationalRows(tbl)
	out := sess.CleanURI(d.CleanObject())
	if err := etl.WriteParquet(ctx, sess, out, rows); err != nil {
		return nil, eris.Wrap(err, "national: write output")
	}

	return &etl.Result{
		RowsLoaded:  loaded,
		RowsDropped: dropped,
		RowsWritten: int64(len(rows)),
		Columns:     len(tbl.Columns),
		Output:      out,
	}, nil
}

func (d *National) Load(ctx context.Context, sess *etl.Session, pool db.Pool, upsert bool) (int64, error) {
	rows, err := etl.ReadParquet[NationalRow](ctx, sess, sess.CleanURI(d.CleanObject()))
	if err != nil {
		return 0, eris.Wrap(err, "national: read clean output")
	}

	records := make([][]any, 0, len(rows))
	for _, r := range rows {
		periodEnd, ok := etl.ParseDate(r.PeriodEnd)
		if !ok {
			return 0, eris.Errorf("national: bad period_end %q", r.PeriodEnd)
		}
		lastUpdated, ok := etl.ParseTime(r.LastUpdated)
		if !ok {
			return 0, eris.Errorf("national: bad last_updated %q", r.LastUpdated)
		}
		records = append(records, []any{
			periodEnd, r.PeriodDuration, r.PropertyType,
			r.MedianSalePrice, r.MedianPPSF, r.HomesSold, r.Inventory,
			r.MonthsOfSupply, r.MedianDOM, r.SoldAboveList, lastUpdated,
			r.PeriodEndYr, r.PeriodEndMonth,
		})
	}

	if upsert {
		return db.BulkUpsert(ctx, pool, db.UpsertConfig{
			Table:        d.Table(),
			Columns:      nationalLoadColumns,
			ConflictKeys: []string{"period_end", "period_duration", "property_type"},
		}, records)
	}

	n, err := db.ReplaceAll(ctx, pool, d.Table(), nationalLoadColumns, records)
	if err != nil {
		return 0, eris.Wrap(err, "national: replace table")
	}
	return n, nil
}

func buildNationalRows(t *etl.Table) []NationalRow {
	col := indexes(t)
	rows := make([]NationalRow, 0, len(t.Rows))
	for _, r := range t.Rows {
		rows = append(rows, NationalRow{
			PeriodEnd:       r[col["period_end"]],
			PeriodDuration:  r[col["period_duration"]],
			PropertyType:    r[col["property_type"]],
			MedianSalePrice: etl.ParseFloat64Or(r[col["median_sale_price"]], 0),
			MedianPPSF:      etl.ParseFloat64Or(r[col["median_ppsf"]], 0),
			HomesSold:       etl.ParseInt64Or(r[col["homes_sold"]], 0),
			Inventory:       etl.ParseInt64Or(r[col["inventory"]], 0),
			MonthsOfSupply:  etl.ParseFloat64Or(r[col["months_of_supply"]], 0),
			MedianDOM:       etl.ParseFloat64Or(r[col["median_dom"]], 0),
			SoldAboveList:   etl.ParseFloat64Or(r[col["sold_above_list"]], 0),
			LastUpdated:     r[col["last_updated"]],
			PeriodEndYr:     int32(etl.ParseInt64Or(r[col["period_end_yr"]], 0)),
			PeriodEndMonth:  r[col["period_end_month"]],
		})
	}
	return rows
}
