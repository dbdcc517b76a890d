package dataset

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/market-etl/internal/etl"
)

func TestCounty_Metadata(t *testing.T) {
	ds := NewCounty(&Manifest{})
	assert.Equal(t, "county", ds.Name())
	assert.Equal(t, "market.county_tracker", ds.Table())
	assert.Equal(t, "county_market_tracker.tsv000.gz", ds.RawObject())
	assert.Equal(t, "county_market_tracker.parquet", ds.CleanObject())
}

func TestCounty_Run(t *testing.T) {
	rows := []string{
		tsvRow("period_end", "period_duration", "region_type", "region", "state", "property_type",
			"median_sale_price", "median_ppsf", "homes_sold", "inventory",
			"months_of_supply", "median_dom", "sold_above_list", "last_updated"),
		tsvRow("2021-07-31", "30", "county", "Larimer County", "Colorado", "All Residential",
			"489000", "245.3", "412", "780", "1.6", "8", "0.512", "2023-01-19 13:01:12"),
		// Dropped: blank homes_sold.
		tsvRow("2021-08-31", "30", "county", "Weld County", "Colorado", "All Residential",
			"452000", "228.0", "", "640", "1.8", "10", "0.477", "2023-01-19 13:01:12"),
	}
	ds := NewCounty(&Manifest{})
	sess := newFixtureSession(t, ds.RawObject(), rows)

	res, err := ds.Run(context.Background(), sess)
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.RowsLoaded)
	assert.Equal(t, int64(1), res.RowsDropped)
	assert.Equal(t, int64(1), res.RowsWritten)

	out, err := etl.ReadParquet[CountyRow](context.Background(), sess, res.Output)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Larimer County", out[0].Region)
	assert.Equal(t, int64(412), out[0].HomesSold)
	assert.Equal(t, int32(2021), out[0].PeriodEndYr)
	assert.Equal(t, "July", out[0].PeriodEndMonth)
}
