package etl

// Result summarizes one dataset transformation.
type Result struct {
	RowsLoaded  int64  `json:"rows_loaded"`
	RowsDropped int64  `json:"rows_dropped"`
	RowsWritten int64  `json:"rows_written"`
	Columns     int    `json:"columns"`
	Output      string `json:"output"`
}
