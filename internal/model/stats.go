package model

import "time"

// DatasetStats aggregates run history for one dataset cut.
type DatasetStats struct {
	Dataset     string     `json:"dataset"`
	Total       int64      `json:"total"`
	Succeeded   int64      `json:"succeeded"`
	Failed      int64      `json:"failed"`
	RowsWritten int64      `json:"rows_written"`
	LastSuccess *time.Time `json:"last_success,omitempty"`
}
