package etl

import (
	"strconv"

	"github.com/rotisserie/eris"
)

// monthNames enumerates all twelve months explicitly. Leaning on a catch-all
// for real months would silently corrupt most rows, so the sentinel covers
// out-of-domain values only.
var monthNames = map[int]string{
	1:  "January",
	2:  "February",
	3:  "March",
	4:  "April",
	5:  "May",
	6:  "June",
	7:  "July",
	8:  "August",
	9:  "September",
	10: "October",
	11: "November",
	12: "December",
}

const monthUnknown = "Unknown"

// MonthName maps a calendar month number to its English name, or "Unknown"
// for anything outside 1-12.
func MonthName(m int) string {
	if name, ok := monthNames[m]; ok {
		return name
	}
	return monthUnknown
}

// DeriveYear appends an integer column holding the calendar year of the
// named date column. Rows reaching this step have already passed the null
// filter, so an unparseable date is a hard error, not a skip.
func DeriveYear(t *Table, dateCol, outCol string) error {
	i := t.Index(dateCol)
	if i < 0 {
		return eris.Errorf("etl: derive year: column %s not present", dateCol)
	}

	t.Columns = append(t.Columns, outCol)
	t.Kinds = append(t.Kinds, KindInt)
	for r, row := range t.Rows {
		d, ok := ParseDate(row[i])
		if !ok {
			return eris.Errorf("etl: derive year: bad date %q in row %d", row[i], r)
		}
		t.Rows[r] = append(row, strconv.Itoa(d.Year()))
	}
	return nil
}

// DeriveMonthName appends a column holding the English month name of the
// named date column, mapped through the explicit twelve-entry table. The
// intermediate numeric month is not retained.
func DeriveMonthName(t *Table, dateCol, outCol string) error {
	i := t.Index(dateCol)
	if i < 0 {
		return eris.Errorf("etl: derive month: column %s not present", dateCol)
	}

	t.Columns = append(t.Columns, outCol)
	t.Kinds = append(t.Kinds, KindString)
	for r, row := range t.Rows {
		d, ok := ParseDate(row[i])
		if !ok {
			return eris.Errorf("etl: derive month: bad date %q in row %d", row[i], r)
		}
		t.Rows[r] = append(row, MonthName(int(d.Month())))
	}
	return nil
}
