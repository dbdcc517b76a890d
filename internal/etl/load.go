package etl

import (
	"compress/gzip"
	"context"
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
)

// LoadOptions tweaks extract parsing.
type LoadOptions struct {
	// Encoding names the source charset (e.g. "windows-1252"); empty means UTF-8.
	Encoding string
}

// Load reads a tab-separated extract, gunzipping when the URI ends in .gz,
// with the first row as header. Column kinds are inferred from sampled
// values. Parsing is permissive: short rows are padded and long rows
// truncated to the header width, so mismatches surface as nulls for the
// filter step instead of aborting the run.
func Load(ctx context.Context, sess *Session, uri string, opts LoadOptions) (*Table, error) {
	rc, err := sess.OpenRead(ctx, uri)
	if err != nil {
		return nil, eris.Wrapf(err, "etl: open extract %s", uri)
	}
	defer rc.Close()

	var r io.Reader = rc
	if strings.HasSuffix(uri, ".gz") {
		zr, err := gzip.NewReader(rc)
		if err != nil {
			return nil, eris.Wrapf(err, "etl: gunzip %s", uri)
		}
		defer zr.Close()
		r = zr
	}

	if opts.Encoding != "" {
		enc, err := htmlindex.Get(opts.Encoding)
		if err != nil {
			return nil, eris.Wrapf(err, "etl: unknown encoding %q", opts.Encoding)
		}
		r = enc.NewDecoder().Reader(r)
	}

	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, eris.Wrapf(err, "etl: read header of %s", uri)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	for i, col := range header {
		header[i] = strings.TrimSpace(col)
	}

	var rows [][]string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "etl: read row of %s", uri)
		}

		if len(rec) < len(header) {
			padded := make([]string, len(header))
			copy(padded, rec)
			rec = padded
		} else if len(rec) > len(header) {
			rec = rec[:len(header)]
		}
		for i, v := range rec {
			rec[i] = sanitizeUTF8(v)
		}
		rows = append(rows, rec)
	}

	return &Table{
		Columns: header,
		Kinds:   inferKinds(header, rows),
		Rows:    rows,
	}, nil
}
