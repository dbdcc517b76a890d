package main

import (
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/market-etl/internal/etl"
	"github.com/sells-group/market-etl/internal/etl/dataset"
)

var previewRows int

var previewCmd = &cobra.Command{
	Use:   "preview <dataset>",
	Short: "Print the first rows of a cleaned extract",
	Long:  "Reads the cleaned Parquet output for a dataset and prints the first rows as a tab-aligned table.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("pipeline"); err != nil {
			return err
		}

		reg, err := dataset.NewRegistry(cfg)
		if err != nil {
			return err
		}
		ds, err := reg.Get(args[0])
		if err != nil {
			return err
		}

		sess, err := newSession("", "")
		if err != nil {
			return err
		}
		defer sess.Close() //nolint:errcheck

		rows, err := etl.ReadParquetSample(ctx, sess, sess.CleanURI(ds.CleanObject()), previewRows)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			fmt.Fprintln(os.Stderr, "No rows.")
			return nil
		}

		formatPreview(os.Stdout, rows)
		return nil
	},
}

func init() {
	previewCmd.Flags().IntVarP(&previewRows, "rows", "n", 10, "number of rows to print")
	rootCmd.AddCommand(previewCmd)
}

// formatPreview renders sampled rows as a tab-aligned table. Column names come
// from the json struct tags the Parquet reader attaches to its row type.
func formatPreview(out io.Writer, rows []any) {
	rt := reflect.TypeOf(rows[0])
	if rt.Kind() == reflect.Ptr {
		rt = rt.Elem()
	}

	headers := make([]string, rt.NumField())
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		name := f.Tag.Get("json")
		if idx := strings.Index(name, ","); idx >= 0 {
			name = name[:idx]
		}
		if name == "" {
			name = f.Name
		}
		headers[i] = name
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, strings.Join(headers, "\t"))

	for _, row := range rows {
		rv := reflect.ValueOf(row)
		if rv.Kind() == reflect.Ptr {
			rv = rv.Elem()
		}

		fields := make([]string, rv.NumField())
		for i := 0; i < rv.NumField(); i++ {
			fv := rv.Field(i)
			if fv.Kind() == reflect.Ptr {
				if fv.IsNil() {
					fields[i] = "null"
					continue
				}
				fv = fv.Elem()
			}
			fields[i] = fmt.Sprint(fv.Interface())
		}
		_, _ = fmt.Fprintln(w, strings.Join(fields, "\t"))
	}
	_ = w.Flush()
}
