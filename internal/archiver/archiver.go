package archiver

import (
	"archive/zip"
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"fknsrs.biz/p/ytwarehouse/internal/reports"
)

// WriteResultCSV writes a report result as CSV with a header row.
func WriteResultCSV(wr io.Writer, res *reports.Result) error {
	cw := csv.NewWriter(wr)

	if err := cw.Write(res.Columns); err != nil {
		return fmt.Errorf("archiver.WriteResultCSV: %w", err)
	}

	if err := cw.WriteAll(res.Rows); err != nil {
		return fmt.Errorf("archiver.WriteResultCSV: %w", err)
	}

	return nil
}

// ReportsZip runs every catalog query and writes the results into a zip
// archive, one CSV file per query.
func ReportsZip(ctx context.Context, wr io.Writer, db *sql.DB, modified time.Time) error {
	zw := zip.NewWriter(wr)

	for _, q := range reports.Catalog() {
		res, err := q.Run(ctx, db)
		if err != nil {
			return fmt.Errorf("archiver.ReportsZip: %w", err)
		}

		fw, err := zw.CreateHeader(&zip.FileHeader{
			Name:     q.Name + ".csv",
			Method:   zip.Deflate,
			Modified: modified,
		})
		if err != nil {
			return fmt.Errorf("archiver.ReportsZip: %w", err)
		}

		if err := WriteResultCSV(fw, res); err != nil {
			return fmt.Errorf("archiver.ReportsZip: %s: %w", q.Name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("archiver.ReportsZip: %w", err)
	}

	return nil
}
