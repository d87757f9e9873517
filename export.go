package gtfstables

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Export renders a feed's records as a table: the header followed by one row
// per record, in the order the records were first stored.
func (t *Table[T]) Export(ctx context.Context, feed FeedID) ([][]string, error) {
	records, err := t.List(ctx, feed)
	if err != nil {
		return nil, err
	}

	out := make([][]string, 0, len(records)+1)
	out = append(out, t.typ.Header())
	for i := range records {
		out = append(out, t.typ.Serialize(&records[i]))
	}
	return out, nil
}

func (t *Table[T]) ExportCSV(ctx context.Context, feed FeedID, w io.Writer) error {
	rows, err := t.Export(ctx, feed)
	if err != nil {
		return err
	}

	outputCSV := csv.NewWriter(w)
	for _, row := range rows {
		if err := outputCSV.Write(row); err != nil {
			return err
		}
	}
	outputCSV.Flush()
	if err := outputCSV.Error(); err != nil {
		return err
	}

	slog.Info(fmt.Sprintf("Wrote %d rows to %s.txt", len(rows), t.typ.Name))
	return nil
}

func (t *Table[T]) ExportFile(ctx context.Context, feed FeedID, outputPath string) error {
	if outputPath == "" {
		panic("Missing outputPath")
	}

	outputF, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	if err := t.ExportCSV(ctx, feed, outputF); err != nil {
		_ = outputF.Close()
		return err
	}
	if err := outputF.Close(); err != nil {
		return err
	}

	slog.Info(fmt.Sprintf("Wrote %s", outputPath))
	return nil
}
