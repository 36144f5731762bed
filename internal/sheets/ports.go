package sheets

import "context"

// RowReader fetches a rectangular range of cell values; the first row is
// expected to hold the headers.
type RowReader interface {
	ReadRows(ctx context.Context, spreadsheetID, readRange string) ([][]any, error)
}
