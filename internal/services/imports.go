package services

import (
	"context"
	"errors"
	"fmt"
	"io"

	"fincoach/internal/core"
	"fincoach/internal/importer"
	applog "fincoach/internal/log"
	"fincoach/internal/sheets"
	"fincoach/internal/sheets/google"
)

var ErrSheetsDisabled = errors.New("google sheets import is not configured")

// ImportService previews spreadsheet rows and stores the reviewed result.
type ImportService struct {
	importer     *importer.Importer
	sheets       sheets.RowReader
	transactions *TransactionService
	logger       *applog.Logger
}

// NewImportService accepts a nil RowReader when Sheets credentials are absent.
func NewImportService(im *importer.Importer, rows sheets.RowReader, transactions *TransactionService, logger *applog.Logger) *ImportService {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &ImportService{
		importer:     im,
		sheets:       rows,
		transactions: transactions,
		logger:       logger.WithComponent(applog.ComponentImport),
	}
}

// PreviewFile reads an uploaded CSV or .xlsx file; name is the client's
// file name and only its extension is used.
func (s *ImportService) PreviewFile(ctx context.Context, name string, r io.Reader) (importer.Preview, error) {
	t, err := importer.ReadFile(name, r)
	if err != nil {
		return importer.Preview{}, err
	}
	return s.importer.Preview(ctx, t)
}

// PreviewSheet reads spreadsheet (an ID or URL) over the given range or sheet name.
func (s *ImportService) PreviewSheet(ctx context.Context, spreadsheet, readRange string) (importer.Preview, error) {
	if s.sheets == nil {
		return importer.Preview{}, ErrSheetsDisabled
	}
	id, err := google.ParseSpreadsheetID(spreadsheet)
	if err != nil {
		return importer.Preview{}, err
	}
	values, err := s.sheets.ReadRows(ctx, id, google.ReadRange(readRange))
	if err != nil {
		return importer.Preview{}, fmt.Errorf("read sheet: %w", err)
	}
	t, err := importer.TableFromValues(values)
	if err != nil {
		return importer.Preview{}, err
	}
	s.logger.InfoContext(ctx, "Read spreadsheet rows", applog.FieldSource, "sheets", applog.FieldCount, len(t.Rows))
	return s.importer.Preview(ctx, t)
}

// Confirm stores previewed transactions; one invalid row rejects the batch.
func (s *ImportService) Confirm(ctx context.Context, userID int64, txs []core.Transaction) ([]core.Transaction, error) {
	valid, err := importer.Confirm(userID, txs)
	if err != nil {
		return nil, err
	}
	return s.transactions.CreateBatch(ctx, userID, valid)
}
