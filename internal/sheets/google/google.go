package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	applog "fincoach/internal/log"
	ports "fincoach/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

var ErrMissingCredentials = errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")

// Config carries service account credentials, inline or as a file path.
type Config struct {
	ServiceAccountJSON string
	ServiceAccountFile string
}

type Client struct {
	svc    *gsheet.Service
	logger *applog.Logger
}

// Ensure interface conformance
var _ ports.RowReader = (*Client)(nil)

// New creates a read-only Sheets client. When neither credential is set the
// GOOGLE_APPLICATION_CREDENTIALS file is used.
func New(ctx context.Context, cfg Config, logger *applog.Logger) (*Client, error) {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentSheets)

	credentialsJSON, err := credentials(cfg)
	if err != nil {
		return nil, err
	}
	logger.InfoContext(ctx, "Creating Google Sheets service with Service Account",
		"credentials_size", len(credentialsJSON),
		"scope", gsheet.SpreadsheetsReadonlyScope)

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &Client{svc: svc, logger: logger}, nil
}

func credentials(cfg Config) ([]byte, error) {
	inline := strings.TrimSpace(cfg.ServiceAccountJSON)
	file := strings.TrimSpace(cfg.ServiceAccountFile)
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	switch {
	case inline != "":
		return []byte(inline), nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	}
	return nil, ErrMissingCredentials
}

// ReadRows returns the values of readRange. spreadsheetID may also be a
// full spreadsheet URL.
func (c *Client) ReadRows(ctx context.Context, spreadsheetID, readRange string) ([][]any, error) {
	if c == nil || c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	id, err := ParseSpreadsheetID(spreadsheetID)
	if err != nil {
		return nil, err
	}
	rng := ReadRange(readRange)
	resp, err := c.svc.Spreadsheets.Values.Get(id, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read range %s: %w", rng, err)
	}
	c.logger.InfoContext(ctx, "Read spreadsheet range",
		"range", rng,
		applog.FieldCount, len(resp.Values))
	return resp.Values, nil
}
