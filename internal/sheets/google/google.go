package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"

	"fairshare/internal/core"
	ports "fairshare/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string

	// sheetID is the numeric tab id needed by row deletions; resolved once.
	mu      sync.Mutex
	sheetID *int64
}

// Ensure interface conformance
var (
	_ ports.Exporter       = (*Client)(nil)
	_ ports.TransferLister = (*Client)(nil)
)

// Config selects the spreadsheet and its credentials: either a service
// account, or an OAuth client plus a user token saved by oauth-init.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string

	OAuthClientJSON string
	OAuthClientFile string
	OAuthTokenFile  string
}

func (c Config) usesOAuth() bool {
	return strings.TrimSpace(c.OAuthTokenFile) != "" &&
		(strings.TrimSpace(c.OAuthClientJSON) != "" || strings.TrimSpace(c.OAuthClientFile) != "")
}

// New creates an authenticated Sheets client. OAuth user credentials win
// over a service account when both are configured. Extra client options
// are appended after the credentials.
func New(ctx context.Context, cfg Config, opts ...goption.ClientOption) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	var auth []goption.ClientOption
	if cfg.usesOAuth() {
		ts, err := oauthOption(ctx, cfg)
		if err != nil {
			return nil, err
		}
		slog.InfoContext(ctx, "Using OAuth user credentials", "token_file", cfg.OAuthTokenFile)
		auth = append(auth, ts)
	} else {
		creds, err := credentials(ctx, cfg)
		if err != nil {
			return nil, err
		}
		auth = append(auth,
			goption.WithCredentialsJSON(creds),
			goption.WithScopes(gsheet.SpreadsheetsScope))
	}
	opts = append(auth, opts...)
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets service created successfully", "spreadsheet_id", cfg.SpreadsheetID)
	return NewWithService(svc, cfg.SpreadsheetID, cfg.SheetName), nil
}

// NewWithService wraps an existing Sheets service.
func NewWithService(svc *gsheet.Service, spreadsheetID, sheetName string) *Client {
	if strings.TrimSpace(sheetName) == "" {
		sheetName = "Transfers"
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheetName: sheetName}
}

// credentials reads the service account key from inline JSON, a key file,
// or GOOGLE_APPLICATION_CREDENTIALS, in that order.
func credentials(ctx context.Context, cfg Config) ([]byte, error) {
	inline := strings.TrimSpace(cfg.CredentialsJSON)
	file := strings.TrimSpace(cfg.CredentialsFile)
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	switch {
	case inline != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		return []byte(inline), nil
	case file != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", file)
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

func (c *Client) dataRange() string {
	return fmt.Sprintf("%s!A:H", c.sheetName)
}

func (c *Client) readAll(ctx context.Context) ([][]interface{}, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, c.dataRange()).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", c.dataRange(), err)
	}
	return resp.Values, nil
}

// ExportTransaction appends one row per transfer. A transaction whose id is
// already in the sheet is left alone, so redelivered events do not
// duplicate rows.
func (c *Client) ExportTransaction(ctx context.Context, tx core.Transaction) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	rows := ports.RowsFor(tx)
	if len(rows) == 0 {
		return "", nil
	}

	values, err := c.readAll(ctx)
	if err != nil {
		return "", err
	}
	if existing := matchingRows(values, tx.ID); len(existing) > 0 {
		slog.InfoContext(ctx, "Transaction already exported, skipping",
			"transaction_id", tx.ID, "rows", len(existing))
		return fmt.Sprintf("%s!A%d", c.sheetName, existing[0]+1), nil
	}

	out := make([][]interface{}, 0, len(rows)+1)
	if len(values) == 0 {
		out = append(out, ports.Header)
	}
	for _, r := range rows {
		out = append(out, r.Values())
	}

	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, c.dataRange(), &gsheet.ValueRange{Values: out}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", c.sheetName, err)
	}

	ref := c.sheetName
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
	}
	slog.InfoContext(ctx, "Transaction exported to Google Sheets",
		"transaction_id", tx.ID, "rows", len(rows), "sheets_ref", ref)
	return ref, nil
}

// DeleteTransaction removes every row carrying the transaction id.
func (c *Client) DeleteTransaction(ctx context.Context, id string) (int, error) {
	if c.svc == nil {
		return 0, errors.New("sheets service not initialized")
	}
	values, err := c.readAll(ctx)
	if err != nil {
		return 0, err
	}
	rows := matchingRows(values, id)
	if len(rows) == 0 {
		return 0, nil
	}
	sheetID, err := c.resolveSheetID(ctx)
	if err != nil {
		return 0, err
	}
	req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: deleteRequests(sheetID, rows)}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return 0, fmt.Errorf("delete rows of %s: %w", id, err)
	}
	slog.InfoContext(ctx, "Transaction rows deleted from Google Sheets", "transaction_id", id, "rows", len(rows))
	return len(rows), nil
}

// ListRows reads every exported transfer back, skipping the header and
// rows that do not parse.
func (c *Client) ListRows(ctx context.Context) ([]ports.Row, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	values, err := c.readAll(ctx)
	if err != nil {
		return nil, err
	}
	return parseRows(values), nil
}

func (c *Client) resolveSheetID(ctx context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sheetID != nil {
		return *c.sheetID, nil
	}
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read spreadsheet properties: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == c.sheetName {
			id := sh.Properties.SheetId
			c.sheetID = &id
			return id, nil
		}
	}
	return 0, fmt.Errorf("sheet %q not found in spreadsheet", c.sheetName)
}

// matchingRows returns the zero-based indices of rows whose transaction
// column equals id.
func matchingRows(values [][]interface{}, id string) []int64 {
	var out []int64
	for i, row := range values {
		if len(row) < 2 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(row[1])) == id {
			out = append(out, int64(i))
		}
	}
	return out
}

// deleteRequests builds one DeleteDimension request per row, bottom-up so
// earlier deletions do not shift the indices of later ones.
func deleteRequests(sheetID int64, rows []int64) []*gsheet.Request {
	sorted := append([]int64(nil), rows...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] > sorted[j] })
	reqs := make([]*gsheet.Request, 0, len(sorted))
	for _, r := range sorted {
		reqs = append(reqs, &gsheet.Request{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: r,
					EndIndex:   r + 1,
					// Tab 0 and row 0 are valid but would be dropped as empty values.
					ForceSendFields: []string{"SheetId", "StartIndex"},
				},
			},
		})
	}
	return reqs
}
