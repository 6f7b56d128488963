package sheets

import (
	"context"
	"time"

	"fairshare/internal/core"
)

// Ports for outbound adapters.
type (
	// TransferExporter writes one row per transfer of a transaction. Exporting
	// a transaction that is already present is a no-op.
	TransferExporter interface {
		ExportTransaction(ctx context.Context, tx core.Transaction) (rowRef string, err error)
	}

	// TransferDeleter removes every row belonging to a transaction and
	// reports how many were removed.
	TransferDeleter interface {
		DeleteTransaction(ctx context.Context, id string) (removed int, err error)
	}

	// TransferLister reads the exported rows back.
	TransferLister interface {
		ListRows(ctx context.Context) ([]Row, error)
	}

	// Exporter is everything the sync worker needs from a destination.
	Exporter interface {
		TransferExporter
		TransferDeleter
	}
)

// Row is one exported transfer.
type Row struct {
	Date          time.Time
	TransactionID string
	Title         string
	Category      core.Category
	Currency      string
	From          core.UserID
	To            core.UserID
	Amount        core.Money
}

const DateLayout = "2006-01-02"

// Header is the first row written to an empty sheet.
var Header = []any{"Date", "Transaction", "Title", "Category", "Currency", "From", "To", "Amount"}

// RowsFor flattens a transaction into one row per transfer, in transfer
// order. Transactions without transfers produce no rows.
func RowsFor(tx core.Transaction) []Row {
	rows := make([]Row, 0, len(tx.Transfers))
	for _, tr := range tx.Transfers {
		rows = append(rows, Row{
			Date:          tx.Date,
			TransactionID: tx.ID,
			Title:         tx.Title,
			Category:      tx.Category.OrDefault(),
			Currency:      tx.Currency,
			From:          tr.From,
			To:            tr.To,
			Amount:        tr.Amount,
		})
	}
	return rows
}

// Values renders the row in column order A..H.
func (r Row) Values() []any {
	return []any{
		r.Date.Format(DateLayout),
		r.TransactionID,
		r.Title,
		string(r.Category),
		r.Currency,
		string(r.From),
		string(r.To),
		r.Amount.Float(),
	}
}
