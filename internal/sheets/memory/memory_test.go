package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"fairshare/internal/core"
)

func tx(id string, transfers ...core.Transfer) core.Transaction {
	return core.Transaction{
		ID:        id,
		Title:     "t",
		Currency:  "EUR",
		Date:      time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		Transfers: transfers,
	}
}

func TestMemoryStoreExportAndList(t *testing.T) {
	s := New()
	ctx := context.Background()

	ref, err := s.ExportTransaction(ctx, tx("tx-1",
		core.Transfer{From: "B", To: "A", Amount: core.Cents(100)},
		core.Transfer{From: "C", To: "A", Amount: core.Cents(200)}))
	if err != nil || ref != "mem:1-2" {
		t.Fatalf("unexpected export: ref=%q err=%v", ref, err)
	}

	ref, err = s.ExportTransaction(ctx, tx("tx-1", core.Transfer{From: "B", To: "A", Amount: core.Cents(100)}))
	if err != nil || ref != "mem:1" {
		t.Fatalf("re-export should be a no-op: ref=%q err=%v", ref, err)
	}

	rows, _ := s.ListRows(ctx)
	if len(rows) != 2 || rows[1].From != "C" || rows[1].Amount.Cents != 200 {
		t.Fatalf("unexpected rows: %+v", rows)
	}
}

func TestMemoryStoreExportWithoutTransfers(t *testing.T) {
	s := New()
	ref, err := s.ExportTransaction(context.Background(), tx("tx-1"))
	if err != nil || ref != "" {
		t.Fatalf("unexpected export: ref=%q err=%v", ref, err)
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	s := New()
	ctx := context.Background()
	s.ExportTransaction(ctx, tx("tx-1", core.Transfer{From: "B", To: "A", Amount: core.Cents(100)}))
	s.ExportTransaction(ctx, tx("tx-2", core.Transfer{From: "A", To: "B", Amount: core.Cents(50)}))

	n, err := s.DeleteTransaction(ctx, "tx-1")
	if err != nil || n != 1 {
		t.Fatalf("unexpected delete: n=%d err=%v", n, err)
	}
	n, _ = s.DeleteTransaction(ctx, "tx-1")
	if n != 0 {
		t.Fatalf("second delete removed %d rows", n)
	}
	rows, _ := s.ListRows(ctx)
	if len(rows) != 1 || rows[0].TransactionID != "tx-2" {
		t.Fatalf("unexpected rows: %+v", rows)
	}
}

func TestMemoryStoreFailNext(t *testing.T) {
	s := New()
	boom := errors.New("boom")
	s.FailNext(boom)
	if _, err := s.ExportTransaction(context.Background(), tx("tx-1")); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if _, err := s.ExportTransaction(context.Background(), tx("tx-1")); err != nil {
		t.Fatalf("failure should not persist: %v", err)
	}
}
