package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/erazemk/koda/internal/db"
	"github.com/erazemk/koda/internal/model"
)

func TestRecordScanIncrements(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	c := newTestCode(model.KindDynamic, "scan0001")
	if err := CreateCode(ctx, database, c); err != nil {
		t.Fatalf("CreateCode: %v", err)
	}

	for i := range 3 {
		at := time.Now().UTC().Add(time.Duration(i) * time.Second)
		if err := RecordScan(ctx, database, c.ID, at, "Mozilla/5.0"); err != nil {
			t.Fatalf("RecordScan: %v", err)
		}
	}

	got, err := GetCode(ctx, database, c.ID)
	if err != nil {
		t.Fatalf("GetCode: %v", err)
	}
	if got.ScanCount != 3 {
		t.Errorf("expected scan count 3, got %d", got.ScanCount)
	}
	if got.LastScannedAt == nil {
		t.Fatal("expected last_scanned_at to be set")
	}

	ledger, err := CountScanEvents(ctx, database, c.ID)
	if err != nil {
		t.Fatalf("CountScanEvents: %v", err)
	}
	if ledger != got.ScanCount {
		t.Errorf("ledger count %d disagrees with counter %d", ledger, got.ScanCount)
	}
}

func TestRecordScanTimestampNeverRegresses(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	c := newTestCode(model.KindDynamic, "scan0002")
	if err := CreateCode(ctx, database, c); err != nil {
		t.Fatalf("CreateCode: %v", err)
	}

	newer := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	older := newer.Add(-time.Hour)

	if err := RecordScan(ctx, database, c.ID, newer, ""); err != nil {
		t.Fatalf("RecordScan: %v", err)
	}
	// A late-arriving event with an earlier timestamp still counts but must
	// not move last_scanned_at backwards.
	if err := RecordScan(ctx, database, c.ID, older, ""); err != nil {
		t.Fatalf("RecordScan: %v", err)
	}

	got, err := GetCode(ctx, database, c.ID)
	if err != nil {
		t.Fatalf("GetCode: %v", err)
	}
	if got.ScanCount != 2 {
		t.Errorf("expected scan count 2, got %d", got.ScanCount)
	}
	if got.LastScannedAt == nil || !got.LastScannedAt.Equal(newer) {
		t.Errorf("expected last_scanned_at %v, got %v", newer, got.LastScannedAt)
	}
}

func TestRecordScanMissingOrStatic(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	err := RecordScan(ctx, database, uuid.NewString(), time.Now().UTC(), "")
	if !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing code, got %v", err)
	}

	static := newTestCode(model.KindStatic, "static content")
	if err := CreateCode(ctx, database, static); err != nil {
		t.Fatalf("CreateCode: %v", err)
	}
	err = RecordScan(ctx, database, static.ID, time.Now().UTC(), "")
	if !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound for static code, got %v", err)
	}

	got, _ := GetCode(ctx, database, static.ID)
	if got.ScanCount != 0 {
		t.Errorf("static code counter moved: %d", got.ScanCount)
	}
}

func TestRecordScanConcurrent(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	c := newTestCode(model.KindDynamic, "scan0003")
	if err := CreateCode(ctx, database, c); err != nil {
		t.Fatalf("CreateCode: %v", err)
	}

	const scans = 50
	var wg sync.WaitGroup
	errs := make(chan error, scans)
	for range scans {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- RecordScan(ctx, database, c.ID, time.Now().UTC(), "stress")
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("RecordScan: %v", err)
		}
	}

	got, err := GetCode(ctx, database, c.ID)
	if err != nil {
		t.Fatalf("GetCode: %v", err)
	}
	if got.ScanCount != scans {
		t.Errorf("expected exactly %d scans, got %d", scans, got.ScanCount)
	}
}

func TestScanEventsSurviveCodeDeletion(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	c := newTestCode(model.KindDynamic, "scan0004")
	if err := CreateCode(ctx, database, c); err != nil {
		t.Fatalf("CreateCode: %v", err)
	}
	if err := RecordScan(ctx, database, c.ID, time.Now().UTC(), ""); err != nil {
		t.Fatalf("RecordScan: %v", err)
	}

	if err := DeleteCode(ctx, database, c.ID); err != nil {
		t.Fatalf("DeleteCode: %v", err)
	}

	ledger, err := CountScanEvents(ctx, database, c.ID)
	if err != nil {
		t.Fatalf("CountScanEvents: %v", err)
	}
	if ledger != 1 {
		t.Errorf("expected audit events to survive deletion, got %d", ledger)
	}
}

func TestListScanEventsSinceAndLimit(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	c := newTestCode(model.KindDynamic, "scan0005")
	if err := CreateCode(ctx, database, c); err != nil {
		t.Fatalf("CreateCode: %v", err)
	}

	base := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	for i := range 5 {
		if err := RecordScan(ctx, database, c.ID, base.Add(time.Duration(i)*time.Minute), "ua"); err != nil {
			t.Fatalf("RecordScan: %v", err)
		}
	}

	all, err := ListScanEvents(ctx, database, c.ID, time.Time{}, 0)
	if err != nil {
		t.Fatalf("ListScanEvents: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("expected 5 events, got %d", len(all))
	}
	if !all[0].OccurredAt.After(all[4].OccurredAt) {
		t.Error("events not ordered newest first")
	}

	recent, err := ListScanEvents(ctx, database, c.ID, base.Add(3*time.Minute), 0)
	if err != nil {
		t.Fatalf("ListScanEvents: %v", err)
	}
	if len(recent) != 2 {
		t.Errorf("expected 2 events since cutoff, got %d", len(recent))
	}

	capped, err := ListScanEvents(ctx, database, c.ID, time.Time{}, 3)
	if err != nil {
		t.Fatalf("ListScanEvents: %v", err)
	}
	if len(capped) != 3 {
		t.Errorf("expected 3 events with limit, got %d", len(capped))
	}
}
