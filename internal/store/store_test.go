package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/verte-zerg/paranoid/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "nested", "paranoid.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

func record(runID string, at time.Time, pass bool) model.AuditRecord {
	return model.AuditRecord{
		RunID:          runID,
		CreatedAt:      at,
		CharsetSize:    26,
		PasswordLength: 16,
		BatchSize:      100,
		ChiSquared:     21.5,
		ChiPValue:      0.7,
		Serial:         -0.01,
		TotalEntropy:   75.2,
		AllPass:        pass,
		Stage:          model.StageDone,
	}
}

func TestInsertAndListAudits(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	for i, id := range []string{"run-a", "run-b", "run-c"} {
		if _, err := st.InsertAudit(ctx, record(id, base.Add(time.Duration(i)*time.Minute), i != 1)); err != nil {
			t.Fatalf("insert %s: %v", id, err)
		}
	}

	all, err := st.ListAudits(ctx, model.HistoryFilter{})
	if err != nil {
		t.Fatalf("list audits: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 audits, got %d", len(all))
	}
	if all[0].RunID != "run-a" || all[2].RunID != "run-c" {
		t.Fatalf("expected oldest first, got %s..%s", all[0].RunID, all[2].RunID)
	}
	if all[1].AllPass {
		t.Fatalf("expected run-b to be stored as failing")
	}
	if all[0].Stage != model.StageDone || all[0].BatchSize != 100 || all[0].ChiPValue != 0.7 {
		t.Fatalf("unexpected round trip: %+v", all[0])
	}
	if !all[0].CreatedAt.Equal(base) {
		t.Fatalf("expected created_at %v, got %v", base, all[0].CreatedAt)
	}

	last, err := st.ListAudits(ctx, model.HistoryFilter{Last: 2})
	if err != nil {
		t.Fatalf("list last: %v", err)
	}
	if len(last) != 2 || last[0].RunID != "run-b" || last[1].RunID != "run-c" {
		t.Fatalf("unexpected last-2 listing: %+v", last)
	}

	since := base.Add(90 * time.Second)
	recent, err := st.ListAudits(ctx, model.HistoryFilter{Since: &since})
	if err != nil {
		t.Fatalf("list since: %v", err)
	}
	if len(recent) != 1 || recent[0].RunID != "run-c" {
		t.Fatalf("unexpected since listing: %+v", recent)
	}
}

func TestInsertAuditRequiresRunID(t *testing.T) {
	st := openTestStore(t)
	if _, err := st.InsertAudit(context.Background(), model.AuditRecord{}); err == nil {
		t.Fatalf("expected error for missing run id")
	}
}

func TestInsertAuditRejectsDuplicateRunID(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	rec := record("dup", time.Now(), true)
	if _, err := st.InsertAudit(ctx, rec); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if _, err := st.InsertAudit(ctx, rec); err == nil {
		t.Fatalf("expected unique constraint error")
	}
}

func TestRecordFromResult(t *testing.T) {
	res := &model.AuditResult{
		Password:          []byte("secret"),
		SHA256Hex:         "abc",
		RunID:             "run",
		CharsetSize:       94,
		PasswordLength:    32,
		SerialCorrelation: 0.02,
		AllPass:           true,
		Stage:             model.StageDone,
	}
	at := time.Unix(100, 0)
	rec := RecordFromResult(res, at)
	if rec.RunID != "run" || rec.CharsetSize != 94 || rec.Serial != 0.02 || !rec.AllPass || !rec.CreatedAt.Equal(at) {
		t.Fatalf("unexpected record: %+v", rec)
	}
}
