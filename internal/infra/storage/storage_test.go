package storage

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/MRamiBalles/ReactorIdle/server/internal/domain/state"
	"github.com/MRamiBalles/ReactorIdle/server/internal/events"
	"github.com/MRamiBalles/ReactorIdle/server/internal/platform/metrics"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := InitSQLite(MemoryDSN)
	if err != nil {
		t.Fatalf("InitSQLite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func steppingClock(start time.Time) func() time.Time {
	now := start
	return func() time.Time {
		now = now.Add(time.Second)
		return now
	}
}

func TestSaveStoreRoundTrip(t *testing.T) {
	// Setup
	store := NewSQLiteSaveStore(openTestDB(t), 3)
	ctx := context.Background()
	gs := state.New()
	gs.Categories[state.Reactor].Amount = 42
	gs.Categories[state.Reactor].Upgrades["reactorExpansions"] = 2
	gs.Navigation.TotalJumps = 7

	// Act
	id, err := store.Save(ctx, gs)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := store.Load(ctx)

	// Assert
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if id == "" {
		t.Errorf("Expected a save id")
	}
	if loaded.Categories[state.Reactor].Amount != 42 || loaded.Categories[state.Reactor].Level("reactorExpansions") != 2 {
		t.Errorf("Expected reactor 42 at level 2, got %+v", loaded.Categories[state.Reactor])
	}
	if loaded.Navigation.TotalJumps != 7 {
		t.Errorf("Expected 7 jumps, got %d", loaded.Navigation.TotalJumps)
	}
}

func TestSaveStoreEmpty(t *testing.T) {
	store := NewSQLiteSaveStore(openTestDB(t), 3)
	gs, err := store.Load(context.Background())
	if err != nil || gs != nil {
		t.Errorf("Expected (nil, nil) with no saves, got %v, %v", gs, err)
	}
	if _, err := store.LoadByID(context.Background(), "missing"); err == nil {
		t.Errorf("Expected an error for an unknown save id")
	}
}

func TestSaveStorePrunesToRetention(t *testing.T) {
	// Setup
	store := NewSQLiteSaveStore(openTestDB(t), 3)
	store.now = steppingClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	ctx := context.Background()

	// Act
	var lastID string
	for i := 1; i <= 5; i++ {
		gs := state.New()
		gs.Navigation.TotalJumps = i
		id, err := store.Save(ctx, gs)
		if err != nil {
			t.Fatalf("Save %d: %v", i, err)
		}
		lastID = id
	}

	// Assert
	saves, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(saves) != 3 {
		t.Fatalf("Expected 3 saves retained, got %d", len(saves))
	}
	if saves[0].ID != lastID {
		t.Errorf("Expected newest save first")
	}
	if saves[0].SchemaVersion != state.CurrentVersion || saves[0].RawSize == 0 || len(saves[0].Checksum) != 64 {
		t.Errorf("Expected populated metadata, got %+v", saves[0])
	}
	latest, _ := store.Load(ctx)
	if latest.Navigation.TotalJumps != 5 {
		t.Errorf("Expected the newest save loaded, got jumps %d", latest.Navigation.TotalJumps)
	}
}

func TestSaveStoreDetectsCorruption(t *testing.T) {
	db := openTestDB(t)
	store := NewSQLiteSaveStore(db, 3)
	ctx := context.Background()
	id, err := store.Save(ctx, state.New())
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	if _, err := db.Exec(`UPDATE saves SET checksum = 'deadbeef' WHERE id = ?`, id); err != nil {
		t.Fatalf("tamper: %v", err)
	}

	if _, err := store.Load(ctx); !errors.Is(err, ErrChecksumMismatch) {
		t.Errorf("Expected ErrChecksumMismatch, got %v", err)
	}
}

func TestCompressionRoundTrip(t *testing.T) {
	src := []byte(`{"categories":{"reactor":{"amount":1}},"categories2":{"reactor":{"amount":1}}}`)
	packed, err := compressLZ4(src)
	if err != nil {
		t.Fatalf("compress: %v", err)
	}
	out, err := decompressLZ4(packed, len(src))
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}
	if string(out) != string(src) {
		t.Errorf("Expected %s, got %s", src, out)
	}
	if checksum(src) != checksum(out) {
		t.Errorf("Expected equal checksums")
	}
}

func seedEvents(t *testing.T, repo *SQLiteEventRepository) time.Time {
	t.Helper()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	evs := []events.Event{
		events.ResourceChange{Category: state.Reactor, Resource: state.Energy, Amount: 10, Source: events.SourceClick},
		events.UpgradePurchased{Category: state.Reactor, UpgradeType: "reactorExpansions", Level: 1, Cost: 80},
		events.ResourceChange{Category: state.Reactor, Resource: state.Energy, Amount: -80, Source: events.SourceUpgrade},
		events.CombatEnded{Outcome: state.OutcomeVictory, EnemyID: "scavenger-drone", RegionID: "sol-fringe"},
		events.ResourceChange{Category: state.Manufacturing, Amount: 15, Source: events.SourceLoot},
	}
	for i, ev := range evs {
		rec := events.Record{
			ID:        string(rune('a' + i)),
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Type:      ev.Type(),
			Payload:   ev,
		}
		if err := repo.Append(context.Background(), rec); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}
	return base
}

func TestEventRepositoryQueries(t *testing.T) {
	// Setup
	m := metrics.New()
	repo := NewSQLiteEventRepository(openTestDB(t), m)
	base := seedEvents(t, repo)
	ctx := context.Background()

	// Act and Assert
	recent, err := repo.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 2 || recent[0].ID != "d" || recent[1].ID != "e" {
		t.Errorf("Expected the two newest events oldest first, got %+v", recent)
	}
	if !recent[1].Timestamp.Equal(base.Add(4 * time.Minute)) {
		t.Errorf("Expected timestamp to survive storage, got %v", recent[1].Timestamp)
	}

	since, err := repo.Since(ctx, base.Add(2*time.Minute))
	if err != nil {
		t.Fatalf("Since: %v", err)
	}
	if len(since) != 3 || since[0].ID != "c" {
		t.Errorf("Expected events c..e, got %d", len(since))
	}

	changes, err := repo.ByEventType(ctx, string(events.EventTypeResourceChange), 10)
	if err != nil {
		t.Fatalf("ByEventType: %v", err)
	}
	if len(changes) != 3 {
		t.Errorf("Expected 3 resource changes, got %d", len(changes))
	}

	if n, _ := repo.Count(ctx); n != 5 {
		t.Errorf("Expected 5 stored events, got %d", n)
	}
	if got := m.Snapshot().Persistence.EventsWritten; got != 5 {
		t.Errorf("Expected 5 event writes counted, got %d", got)
	}
}

func TestEventRepositoryBacksLedger(t *testing.T) {
	repo := NewSQLiteEventRepository(openTestDB(t), nil)
	ledger := events.NewLedger(repo, nil)

	ledger.Append(events.LogUnlocked{LogID: "log_first_spark", Category: state.Reactor})
	ledger.Append(events.EncounterCompleted{EncounterID: "enc-1", EncounterType: state.EncounterEmpty, Result: state.ResultCompleted})
	ledger.Flush()

	if n, _ := repo.Count(context.Background()); n != 2 {
		t.Errorf("Expected ledger records written through, got %d", n)
	}
}

func TestLedgerKeepsOrderWithTiedTimestamps(t *testing.T) {
	// Setup: a frozen clock stamps every record with the same instant.
	repo := NewSQLiteEventRepository(openTestDB(t), nil)
	ledger := events.NewLedger(repo, nil)
	frozen := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ledger.SetClock(func() time.Time { return frozen })

	// Act
	var want []string
	for i := 0; i < 50; i++ {
		r := ledger.Append(events.ResourceChange{Resource: state.Energy, Amount: float64(i), Source: "test"})
		want = append(want, r.ID)
	}
	ledger.Flush()

	// Assert
	got, err := repo.Recent(context.Background(), 100)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("Expected %d events, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].ID != want[i] {
			t.Fatalf("Expected event %d to be %s, got %s", i, want[i], got[i].ID)
		}
	}
}

func TestRecapSummaries(t *testing.T) {
	// Setup
	repo := NewSQLiteEventRepository(openTestDB(t), nil)
	base := seedEvents(t, repo)
	rec := NewReconstructor(repo)

	// Act
	recap, err := rec.GenerateRecap(context.Background(), base.Add(time.Minute), 0)

	// Assert
	if err != nil {
		t.Fatalf("GenerateRecap: %v", err)
	}
	want := []struct {
		summary string
		impact  string
	}{
		{"Installed reactorExpansions level 1 in reactor.", ImpactPositive},
		{"Lost 80 energy (upgrade).", ImpactNegative},
		{"Destroyed scavenger-drone.", ImpactPositive},
		{"Gained 15 scrap (loot).", ImpactPositive},
	}
	if len(recap) != len(want) {
		t.Fatalf("Expected %d recap entries, got %d", len(want), len(recap))
	}
	for i, w := range want {
		if recap[i].Summary != w.summary || recap[i].Impact != w.impact {
			t.Errorf("entry %d: expected %q/%s, got %q/%s", i, w.summary, w.impact, recap[i].Summary, recap[i].Impact)
		}
	}
}

func TestRecapLimit(t *testing.T) {
	repo := NewSQLiteEventRepository(openTestDB(t), nil)
	seedEvents(t, repo)
	recap, err := NewReconstructor(repo).GenerateRecap(context.Background(), time.Time{}, 1)
	if err != nil {
		t.Fatalf("GenerateRecap: %v", err)
	}
	if len(recap) != 1 || recap[0].Summary != "Gained 15 scrap (loot)." {
		t.Errorf("Expected only the newest entry, got %+v", recap)
	}
}

func TestRebuildResourceFlow(t *testing.T) {
	repo := NewSQLiteEventRepository(openTestDB(t), nil)
	base := seedEvents(t, repo)

	flow, err := NewReconstructor(repo).RebuildResourceFlow(context.Background(), base)

	if err != nil {
		t.Fatalf("RebuildResourceFlow: %v", err)
	}
	if flow.Events != 3 {
		t.Errorf("Expected 3 resource changes folded, got %d", flow.Events)
	}
	if flow.Net[state.Energy] != -70 || flow.Net[state.Scrap] != 15 {
		t.Errorf("Expected energy -70 and scrap 15, got %v", flow.Net)
	}
	if flow.BySource[events.SourceUpgrade] != -80 {
		t.Errorf("Expected -80 from upgrades, got %v", flow.BySource)
	}
}
