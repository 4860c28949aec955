package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/soukly/agentcore/memory"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	store, err := Open(t.TempDir() + "/facts.db")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func insertFact(t *testing.T, s *Store, id, userID, key, value string, conf float64) {
	t.Helper()
	err := s.Insert(context.Background(), &memory.Fact{
		ID:        id,
		UserID:    userID,
		Key:       key,
		Value:     value,
		RRaw:      conf,
		Active:    true,
		Source:    "extraction",
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("insert %s: %v", id, err)
	}
}

func TestInsertAndGet(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)
	insertFact(t, s, "f1", "u1", "name", "Ahmed", 0.55)

	fact, err := s.Get(ctx, "u1", "name", "Ahmed")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if fact == nil {
		t.Fatal("fact not found after insert")
	}
	if fact.RRaw != 0.55 || fact.PRaw != 0 {
		t.Errorf("counters = (%v, %v), want (0.55, 0)", fact.RRaw, fact.PRaw)
	}
	if fact.Seq <= 0 {
		t.Errorf("seq = %d, want store-assigned positive sequence", fact.Seq)
	}

	missing, err := s.Get(ctx, "u1", "name", "Zaid")
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if missing != nil {
		t.Errorf("got %+v for absent triple, want nil", missing)
	}
}

func TestActiveTripleIsUnique(t *testing.T) {
	s := openTest(t)
	insertFact(t, s, "f1", "u1", "name", "Ahmed", 0.5)

	err := s.Insert(context.Background(), &memory.Fact{
		ID: "f2", UserID: "u1", Key: "name", Value: "Ahmed",
		Active: true, CreatedAt: time.Now().UTC(),
	})
	if err == nil {
		t.Fatal("second active row for the same triple must be rejected")
	}
}

func TestIncrementsAreIndependent(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)
	insertFact(t, s, "f1", "u1", "city", "Riyadh", 0.5)

	if err := s.IncrementReinforcement(ctx, "u1", "city", "Riyadh", 1.0); err != nil {
		t.Fatalf("reinforce: %v", err)
	}
	if err := s.IncrementContradiction(ctx, "u1", "city", "Riyadh", 1.5); err != nil {
		t.Fatalf("contradict: %v", err)
	}
	if err := s.IncrementReinforcement(ctx, "u1", "city", "Riyadh", 1.0); err != nil {
		t.Fatalf("reinforce: %v", err)
	}

	fact, _ := s.Get(ctx, "u1", "city", "Riyadh")
	if fact.RRaw != 2.5 {
		t.Errorf("r_raw = %v, want 2.5", fact.RRaw)
	}
	if fact.PRaw != 1.5 {
		t.Errorf("p_raw = %v, want 1.5", fact.PRaw)
	}
	if fact.LastConfirmedAt.IsZero() {
		t.Errorf("reinforcement must stamp last_confirmed_at")
	}
	if !fact.Active {
		t.Errorf("contradiction must leave the row active")
	}
}

func TestContradictionDoesNotStampConfirmation(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)
	insertFact(t, s, "f1", "u1", "city", "Riyadh", 0.5)

	if err := s.IncrementContradiction(ctx, "u1", "city", "Riyadh", 1.5); err != nil {
		t.Fatalf("contradict: %v", err)
	}
	fact, _ := s.Get(ctx, "u1", "city", "Riyadh")
	if !fact.LastConfirmedAt.IsZero() {
		t.Errorf("contradiction stamped last_confirmed_at")
	}
}

func TestListActiveScopesUser(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)
	insertFact(t, s, "f1", "u1", "name", "Ahmed", 0.5)
	insertFact(t, s, "f2", "u1", "city", "Riyadh", 0.5)
	insertFact(t, s, "f3", "u2", "name", "Zaid", 0.5)

	facts, err := s.ListActive(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(facts) != 2 {
		t.Fatalf("len = %d, want 2", len(facts))
	}
	for _, f := range facts {
		if f.UserID != "u1" {
			t.Errorf("leaked fact for %q", f.UserID)
		}
	}
}

func TestSummariesLatestWins(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)

	if got, err := s.LatestSummary(ctx, "chat1"); err != nil || got != "" {
		t.Fatalf("empty chat: got (%q, %v), want (\"\", nil)", got, err)
	}

	if err := s.SaveSummary(ctx, "chat1", "first summary"); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.SaveSummary(ctx, "chat1", "second summary"); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.SaveSummary(ctx, "chat2", "other chat"); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.LatestSummary(ctx, "chat1")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if got != "second summary" {
		t.Errorf("latest = %q, want the most recent row", got)
	}
}
