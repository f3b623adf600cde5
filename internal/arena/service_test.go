package arena

import (
	"context"
	"errors"
	"testing"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/indichess/arena/internal/broadcast"
	"github.com/indichess/arena/internal/domain"
	"github.com/indichess/arena/internal/msgcat"
	"github.com/indichess/arena/internal/rules"
	"github.com/indichess/arena/internal/store"
	"github.com/indichess/arena/pkg/arenadto"
)

type fakeArchiver struct {
	sessions []*domain.Session
	fail     bool
}

func (f *fakeArchiver) ArchiveSession(_ context.Context, s *domain.Session) error {
	if f.fail {
		return errors.New("archive down")
	}
	f.sessions = append(f.sessions, s)
	return nil
}

func newTestService(t *testing.T) (*Service, *store.Memory, *broadcast.Recorder, *fakeArchiver, *clockwork.FakeClock) {
	t.Helper()
	st := store.NewMemory()
	ctx := context.Background()
	for _, id := range []string{"alice", "bob", "carol"} {
		if err := st.SavePlayer(ctx, &domain.Player{ID: id}); err != nil {
			t.Fatalf("SavePlayer: %v", err)
		}
	}
	cat, err := msgcat.New("")
	if err != nil {
		t.Fatalf("msgcat: %v", err)
	}
	rec := broadcast.NewRecorder()
	arch := &fakeArchiver{}
	fake := clockwork.NewFakeClock()
	svc := New(Config{
		Clock:   fake,
		Catalog: cat,
		Logger:  zap.NewNop(),
	}, rules.NewEngine(), st, rec, arch)
	return svc, st, rec, arch, fake
}

func TestQueuePairingOpensSession(t *testing.T) {
	svc, _, rec, _, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.JoinQueue(ctx, "alice", "blitz")
	if err != nil {
		t.Fatalf("JoinQueue alice: %v", err)
	}
	if !first.InQueue || first.Matched {
		t.Fatalf("alice should be waiting: %+v", first)
	}

	second, err := svc.JoinQueue(ctx, "bob", "blitz")
	if err != nil {
		t.Fatalf("JoinQueue bob: %v", err)
	}
	if !second.Matched || second.SessionID == "" {
		t.Fatalf("bob should be matched: %+v", second)
	}

	sess, err := svc.GetSession(ctx, second.SessionID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if sess.Status != domain.StatusInProgress {
		t.Fatalf("paired session must be in progress: %+v", sess)
	}
	if svc.TotalQueued() != 0 {
		t.Fatalf("queue should be empty, got %d", svc.TotalQueued())
	}

	for _, p := range []string{"alice", "bob"} {
		msgs := rec.PlayerMessages(p)
		if len(msgs) != 1 {
			t.Fatalf("expected one notification for %s, got %d", p, len(msgs))
		}
		mf, ok := msgs[0].(arenadto.MatchFound)
		if !ok {
			t.Fatalf("expected MatchFound for %s, got %T", p, msgs[0])
		}
		if mf.SessionID != sess.ID {
			t.Fatalf("MatchFound session mismatch: %+v", mf)
		}
	}

	events := rec.SessionMessages(sess.ID)
	if len(events) != 1 {
		t.Fatalf("expected one session event, got %d", len(events))
	}
	if ev := events[0].(arenadto.SessionEvent); ev.Type != arenadto.EventJoined {
		t.Fatalf("expected joined event, got %+v", ev)
	}
}

func TestApplyMovePublishesEvent(t *testing.T) {
	svc, _, rec, _, _ := newTestService(t)
	ctx := context.Background()
	sess := pairUp(t, svc)

	white := sess.WhiteID
	out, err := svc.ApplyMove(ctx, sess.ID, white, "e2", "e4", "")
	if err != nil {
		t.Fatalf("ApplyMove: %v", err)
	}
	events := rec.SessionMessages(sess.ID)
	last := events[len(events)-1].(arenadto.SessionEvent)
	if last.Type != arenadto.EventMove || last.Position != out.Position {
		t.Fatalf("unexpected move event: %+v", last)
	}
	if last.Turn != string(domain.Black) {
		t.Fatalf("event should carry the next turn, got %q", last.Turn)
	}
}

func TestResignArchivesAndNotifies(t *testing.T) {
	svc, _, rec, arch, _ := newTestService(t)
	ctx := context.Background()
	sess := pairUp(t, svc)

	out, err := svc.Resign(ctx, sess.ID, sess.BlackID)
	if err != nil {
		t.Fatalf("Resign: %v", err)
	}
	if out.Status != domain.StatusCompleted {
		t.Fatalf("expected completion: %+v", out)
	}
	if len(arch.sessions) != 1 || arch.sessions[0].ID != sess.ID {
		t.Fatalf("expected session archived, got %+v", arch.sessions)
	}
	events := rec.SessionMessages(sess.ID)
	last := events[len(events)-1].(arenadto.SessionEvent)
	if last.Type != arenadto.EventResigned || last.StatusMessage == "" {
		t.Fatalf("unexpected resign event: %+v", last)
	}
}

func TestArchiveFailureDoesNotSurface(t *testing.T) {
	svc, _, _, arch, _ := newTestService(t)
	arch.fail = true
	ctx := context.Background()
	sess := pairUp(t, svc)

	if _, err := svc.Resign(ctx, sess.ID, sess.WhiteID); err != nil {
		t.Fatalf("Resign must not fail on archive errors: %v", err)
	}
}

func TestCheckmateArchivesOnce(t *testing.T) {
	svc, _, rec, arch, _ := newTestService(t)
	ctx := context.Background()
	sess := pairUp(t, svc)

	white, black := sess.WhiteID, sess.BlackID
	moves := []struct {
		player   string
		from, to string
	}{
		{white, "f2", "f3"},
		{black, "e7", "e5"},
		{white, "g2", "g4"},
		{black, "d8", "h4"},
	}
	for _, mv := range moves {
		if _, err := svc.ApplyMove(ctx, sess.ID, mv.player, mv.from, mv.to, ""); err != nil {
			t.Fatalf("ApplyMove %s%s: %v", mv.from, mv.to, err)
		}
	}
	if len(arch.sessions) != 1 {
		t.Fatalf("expected exactly one archived session, got %d", len(arch.sessions))
	}
	events := rec.SessionMessages(sess.ID)
	last := events[len(events)-1].(arenadto.SessionEvent)
	if last.Type != arenadto.EventCompleted {
		t.Fatalf("final event should be completed, got %+v", last)
	}
}

func TestUndoPublishesEvent(t *testing.T) {
	svc, _, rec, _, _ := newTestService(t)
	ctx := context.Background()
	sess := pairUp(t, svc)

	if _, err := svc.ApplyMove(ctx, sess.ID, sess.WhiteID, "e2", "e4", ""); err != nil {
		t.Fatalf("ApplyMove: %v", err)
	}
	out, err := svc.Undo(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Undo: %v", err)
	}
	events := rec.SessionMessages(sess.ID)
	last := events[len(events)-1].(arenadto.SessionEvent)
	if last.Type != arenadto.EventUndo || last.Position != out.Position {
		t.Fatalf("unexpected undo event: %+v", last)
	}
}

func TestPlayerStatsClassification(t *testing.T) {
	svc, st, _, _, _ := newTestService(t)
	ctx := context.Background()

	seed := []struct {
		white, black string
		status       domain.Status
		message      string
	}{
		{"alice", "bob", domain.StatusCompleted, "White Wins by Checkmate!"},
		{"bob", "alice", domain.StatusCompleted, "White Wins by Timeout!"},
		{"alice", "carol", domain.StatusCompleted, "Black wins by Resignation"},
		{"alice", "bob", domain.StatusCompleted, "Draw / Stalemate"},
		{"alice", "bob", domain.StatusInProgress, ""},
	}
	for _, sd := range seed {
		_, err := st.Save(ctx, &domain.Session{
			WhiteID:       sd.white,
			BlackID:       sd.black,
			Status:        sd.status,
			StatusMessage: sd.message,
		})
		if err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	stats, err := svc.PlayerStats(ctx, "alice")
	if err != nil {
		t.Fatalf("PlayerStats: %v", err)
	}
	want := arenadto.PlayerStats{Total: 4, Wins: 1, Losses: 2, Draws: 1}
	if *stats != want {
		t.Fatalf("stats mismatch: got %+v want %+v", *stats, want)
	}
}

func TestCreateAndJoinSessionDirectly(t *testing.T) {
	svc, _, rec, _, _ := newTestService(t)
	ctx := context.Background()

	sess, err := svc.CreateSession(ctx, "alice", "rapid")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if sess.Status != domain.StatusWaiting || sess.TimeControl != domain.ControlRapid {
		t.Fatalf("unexpected session: %+v", sess)
	}
	if len(rec.SessionMessages(sess.ID)) != 0 {
		t.Fatalf("waiting session must not be announced yet")
	}

	sess, err = svc.JoinSession(ctx, sess.ID, "bob")
	if err != nil {
		t.Fatalf("JoinSession: %v", err)
	}
	if sess.Status != domain.StatusInProgress {
		t.Fatalf("expected in-progress session: %+v", sess)
	}
	if len(rec.SessionMessages(sess.ID)) != 1 {
		t.Fatalf("expected joined event")
	}
}

func TestSessionsForOrdering(t *testing.T) {
	svc, _, _, _, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.CreateSession(ctx, "alice", "blitz")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	second, err := svc.CreateSession(ctx, "alice", "blitz")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if _, err := svc.JoinSession(ctx, first.ID, "bob"); err != nil {
		t.Fatalf("JoinSession: %v", err)
	}

	sessions, err := svc.SessionsFor(ctx, "alice")
	if err != nil {
		t.Fatalf("SessionsFor: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}
	_ = second
}

func pairUp(t *testing.T, svc *Service) *domain.Session {
	t.Helper()
	ctx := context.Background()
	if _, err := svc.JoinQueue(ctx, "alice", "blitz"); err != nil {
		t.Fatalf("JoinQueue: %v", err)
	}
	status, err := svc.JoinQueue(ctx, "bob", "blitz")
	if err != nil {
		t.Fatalf("JoinQueue: %v", err)
	}
	if !status.Matched {
		t.Fatalf("expected match: %+v", status)
	}
	sess, err := svc.GetSession(ctx, status.SessionID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	return sess
}
