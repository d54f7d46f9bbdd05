package discussion

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ashureev/speakup-gd/internal/domain"
	"github.com/ashureev/speakup-gd/internal/llm"
	"github.com/ashureev/speakup-gd/internal/testutil"
)

func TestStartSession(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, scriptedModel("none", plainBot), nil, fixedRand{0})
	res, err := svc.StartSession(context.Background(), StartRequest{UserID: "anon_1", Topic: "  Remote work  ", Difficulty: "hard"})
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	if res.SessionID == "" || res.Topic != "Remote work" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.DurationSeconds != 600 || res.Difficulty != domain.DifficultyHard {
		t.Fatalf("expected default 600s hard session, got %+v", res)
	}
	if res.OpeningPrompt != "Topic: 'Remote work'. You may begin." {
		t.Fatalf("unexpected opening prompt %q", res.OpeningPrompt)
	}
	if res.UserName != domain.HumanID || len(res.Participants) != 3 || res.Phase != domain.PhasePrep {
		t.Fatalf("unexpected session shape: %+v", res)
	}
}

func TestStartSessionValidation(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, scriptedModel("none", plainBot), nil, fixedRand{0})
	for _, req := range []StartRequest{
		{Topic: "   "},
		{Topic: "Remote work", Duration: 30 * time.Second},
		{Topic: "Remote work", Duration: 5 * time.Hour},
	} {
		if _, err := svc.StartSession(context.Background(), req); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("%+v: expected ErrInvalidInput, got %v", req, err)
		}
	}
}

func TestUnknownSession(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, scriptedModel("none", plainBot), nil, fixedRand{0})
	ctx := context.Background()
	if _, err := svc.HandleMessage(ctx, "nope", domain.ActionSpeak, "hi"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if _, err := svc.EndSession(ctx, "nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if _, err := svc.Feedback(ctx, "nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSpeakRunsFullChainAndKeepsCounts(t *testing.T) {
	t.Parallel()

	fake := scriptedModel("none", plainBot)
	svc, _ := newTestService(t, fake, nil, fixedRand{2})
	id := startTestSession(t, svc)

	res, err := svc.HandleMessage(context.Background(), id, domain.ActionSpeak, "I believe remote work improves focus.")
	if err != nil {
		t.Fatalf("HandleMessage failed: %v", err)
	}
	if len(res.BotUtterances) != 3 {
		t.Fatalf("expected a chain of 3, got %d", len(res.BotUtterances))
	}
	seen := map[string]bool{}
	for _, u := range res.BotUtterances {
		seen[u.SpeakerID] = true
	}
	if len(seen) != 3 {
		t.Fatalf("expected three different bots, got %v", res.BotUtterances)
	}
	if res.NextSpeaker != "any" || res.Status != StatusOK || res.Phase != domain.PhaseActive {
		t.Fatalf("unexpected turn result: %+v", res)
	}
	if res.TurnCounts[domain.HumanID] != 1 {
		t.Fatalf("expected 1 user turn, got %v", res.TurnCounts)
	}

	v, err := svc.View(context.Background(), id)
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}
	assertCountsConsistent(t, v)
	if len(v.Transcript) != 4 {
		t.Fatalf("expected 4 transcript entries, got %d", len(v.Transcript))
	}
}

func TestChainStopsWhenBotHandsOffToUser(t *testing.T) {
	t.Parallel()

	fake := scriptedModel("none", func(llm.Request) string { return "Costs matter here. Priya, what do you think?" })
	svc, _ := newTestService(t, fake, nil, fixedRand{2})
	id := startTestSession(t, svc)

	res, err := svc.HandleMessage(context.Background(), id, domain.ActionSpeak, "Offices build culture.")
	if err != nil {
		t.Fatalf("HandleMessage failed: %v", err)
	}
	if len(res.BotUtterances) != 1 {
		t.Fatalf("expected chain to stop after 1 bot, got %d", len(res.BotUtterances))
	}
	if res.NextSpeaker != domain.HumanID {
		t.Fatalf("expected next speaker user, got %q", res.NextSpeaker)
	}

	// The pending user hint is cleared when the user speaks again.
	res, err = svc.HandleMessage(context.Background(), id, domain.ActionSpeak, "I agree that costs matter.")
	if err != nil {
		t.Fatalf("HandleMessage failed: %v", err)
	}
	if len(res.BotUtterances) != 1 || res.BotUtterances[0].SpeakerID == domain.HumanID {
		t.Fatalf("expected a bot to answer, got %+v", res.BotUtterances)
	}
}

func TestUserHandoffPicksAddressedBot(t *testing.T) {
	t.Parallel()

	fake := scriptedModel("none", plainBot)
	svc, _ := newTestService(t, fake, nil, fixedRand{0})
	id := startTestSession(t, svc)

	res, err := svc.HandleMessage(context.Background(), id, domain.ActionSpeak, "Mike, what do you think?")
	if err != nil {
		t.Fatalf("HandleMessage failed: %v", err)
	}
	if len(res.BotUtterances) == 0 || res.BotUtterances[0].SpeakerID != "mike" {
		t.Fatalf("expected mike to answer first, got %+v", res.BotUtterances)
	}
}

func TestPauseLeavesTranscriptUntouched(t *testing.T) {
	t.Parallel()

	fake := scriptedModel("none", plainBot)
	svc, _ := newTestService(t, fake, nil, fixedRand{0})
	id := startTestSession(t, svc)
	ctx := context.Background()

	if _, err := svc.HandleMessage(ctx, id, domain.ActionSpeak, "Opening thought."); err != nil {
		t.Fatalf("HandleMessage failed: %v", err)
	}
	before, _ := svc.View(ctx, id)
	calls := fake.Calls()

	res, err := svc.HandleMessage(ctx, id, domain.ActionPause, "")
	if err != nil {
		t.Fatalf("pause failed: %v", err)
	}
	if res.Status != StatusPaused || res.PauseCount != before.PauseCount+1 {
		t.Fatalf("unexpected pause result: %+v", res)
	}
	if len(res.BotUtterances) != 0 || fake.Calls() != calls {
		t.Fatal("pause must not generate anything")
	}

	after, _ := svc.View(ctx, id)
	if !reflect.DeepEqual(before.Transcript, after.Transcript) {
		t.Fatal("pause changed the transcript")
	}
	if after.PauseCount != before.PauseCount+1 {
		t.Fatalf("expected pause count %d, got %d", before.PauseCount+1, after.PauseCount)
	}
}

func TestSilenceBreakInvitesUser(t *testing.T) {
	t.Parallel()

	fake := scriptedModel("none", plainBot)
	svc, _ := newTestService(t, fake, nil, fixedRand{0})
	id := startTestSession(t, svc)

	res, err := svc.HandleMessage(context.Background(), id, domain.ActionSilenceBreak, "")
	if err != nil {
		t.Fatalf("silence break failed: %v", err)
	}
	if res.TurnCounts[domain.HumanID] != 0 {
		t.Fatal("silence break must not record a user turn")
	}
	if len(res.BotUtterances) != 1 {
		t.Fatalf("expected one bot utterance, got %d", len(res.BotUtterances))
	}
	reqs := botRequests(fake)
	if len(reqs) == 0 || !strings.Contains(promptOf(reqs[0]), directiveSilence) {
		t.Fatal("expected silence directive on the first bot step")
	}
	if !strings.Contains(promptOf(reqs[0]), directiveHandBack) {
		t.Fatal("expected hand-back directive on the last bot step")
	}
}

func TestSilenceBreakClearsPendingUserHint(t *testing.T) {
	t.Parallel()

	fake := scriptedModel("none", func(llm.Request) string { return "Priya, your view?" })
	svc, _ := newTestService(t, fake, nil, fixedRand{0})
	id := startTestSession(t, svc)
	ctx := context.Background()

	res, err := svc.HandleMessage(ctx, id, domain.ActionSpeak, "Hybrid is best.")
	if err != nil || res.NextSpeaker != domain.HumanID {
		t.Fatalf("expected the floor to go to the user, got %+v (%v)", res, err)
	}

	res, err = svc.HandleMessage(ctx, id, domain.ActionSilenceBreak, "")
	if err != nil {
		t.Fatalf("silence break failed: %v", err)
	}
	if len(res.BotUtterances) != 1 {
		t.Fatalf("expected a bot to fill the silence, got %d", len(res.BotUtterances))
	}
}

func TestSpeakRequiresText(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, scriptedModel("none", plainBot), nil, fixedRand{0})
	id := startTestSession(t, svc)
	if _, err := svc.HandleMessage(context.Background(), id, domain.ActionSpeak, "   "); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestBeginStartsClock(t *testing.T) {
	t.Parallel()

	svc, clock := newTestService(t, scriptedModel("none", plainBot), nil, fixedRand{0})
	id := startTestSession(t, svc)
	ctx := context.Background()

	clock.Advance(5 * time.Minute)
	v, _ := svc.View(ctx, id)
	if v.Phase != domain.PhasePrep || v.TimeRemaining != 600 {
		t.Fatalf("expected prep with full clock, got %s %d", v.Phase, v.TimeRemaining)
	}

	res, err := svc.HandleMessage(ctx, id, domain.ActionBegin, "")
	if err != nil {
		t.Fatalf("begin failed: %v", err)
	}
	if res.Phase != domain.PhaseActive || res.Status != StatusReady || len(res.BotUtterances) != 0 {
		t.Fatalf("unexpected begin result: %+v", res)
	}

	clock.Advance(time.Minute)
	v, _ = svc.View(ctx, id)
	if v.TimeRemaining != 540 {
		t.Fatalf("expected 540s remaining, got %d", v.TimeRemaining)
	}
}

func TestTimeWarningDirective(t *testing.T) {
	t.Parallel()

	fake := scriptedModel("none", plainBot)
	svc, clock := newTestService(t, fake, nil, fixedRand{0})
	id := startTestSession(t, svc)
	ctx := context.Background()

	if _, err := svc.HandleMessage(ctx, id, domain.ActionBegin, ""); err != nil {
		t.Fatalf("begin failed: %v", err)
	}
	clock.Advance(9*time.Minute + 30*time.Second)

	res, err := svc.HandleMessage(ctx, id, domain.ActionSpeak, "Remote work is here to stay.")
	if err != nil {
		t.Fatalf("HandleMessage failed: %v", err)
	}
	if !res.CanConclude || res.Phase != domain.PhaseConcluding {
		t.Fatalf("expected concluding phase, got %+v", res)
	}
	reqs := botRequests(fake)
	if len(reqs) == 0 || !strings.Contains(promptOf(reqs[len(reqs)-1]), directiveTimeWarning) {
		t.Fatal("expected time warning directive")
	}
}

func TestConclusionCueOnlyEndsInWindow(t *testing.T) {
	t.Parallel()

	svc, clock := newTestService(t, scriptedModel("none", plainBot), nil, fixedRand{0})
	id := startTestSession(t, svc)
	ctx := context.Background()

	res, err := svc.HandleMessage(ctx, id, domain.ActionSpeak, "I would like to conclude already.")
	if err != nil {
		t.Fatalf("HandleMessage failed: %v", err)
	}
	if res.ShouldEndSession || res.CanConclude {
		t.Fatalf("conclusion must not be allowed early: %+v", res)
	}

	clock.Advance(8*time.Minute + 30*time.Second)
	res, err = svc.HandleMessage(ctx, id, domain.ActionSpeak, "I would like to conclude: hybrid work balances both sides.")
	if err != nil {
		t.Fatalf("HandleMessage failed: %v", err)
	}
	if !res.ShouldEndSession || !res.CanConclude || res.Phase != domain.PhaseEnded {
		t.Fatalf("expected the session to be ready to end, got %+v", res)
	}

	if _, err := svc.HandleMessage(ctx, id, domain.ActionSpeak, "One more thing."); !errors.Is(err, ErrSessionEnded) {
		t.Fatalf("expected ErrSessionEnded after conclusion, got %v", err)
	}
}

func TestConcludeActionSkipsBots(t *testing.T) {
	t.Parallel()

	fake := scriptedModel("none", plainBot)
	svc, clock := newTestService(t, fake, nil, fixedRand{0})
	id := startTestSession(t, svc)
	ctx := context.Background()

	if _, err := svc.HandleMessage(ctx, id, domain.ActionBegin, ""); err != nil {
		t.Fatalf("begin failed: %v", err)
	}
	clock.Advance(9 * time.Minute)
	calls := fake.Calls()

	res, err := svc.HandleMessage(ctx, id, domain.ActionConclude, "So overall, flexibility wins.")
	if err != nil {
		t.Fatalf("conclude failed: %v", err)
	}
	if !res.ShouldEndSession || res.Status != StatusConcluded || len(res.BotUtterances) != 0 {
		t.Fatalf("unexpected conclude result: %+v", res)
	}
	if res.TurnCounts[domain.HumanID] != 1 {
		t.Fatal("expected the closing statement to be recorded")
	}
	// Only the handoff classification of the closing statement may call the model.
	if fake.Calls()-calls > 1 {
		t.Fatalf("expected no bot generation, got %d calls", fake.Calls()-calls)
	}
}

func TestEndSessionIsIdempotent(t *testing.T) {
	t.Parallel()

	scorer := &countingScorer{}
	svc, _ := newTestService(t, scriptedModel("none", plainBot), scorer, fixedRand{0})
	id := startTestSession(t, svc)
	ctx := context.Background()

	if _, err := svc.HandleMessage(ctx, id, domain.ActionSpeak, "Remote work saves commuting time."); err != nil {
		t.Fatalf("HandleMessage failed: %v", err)
	}
	first, err := svc.EndSession(ctx, id)
	if err != nil {
		t.Fatalf("EndSession failed: %v", err)
	}
	second, err := svc.EndSession(ctx, id)
	if err != nil {
		t.Fatalf("second EndSession failed: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical results, got %+v and %+v", first, second)
	}
	if scorer.Calls() != 1 {
		t.Fatalf("expected one scoring run, got %d", scorer.Calls())
	}
	if _, err := svc.HandleMessage(ctx, id, domain.ActionSpeak, "late"); !errors.Is(err, ErrSessionEnded) {
		t.Fatalf("expected ErrSessionEnded, got %v", err)
	}
}

func TestConcurrentEndScoresOnce(t *testing.T) {
	t.Parallel()

	scorer := &countingScorer{delay: 50 * time.Millisecond}
	svc, _ := newTestService(t, scriptedModel("none", plainBot), scorer, fixedRand{0})
	id := startTestSession(t, svc)

	var wg sync.WaitGroup
	results := make([]*domain.Evaluation, 4)
	errs := make([]error, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.EndSession(context.Background(), id)
		}(i)
	}
	wg.Wait()

	for i := range results {
		if errs[i] != nil {
			t.Fatalf("EndSession %d failed: %v", i, errs[i])
		}
		if !reflect.DeepEqual(results[0], results[i]) {
			t.Fatalf("result %d differs", i)
		}
	}
	if scorer.Calls() != 1 {
		t.Fatalf("expected one scoring run, got %d", scorer.Calls())
	}
}

func TestEndSessionTimesOutWhileEvaluating(t *testing.T) {
	t.Parallel()

	scorer := &countingScorer{block: make(chan struct{})}
	svc, _ := newTestService(t, scriptedModel("none", plainBot), scorer, fixedRand{0})
	svc.cfg.EndWait = 30 * time.Millisecond
	id := startTestSession(t, svc)

	done := make(chan error, 1)
	go func() {
		_, err := svc.EndSession(context.Background(), id)
		done <- err
	}()

	deadline := time.Now().Add(time.Second)
	for scorer.Calls() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	if _, err := svc.EndSession(context.Background(), id); !errors.Is(err, ErrEndTimedOut) {
		t.Fatalf("expected ErrEndTimedOut, got %v", err)
	}

	close(scorer.block)
	if err := <-done; err != nil {
		t.Fatalf("first EndSession failed: %v", err)
	}
	if _, err := svc.EndSession(context.Background(), id); err != nil {
		t.Fatalf("expected cached result after evaluation, got %v", err)
	}
}

func TestEndSessionSnapshot(t *testing.T) {
	t.Parallel()

	scorer := &countingScorer{}
	svc, clock := newTestService(t, scriptedModel("none", plainBot), scorer, fixedRand{0})
	id := startTestSession(t, svc)
	ctx := context.Background()

	if _, err := svc.HandleMessage(ctx, id, domain.ActionSpeak, "First point."); err != nil {
		t.Fatalf("HandleMessage failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := svc.HandleMessage(ctx, id, domain.ActionPause, ""); err != nil {
			t.Fatalf("pause failed: %v", err)
		}
	}
	clock.Advance(4 * time.Minute)

	res, err := svc.EndSession(ctx, id)
	if err != nil {
		t.Fatalf("EndSession failed: %v", err)
	}
	if res.PausePenalty != 6 {
		t.Fatalf("expected pause penalty 6, got %d", res.PausePenalty)
	}
	in := scorer.last
	if in.Elapsed != 4*time.Minute || in.Expected != 10*time.Minute || in.PauseCount != 3 {
		t.Fatalf("unexpected evaluation input: %+v", in)
	}
	if len(in.Transcript) != in.TurnCounts[domain.HumanID]+in.TurnCounts["alex"]+in.TurnCounts["sarah"]+in.TurnCounts["mike"] {
		t.Fatal("evaluation snapshot is inconsistent")
	}
}

type fakeRecorder struct {
	mu      sync.Mutex
	results []*domain.Result
}

func (f *fakeRecorder) SaveResult(_ context.Context, r *domain.Result) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = append(f.results, r)
	return nil
}

func TestEndSessionPersistsAndNotifies(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, scriptedModel("none", plainBot), nil, fixedRand{0})
	rec := &fakeRecorder{}
	svc.SetRecorder(rec)

	var mu sync.Mutex
	var types []EventType
	svc.AddObserver(ObserverFunc(func(_ context.Context, e Event) {
		mu.Lock()
		defer mu.Unlock()
		types = append(types, e.Type)
	}))

	id := startTestSession(t, svc)
	ctx := context.Background()
	if _, err := svc.HandleMessage(ctx, id, domain.ActionSpeak, "Point one."); err != nil {
		t.Fatalf("HandleMessage failed: %v", err)
	}
	if _, err := svc.EndSession(ctx, id); err != nil {
		t.Fatalf("EndSession failed: %v", err)
	}
	if _, err := svc.EndSession(ctx, id); err != nil {
		t.Fatalf("EndSession failed: %v", err)
	}

	if len(rec.results) != 1 {
		t.Fatalf("expected one stored result, got %d", len(rec.results))
	}
	r := rec.results[0]
	if r.SessionID != id || r.UserID != "anon_1" || r.Score != 70 || r.Topic != "Remote work" {
		t.Fatalf("unexpected stored result: %+v", r)
	}

	mu.Lock()
	defer mu.Unlock()
	if types[0] != EventStarted || types[len(types)-1] != EventEnded {
		t.Fatalf("unexpected event order: %v", types)
	}
	if types[1] != EventUtterance {
		t.Fatalf("expected user utterance event, got %v", types)
	}
}

func TestFeedbackDoesNotEndSession(t *testing.T) {
	t.Parallel()

	scorer := &countingScorer{}
	svc, _ := newTestService(t, scriptedModel("none", plainBot), scorer, fixedRand{0})
	id := startTestSession(t, svc)
	ctx := context.Background()

	if _, err := svc.HandleMessage(ctx, id, domain.ActionSpeak, "Point one."); err != nil {
		t.Fatalf("HandleMessage failed: %v", err)
	}
	if _, err := svc.Feedback(ctx, id); err != nil {
		t.Fatalf("Feedback failed: %v", err)
	}
	if _, err := svc.HandleMessage(ctx, id, domain.ActionSpeak, "Point two."); err != nil {
		t.Fatalf("session should stay active after feedback: %v", err)
	}
	if _, err := svc.EndSession(ctx, id); err != nil {
		t.Fatalf("EndSession failed: %v", err)
	}
	if scorer.Calls() != 2 {
		t.Fatalf("expected feedback and end to score separately, got %d", scorer.Calls())
	}
}

func TestConcurrentMessagesKeepInvariants(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, scriptedModel("none", plainBot), nil, NewRand(5))
	id := startTestSession(t, svc)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			action := domain.ActionSpeak
			if i%3 == 0 {
				action = domain.ActionPause
			}
			if _, err := svc.HandleMessage(context.Background(), id, action, "A point about remote work."); err != nil {
				t.Errorf("HandleMessage failed: %v", err)
			}
		}(i)
	}
	wg.Wait()

	v, err := svc.View(context.Background(), id)
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}
	assertCountsConsistent(t, v)
	if v.PauseCount != 3 || v.TurnCounts[domain.HumanID] != 5 {
		t.Fatalf("expected 3 pauses and 5 user turns, got %d and %d", v.PauseCount, v.TurnCounts[domain.HumanID])
	}
}

func TestSweepEvictsIdleAndEvaluatedSessions(t *testing.T) {
	t.Parallel()

	svc, clock := newTestService(t, scriptedModel("none", plainBot), nil, fixedRand{0})
	var evicted, events []string
	svc.SetCleanupCallback(func(id string) { evicted = append(evicted, id) })
	svc.AddObserver(ObserverFunc(func(_ context.Context, e Event) {
		if e.Type == EventEvicted {
			events = append(events, e.SessionID)
		}
	}))

	idle := startTestSession(t, svc)
	ended := startTestSession(t, svc)
	if _, err := svc.EndSession(context.Background(), ended); err != nil {
		t.Fatalf("EndSession failed: %v", err)
	}

	clock.Advance(20 * time.Minute)
	if n := svc.sweep(time.Hour, 15*time.Minute); n != 1 || evicted[0] != ended {
		t.Fatalf("expected only the evaluated session evicted, got %d %v", n, evicted)
	}

	clock.Advance(time.Hour)
	if n := svc.sweep(time.Hour, 15*time.Minute); n != 1 || evicted[1] != idle {
		t.Fatalf("expected the idle session evicted, got %d %v", n, evicted)
	}
	if svc.registry.Len() != 0 {
		t.Fatalf("expected empty registry, got %d", svc.registry.Len())
	}
	if len(events) != 2 || events[0] != ended || events[1] != idle {
		t.Fatalf("expected an evicted event per session, got %v", events)
	}
	if _, err := svc.HandleMessage(context.Background(), idle, domain.ActionSpeak, "hello?"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound after eviction, got %v", err)
	}
}

func TestGenerationFailureStillProducesTurns(t *testing.T) {
	t.Parallel()

	fake := &testutil.FakeLLM{}
	svc, _ := newTestService(t, fake, nil, fixedRand{2})
	id := startTestSession(t, svc)

	res, err := svc.HandleMessage(context.Background(), id, domain.ActionSpeak, "Where do we start?")
	if err != nil {
		t.Fatalf("HandleMessage failed: %v", err)
	}
	if len(res.BotUtterances) != 3 {
		t.Fatalf("expected fallback chain of 3, got %d", len(res.BotUtterances))
	}
	for _, u := range res.BotUtterances {
		if !strings.Contains(u.Text, "Remote work") {
			t.Fatalf("expected fallback text with topic, got %q", u.Text)
		}
	}
}
