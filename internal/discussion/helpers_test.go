package discussion

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ashureev/speakup-gd/internal/domain"
	"github.com/ashureev/speakup-gd/internal/evaluation"
	"github.com/ashureev/speakup-gd/internal/llm"
	"github.com/ashureev/speakup-gd/internal/testutil"
)

// fixedRand always picks v modulo n.
type fixedRand struct{ v int }

func (f fixedRand) IntN(n int) int { return f.v % n }

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type countingScorer struct {
	mu    sync.Mutex
	calls int
	delay time.Duration
	block chan struct{}
	last  evaluation.Input
}

func (s *countingScorer) Score(_ context.Context, in evaluation.Input) domain.Evaluation {
	s.mu.Lock()
	s.calls++
	s.last = in
	block := s.block
	s.mu.Unlock()

	if block != nil {
		<-block
	}
	time.Sleep(s.delay)
	return domain.Evaluation{
		OverallScore: 70,
		Feedback:     "Good job.",
		Strengths:    []string{"clarity"},
		Improvements: []string{"lead more"},
		PauseCount:   in.PauseCount,
		PausePenalty: evaluation.PausePenalty(in.PauseCount),
	}
}

func (s *countingScorer) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// scriptedModel answers classification requests with classify and bot requests with bot.
func scriptedModel(classify string, bot func(req llm.Request) string) *testutil.FakeLLM {
	return &testutil.FakeLLM{Respond: func(req llm.Request) (string, error) {
		if req.MaxTokens == 5 {
			return classify, nil
		}
		return bot(req), nil
	}}
}

func plainBot(llm.Request) string { return "That is an interesting angle on the question." }

func botRequests(fake *testutil.FakeLLM) []llm.Request {
	var out []llm.Request
	for _, r := range fake.Requests() {
		if r.MaxTokens == botMaxTokens {
			out = append(out, r)
		}
	}
	return out
}

func promptOf(req llm.Request) string {
	parts := make([]string, 0, len(req.Messages))
	for _, m := range req.Messages {
		parts = append(parts, m.Content)
	}
	return strings.Join(parts, "\n")
}

func newTestService(t *testing.T, client llm.Client, scorer Scorer, rng Rand) (*Service, *testClock) {
	t.Helper()
	if scorer == nil {
		scorer = &countingScorer{}
	}
	svc := NewService(Config{
		DefaultDuration: 10 * time.Minute,
		EndWait:         time.Second,
		BotTimeout:      time.Second,
		ClassifyTimeout: time.Second,
	}, client, scorer, rng, nil)
	clock := newTestClock()
	svc.now = clock.Now
	return svc, clock
}

func startTestSession(t *testing.T, svc *Service) string {
	t.Helper()
	res, err := svc.StartSession(context.Background(), StartRequest{
		UserID:   "anon_1",
		UserName: "Priya",
		Topic:    "Remote work",
	})
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	return res.SessionID
}

func assertCountsConsistent(t *testing.T, v *View) {
	t.Helper()
	want := map[string]bool{domain.HumanID: true}
	for _, p := range v.Participants {
		want[p.ID] = true
	}
	if len(v.TurnCounts) != len(want) {
		t.Fatalf("expected turn count keys %v, got %v", want, v.TurnCounts)
	}
	sum := 0
	for id, n := range v.TurnCounts {
		if !want[id] {
			t.Fatalf("unexpected turn count key %q", id)
		}
		sum += n
	}
	if sum != len(v.Transcript) {
		t.Fatalf("sum of turn counts %d != transcript length %d", sum, len(v.Transcript))
	}
}
