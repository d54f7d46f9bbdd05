// Package evaluation scores the human participant at the end of a discussion.
package evaluation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/ashureev/speakup-gd/internal/domain"
	"github.com/ashureev/speakup-gd/internal/llm"
)

// PointsPerPause is deducted from the overall score for every pause the user took.
const PointsPerPause = 2

const (
	noParticipationFeedback = "No participation recorded. You did not speak during the discussion, so there was nothing to score."
	fallbackFeedback        = "Detailed feedback is unavailable right now. Your participation metrics were still recorded below."
)

// Input is a read-only snapshot of a finished (or running) discussion.
type Input struct {
	Topic        string
	Difficulty   domain.Difficulty
	UserName     string
	Participants []domain.Participant
	Transcript   []domain.Utterance
	TurnCounts   map[string]int
	PauseCount   int
	Expected     time.Duration
	Elapsed      time.Duration
}

// Evaluator produces a domain.Evaluation. It never returns an error: a model
// failure yields a fallback that still carries the metrics and pause penalty.
type Evaluator struct {
	client  llm.Client
	timeout time.Duration
	logger  *slog.Logger
}

// New creates an evaluator.
func New(client llm.Client, timeout time.Duration, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Evaluator{client: client, timeout: timeout, logger: logger}
}

// PausePenalty is the number of points deducted for pauseCount pauses.
func PausePenalty(pauseCount int) int {
	if pauseCount <= 0 {
		return 0
	}
	return PointsPerPause * pauseCount
}

// Score evaluates the user's performance.
func (e *Evaluator) Score(ctx context.Context, in Input) domain.Evaluation {
	result := domain.Evaluation{
		Strengths:         []string{},
		Improvements:      []string{},
		PauseCount:        in.PauseCount,
		PausePenalty:      PausePenalty(in.PauseCount),
		CompletionMetrics: Completion(in),
	}

	if in.TurnCounts[domain.HumanID] == 0 {
		result.Feedback = noParticipationFeedback
		result.Improvements = []string{"Share at least a few points so your communication skills can be assessed."}
		return result
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	reply, err := e.client.Generate(ctx, llm.Request{
		Messages: []llm.Message{
			llm.System(evaluatorSystemPrompt),
			llm.User(buildTranscriptPrompt(in)),
		},
		MaxTokens:   800,
		Temperature: 0.3,
	})
	if err != nil {
		e.logger.Warn("Evaluation generation failed, using fallback", "error", err, "duration", time.Since(start))
		return fallback(result)
	}

	parsed, err := parseScores(reply)
	if err != nil {
		e.logger.Warn("Evaluation reply unparseable, using fallback", "error", err)
		return fallback(result)
	}

	result.Scores = parsed.scores
	result.RawOverallScore = parsed.overall
	result.OverallScore = max(0, parsed.overall-result.PausePenalty)
	result.Feedback = parsed.feedback
	if parsed.strengths != nil {
		result.Strengths = parsed.strengths
	}
	if parsed.improvements != nil {
		result.Improvements = parsed.improvements
	}

	e.logger.Info("Evaluation complete",
		"overall", result.OverallScore,
		"raw_overall", result.RawOverallScore,
		"pause_penalty", result.PausePenalty,
		"duration", time.Since(start),
	)
	return result
}

func fallback(result domain.Evaluation) domain.Evaluation {
	result.Scores = domain.Scores{}
	result.OverallScore = 0
	result.RawOverallScore = 0
	result.Feedback = fallbackFeedback
	result.Fallback = true
	return result
}

// Completion computes how much of the planned discussion happened. It needs no model call.
func Completion(in Input) domain.CompletionMetrics {
	expected := in.Expected.Seconds()
	elapsed := max(in.Elapsed.Seconds(), 0)

	var ratio float64
	if expected > 0 {
		ratio = elapsed / expected
	}
	pct := int(math.Round(math.Min(ratio, 1) * 100))

	turns := make(map[string]int, len(in.TurnCounts))
	total := 0
	for id, n := range in.TurnCounts {
		turns[id] = n
		total += n
	}

	return domain.CompletionMetrics{
		ElapsedSeconds:          int(math.Round(elapsed)),
		ExpectedDurationSeconds: int(math.Round(expected)),
		SessionDurationMinutes:  roundTo(elapsed/60, 2),
		ExpectedDurationMinutes: roundTo(expected/60, 2),
		DurationRatio:           roundTo(ratio, 3),
		CompletionPercentage:    pct,
		IsFullyCompleted:        pct >= 100,
		TotalTurns:              total,
		UserTurns:               in.TurnCounts[domain.HumanID],
		TurnsByParticipant:      turns,
	}
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

type scoreReply struct {
	VerbalAbility   *float64 `json:"verbalAbility"`
	Confidence      *float64 `json:"confidence"`
	Interactivity   *float64 `json:"interactivity"`
	ArgumentQuality *float64 `json:"argumentQuality"`
	TopicRelevance  *float64 `json:"topicRelevance"`
	Leadership      *float64 `json:"leadership"`
	OverallScore    *float64 `json:"overallScore"`
	Feedback        string   `json:"feedback"`
	Strengths       []string `json:"strengths"`
	Improvements    []string `json:"improvements"`
}

type parsedScores struct {
	scores       domain.Scores
	overall      int
	feedback     string
	strengths    []string
	improvements []string
}

func parseScores(reply string) (parsedScores, error) {
	raw := llm.ExtractJSON(reply)
	if raw == "" {
		return parsedScores{}, fmt.Errorf("no JSON object in reply")
	}

	var r scoreReply
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return parsedScores{}, fmt.Errorf("decode scores: %w", err)
	}

	subs := []*float64{r.VerbalAbility, r.Confidence, r.Interactivity, r.ArgumentQuality, r.TopicRelevance, r.Leadership}
	present := 0
	for _, v := range subs {
		if v != nil {
			present++
		}
	}
	if present == 0 && r.OverallScore == nil {
		return parsedScores{}, fmt.Errorf("reply contains no scores")
	}

	out := parsedScores{
		scores: domain.Scores{
			VerbalAbility:   clampScore(r.VerbalAbility),
			Confidence:      clampScore(r.Confidence),
			Interactivity:   clampScore(r.Interactivity),
			ArgumentQuality: clampScore(r.ArgumentQuality),
			TopicRelevance:  clampScore(r.TopicRelevance),
			Leadership:      clampScore(r.Leadership),
		},
		feedback:     r.Feedback,
		strengths:    r.Strengths,
		improvements: r.Improvements,
	}

	if r.OverallScore != nil {
		out.overall = clampScore(r.OverallScore)
	} else {
		s := out.scores
		sum := s.VerbalAbility + s.Confidence + s.Interactivity + s.ArgumentQuality + s.TopicRelevance + s.Leadership
		out.overall = int(math.Round(float64(sum) / float64(present)))
	}
	return out, nil
}

func clampScore(v *float64) int {
	if v == nil || math.IsNaN(*v) {
		return 0
	}
	return int(math.Round(math.Max(0, math.Min(100, *v))))
}
