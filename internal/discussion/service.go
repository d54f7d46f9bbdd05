package discussion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ashureev/speakup-gd/internal/domain"
	"github.com/ashureev/speakup-gd/internal/evaluation"
	"github.com/ashureev/speakup-gd/internal/handoff"
	"github.com/ashureev/speakup-gd/internal/llm"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionEnded    = errors.New("session has ended")
	ErrEndTimedOut     = errors.New("timed out waiting for session evaluation")
	ErrInvalidInput    = errors.New("invalid input")
)

const (
	minDuration    = time.Minute
	maxDuration    = 3 * time.Hour
	anySpeaker     = "any"
)

// Turn statuses.
const (
	StatusOK        = "ok"
	StatusPaused    = "paused"
	StatusReady     = "ready"
	StatusConcluded = "concluded"
)

// Scorer evaluates a discussion snapshot.
type Scorer interface {
	Score(ctx context.Context, in evaluation.Input) domain.Evaluation
}

// ResultRecorder persists finished discussion summaries.
type ResultRecorder interface {
	SaveResult(ctx context.Context, r *domain.Result) error
}

// CleanupCallback is called with the id of every session the sweeper evicts.
type CleanupCallback func(sessionID string)

// Config holds the service settings.
type Config struct {
	Participants    []domain.Participant
	DefaultDuration time.Duration
	EndWait         time.Duration
	BotTimeout      time.Duration
	ClassifyTimeout time.Duration
}

// StartRequest opens a discussion.
type StartRequest struct {
	UserID     string
	UserName   string
	Topic      string
	Difficulty string
	Duration   time.Duration
}

// StartResult describes a newly created discussion.
type StartResult struct {
	SessionID       string               `json:"sessionId"`
	Topic           string               `json:"topic"`
	Difficulty      domain.Difficulty    `json:"difficulty"`
	DurationSeconds int                  `json:"duration"`
	Participants    []domain.Participant `json:"participants"`
	UserName        string               `json:"userName"`
	OpeningPrompt   string               `json:"moderatorMessage"`
	Phase           domain.Phase         `json:"phase"`
}

// TurnResult is the outcome of one user action.
type TurnResult struct {
	BotUtterances    []domain.Utterance `json:"botUtterances"`
	NextSpeaker      string             `json:"nextSpeaker"`
	TimeRemaining    int                `json:"timeRemaining"`
	CanConclude      bool               `json:"canConclude"`
	ShouldEndSession bool               `json:"shouldEndSession"`
	TurnCounts       map[string]int     `json:"turnCounts"`
	Phase            domain.Phase       `json:"phase"`
	PauseCount       int                `json:"pauseCount"`
	Status           string             `json:"status"`
}

// View is a read-only copy of a session for display.
type View struct {
	SessionID     string               `json:"sessionId"`
	Topic         string               `json:"topic"`
	Difficulty    domain.Difficulty    `json:"difficulty"`
	Participants  []domain.Participant `json:"participants"`
	Transcript    []domain.Utterance   `json:"transcript"`
	TurnCounts    map[string]int       `json:"turnCounts"`
	NextSpeaker   string               `json:"nextSpeaker"`
	TimeRemaining int                  `json:"timeRemaining"`
	PauseCount    int                  `json:"pauseCount"`
	Phase         domain.Phase         `json:"phase"`
	Active        bool                 `json:"active"`
}

// Service orchestrates discussions: turn taking, bot chains, timing and evaluation.
type Service struct {
	cfg       Config
	client    llm.Client
	detector  *handoff.Detector
	scheduler *Scheduler
	scorer    Scorer
	registry  *Registry
	rng       Rand
	recorder  ResultRecorder
	observers []Observer
	onCleanup CleanupCallback
	now       func() time.Time
	newID     func() string
	logger    *slog.Logger
}

// NewService creates a discussion service.
func NewService(cfg Config, client llm.Client, scorer Scorer, rng Rand, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.Participants) == 0 {
		cfg.Participants = domain.DefaultParticipants()
	}
	if cfg.DefaultDuration <= 0 {
		cfg.DefaultDuration = 10 * time.Minute
	}
	if cfg.EndWait <= 0 {
		cfg.EndWait = 90 * time.Second
	}
	if cfg.BotTimeout <= 0 {
		cfg.BotTimeout = 30 * time.Second
	}
	if cfg.ClassifyTimeout <= 0 {
		cfg.ClassifyTimeout = 10 * time.Second
	}
	if rng == nil {
		rng = NewRand(0)
	}

	return &Service{
		cfg:       cfg,
		client:    client,
		detector:  handoff.NewDefaultDetector(client, cfg.ClassifyTimeout, logger),
		scheduler: NewScheduler(rng),
		scorer:    scorer,
		registry:  NewRegistry(),
		rng:       rng,
		now:       time.Now,
		newID:     uuid.NewString,
		logger:    logger,
	}
}

// SetRecorder sets where evaluated results are persisted.
func (s *Service) SetRecorder(r ResultRecorder) {
	s.recorder = r
}

// AddObserver registers an event observer. Call before serving traffic.
func (s *Service) AddObserver(o Observer) {
	s.observers = append(s.observers, o)
}

// SetCleanupCallback sets the hook run for each evicted session.
func (s *Service) SetCleanupCallback(cb CleanupCallback) {
	s.onCleanup = cb
}

// Participants returns the bot panel.
func (s *Service) Participants() []domain.Participant {
	out := make([]domain.Participant, len(s.cfg.Participants))
	copy(out, s.cfg.Participants)
	return out
}

// StartSession creates a discussion in the prep phase.
func (s *Service) StartSession(ctx context.Context, req StartRequest) (*StartResult, error) {
	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		return nil, fmt.Errorf("%w: topic is required", ErrInvalidInput)
	}
	duration := req.Duration
	if duration <= 0 {
		duration = s.cfg.DefaultDuration
	}
	if duration < minDuration || duration > maxDuration {
		return nil, fmt.Errorf("%w: duration must be between %s and %s", ErrInvalidInput, minDuration, maxDuration)
	}

	now := s.now()
	sess := newSession(s.newID(), req.UserID, strings.TrimSpace(req.UserName), topic,
		domain.ParseDifficulty(req.Difficulty), s.Participants(), duration, now)
	s.registry.put(sess)

	s.logger.Info("Discussion started",
		"session_id", sess.ID,
		"user_id", sess.UserID,
		"topic", topic,
		"difficulty", sess.Difficulty,
		"duration", duration,
	)
	s.emit(ctx, Event{Type: EventStarted, SessionID: sess.ID, UserID: sess.UserID, Topic: topic, Phase: domain.PhasePrep, Time: now})

	return &StartResult{
		SessionID:       sess.ID,
		Topic:           topic,
		Difficulty:      sess.Difficulty,
		DurationSeconds: int(duration / time.Second),
		Participants:    sess.Participants,
		UserName:        sess.displayName(),
		OpeningPrompt:   fmt.Sprintf("Topic: '%s'. You may begin.", topic),
		Phase:           domain.PhasePrep,
	}, nil
}

// HandleMessage applies one user action and runs the resulting bot chain.
func (s *Service) HandleMessage(ctx context.Context, sessionID string, action domain.Action, text string) (*TurnResult, error) {
	e, ok := s.registry.get(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	if err := e.acquire(ctx); err != nil {
		return nil, err
	}
	defer e.release()

	sess := e.session
	if !sess.Active || sess.concluded {
		return nil, ErrSessionEnded
	}

	now := s.now()
	sess.lastActivity = now
	text = strings.TrimSpace(text)

	switch action {
	case domain.ActionPause:
		sess.PauseCount++
		s.logger.Info("User paused", "session_id", sess.ID, "pause_count", sess.PauseCount)
		s.emit(ctx, Event{Type: EventPaused, SessionID: sess.ID, UserID: sess.UserID, Phase: sess.Phase(now), PauseCount: sess.PauseCount, Time: now})
		return s.outcome(sess, now, nil, StatusPaused, false), nil

	case domain.ActionBegin:
		sess.begin(now)
		return s.outcome(sess, now, nil, StatusReady, false), nil

	case domain.ActionSilenceBreak:
		sess.begin(now)
		if sess.NextSpeakerHint == domain.HumanID {
			sess.NextSpeakerHint = ""
		}

	case domain.ActionSpeak, domain.ActionConclude:
		if text == "" && action == domain.ActionSpeak {
			return nil, fmt.Errorf("%w: message is required", ErrInvalidInput)
		}
		sess.begin(now)
		if text != "" {
			s.recordUserTurn(ctx, sess, text, now)
		}

	default:
		return nil, fmt.Errorf("%w: unknown action %q", ErrInvalidInput, action)
	}

	userCue := text != "" && IsConclusionCue(text)
	if action == domain.ActionConclude && s.canConclude(sess, now) {
		return s.conclude(ctx, sess, now, nil), nil
	}

	bots, botCue := s.runChain(ctx, sess, action == domain.ActionSilenceBreak)

	now = s.now()
	if (userCue || botCue) && s.canConclude(sess, now) {
		return s.conclude(ctx, sess, now, bots), nil
	}
	return s.outcome(sess, now, bots, StatusOK, false), nil
}

func (s *Service) recordUserTurn(ctx context.Context, sess *Session, text string, now time.Time) {
	u := domain.Utterance{
		SpeakerID: domain.HumanID,
		Speaker:   sess.displayName(),
		Role:      domain.RoleUser,
		Text:      text,
		Timestamp: now,
	}
	sess.record(u)
	s.emit(ctx, Event{Type: EventUtterance, SessionID: sess.ID, UserID: sess.UserID, Phase: sess.Phase(now), Utterance: &u, Time: now})

	if sess.NextSpeakerHint == domain.HumanID {
		sess.NextSpeakerHint = ""
	}
	if m, ok := s.detector.Detect(ctx, text, handoff.BotCandidates(sess.Participants, "")); ok {
		sess.NextSpeakerHint = m.ParticipantID
	}
}

// runChain lets one to three bots speak. It stops early when the floor is handed to the user.
func (s *Service) runChain(ctx context.Context, sess *Session, silenceBreak bool) ([]domain.Utterance, bool) {
	length := s.rng.IntN(domain.MaxChainLength) + 1
	utterances := make([]domain.Utterance, 0, length)
	cue := false

	for step := 0; step < length; step++ {
		next := s.scheduler.Next(sess)
		if next == domain.HumanID {
			sess.NextSpeakerHint = domain.HumanID
			break
		}
		p, ok := sess.participant(next)
		if !ok {
			break
		}

		var directives []string
		if step == length-1 {
			directives = append(directives, directiveHandBack)
		}
		if silenceBreak && step == 0 {
			directives = append(directives, directiveSilence)
		}
		if rem := sess.Remaining(s.now()); !sess.StartTime.IsZero() && rem < TimeWarningWindow {
			directives = append(directives, directiveTimeWarning)
		}

		text := newBot(p, s.client, s.cfg.BotTimeout, s.logger).Generate(ctx, botTurn{
			topic:      sess.Topic,
			userName:   sess.displayName(),
			others:     otherNames(sess.Participants, p.ID),
			recent:     sess.recent(contextWindow),
			directives: directives,
		})

		now := s.now()
		u := domain.Utterance{SpeakerID: p.ID, Speaker: p.Name, Role: domain.RoleBot, Text: text, Timestamp: now}
		sess.record(u)
		utterances = append(utterances, u)
		s.emit(ctx, Event{Type: EventUtterance, SessionID: sess.ID, UserID: sess.UserID, Phase: sess.Phase(now), Utterance: &u, Time: now})

		if IsConclusionCue(text) {
			cue = true
		}

		candidates := append(handoff.BotCandidates(sess.Participants, p.ID), handoff.HumanCandidate(sess.UserName))
		if m, ok := s.detector.Detect(ctx, text, candidates); ok {
			sess.NextSpeakerHint = m.ParticipantID
			if m.ParticipantID == domain.HumanID {
				break
			}
		}
	}

	s.logger.Debug("Bot chain finished", "session_id", sess.ID, "planned", length, "spoken", len(utterances), "next", sess.NextSpeakerHint)
	return utterances, cue
}

func (s *Service) conclude(ctx context.Context, sess *Session, now time.Time, bots []domain.Utterance) *TurnResult {
	sess.concluded = true
	s.logger.Info("Discussion concluded", "session_id", sess.ID, "remaining", sess.Remaining(now))
	s.emit(ctx, Event{Type: EventConcluded, SessionID: sess.ID, UserID: sess.UserID, Phase: domain.PhaseEnded, Time: now})
	return s.outcome(sess, now, bots, StatusConcluded, true)
}

func (s *Service) canConclude(sess *Session, now time.Time) bool {
	return ComputePhase(now, sess.StartTime, sess.Duration) == domain.PhaseConcluding
}

func (s *Service) outcome(sess *Session, now time.Time, bots []domain.Utterance, status string, shouldEnd bool) *TurnResult {
	if bots == nil {
		bots = []domain.Utterance{}
	}
	return &TurnResult{
		BotUtterances:    bots,
		NextSpeaker:      nextSpeaker(sess),
		TimeRemaining:    int(sess.Remaining(now) / time.Second),
		CanConclude:      s.canConclude(sess, now),
		ShouldEndSession: shouldEnd,
		TurnCounts:       sess.turnCounts(),
		Phase:            sess.Phase(now),
		PauseCount:       sess.PauseCount,
		Status:           status,
	}
}

// Feedback scores the discussion so far without ending it.
func (s *Service) Feedback(ctx context.Context, sessionID string) (*domain.Evaluation, error) {
	e, ok := s.registry.get(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	if err := e.acquire(ctx); err != nil {
		return nil, err
	}
	defer e.release()

	sess := e.session
	if sess.Result != nil {
		res := *sess.Result
		return &res, nil
	}

	res := s.scorer.Score(ctx, s.evaluationInput(sess, s.now()))
	return &res, nil
}

// EndSession evaluates the discussion once and returns the cached result on every later call.
func (s *Service) EndSession(ctx context.Context, sessionID string) (*domain.Evaluation, error) {
	e, ok := s.registry.get(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	if err := e.acquireWithin(ctx, s.cfg.EndWait); err != nil {
		if errors.Is(err, ErrEndTimedOut) {
			s.logger.Warn("Timed out waiting for evaluation", "session_id", sessionID, "wait", s.cfg.EndWait)
		}
		return nil, err
	}
	defer e.release()

	sess := e.session
	if sess.Result != nil {
		res := *sess.Result
		return &res, nil
	}

	endedAt := s.now()
	// Scoring outlives a disconnected caller so the result can still be cached.
	scoreCtx := context.WithoutCancel(ctx)
	res := s.scorer.Score(scoreCtx, s.evaluationInput(sess, endedAt))

	sess.EndedAt = endedAt
	sess.Result = &res
	sess.Active = false
	sess.concluded = true
	sess.lastActivity = endedAt

	s.logger.Info("Discussion evaluated",
		"session_id", sess.ID,
		"overall", res.OverallScore,
		"user_turns", sess.TurnCounts[domain.HumanID],
		"pause_count", sess.PauseCount,
		"fallback", res.Fallback,
	)
	s.persist(scoreCtx, sess, res)
	s.emit(scoreCtx, Event{Type: EventEnded, SessionID: sess.ID, UserID: sess.UserID, Topic: sess.Topic, Phase: domain.PhaseEnded, PauseCount: sess.PauseCount, Evaluation: &res, Time: endedAt})

	out := res
	return &out, nil
}

// View returns a copy of the session for display.
func (s *Service) View(ctx context.Context, sessionID string) (*View, error) {
	e, ok := s.registry.get(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	if err := e.acquire(ctx); err != nil {
		return nil, err
	}
	defer e.release()

	sess := e.session
	now := s.now()
	return &View{
		SessionID:     sess.ID,
		Topic:         sess.Topic,
		Difficulty:    sess.Difficulty,
		Participants:  sess.Participants,
		Transcript:    sess.recent(len(sess.Transcript)),
		TurnCounts:    sess.turnCounts(),
		NextSpeaker:   nextSpeaker(sess),
		TimeRemaining: int(sess.Remaining(now) / time.Second),
		PauseCount:    sess.PauseCount,
		Phase:         sess.Phase(now),
		Active:        sess.Active,
	}, nil
}

func (s *Service) evaluationInput(sess *Session, now time.Time) evaluation.Input {
	return evaluation.Input{
		Topic:        sess.Topic,
		Difficulty:   sess.Difficulty,
		UserName:     sess.displayName(),
		Participants: sess.Participants,
		Transcript:   sess.recent(len(sess.Transcript)),
		TurnCounts:   sess.turnCounts(),
		PauseCount:   sess.PauseCount,
		Expected:     sess.Duration,
		Elapsed:      sess.Elapsed(now),
	}
}

func (s *Service) persist(ctx context.Context, sess *Session, res domain.Evaluation) {
	if s.recorder == nil {
		return
	}
	data, err := json.Marshal(res)
	if err != nil {
		s.logger.Error("Failed to encode evaluation", "session_id", sess.ID, "error", err)
		return
	}
	rec := &domain.Result{
		ID:              s.newID(),
		UserID:          sess.UserID,
		SessionID:       sess.ID,
		Topic:           sess.Topic,
		Difficulty:      sess.Difficulty,
		DurationSeconds: int(sess.Elapsed(sess.EndedAt) / time.Second),
		Score:           res.OverallScore,
		EvaluationJSON:  string(data),
		CreatedAt:       sess.EndedAt,
	}
	if err := s.recorder.SaveResult(ctx, rec); err != nil {
		s.logger.Error("Failed to save discussion result", "session_id", sess.ID, "error", err)
	}
}

func (s *Service) emit(ctx context.Context, e Event) {
	for _, o := range s.observers {
		o.Observe(ctx, e)
	}
}

// StartSweeper runs a background goroutine that evicts idle sessions and
// evaluated sessions past their retention.
func (s *Service) StartSweeper(ctx context.Context, interval, idleTTL, retention time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		s.logger.Info("Session sweeper started", "interval", interval, "idle_ttl", idleTTL, "retention", retention)

		for {
			select {
			case <-ticker.C:
				s.sweep(idleTTL, retention)
			case <-ctx.Done():
				s.logger.Info("Session sweeper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

func (s *Service) sweep(idleTTL, retention time.Duration) int {
	now := s.now()
	removed := s.registry.sweep(now, idleTTL, retention)
	for _, sess := range removed {
		s.logger.Info("Session evicted", "session_id", sess.ID, "evaluated", sess.Result != nil)
		s.emit(context.Background(), Event{Type: EventEvicted, SessionID: sess.ID, UserID: sess.UserID, Phase: sess.Phase(now), PauseCount: sess.PauseCount, Time: now})
		if s.onCleanup != nil {
			s.onCleanup(sess.ID)
		}
	}
	return len(removed)
}

func nextSpeaker(sess *Session) string {
	if sess.NextSpeakerHint != "" {
		return sess.NextSpeakerHint
	}
	return anySpeaker
}

func otherNames(participants []domain.Participant, self string) []string {
	names := make([]string, 0, len(participants))
	for _, p := range participants {
		if p.ID != self {
			names = append(names, p.Name)
		}
	}
	return names
}
