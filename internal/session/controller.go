package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"intervu/interview/internal/models"
	"intervu/interview/internal/reasoning"
	"intervu/interview/internal/repositories"
	"intervu/interview/internal/speech"
)

// State is the turn controller's position in the interview loop.
type State int

const (
	StateAwaitingSpeech State = iota
	StateAccumulating
	StateModerating
	StateGrading
	StateGeneratingNext
	StateSpeaking
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateAwaitingSpeech:
		return "AWAITING_SPEECH"
	case StateAccumulating:
		return "ACCUMULATING"
	case StateModerating:
		return "MODERATING"
	case StateGrading:
		return "GRADING"
	case StateGeneratingNext:
		return "GENERATING_NEXT"
	case StateSpeaking:
		return "SPEAKING"
	case StateTerminated:
		return "TERMINATED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(s))
	}
}

// Speaker delivers one interviewer utterance to the candidate and returns
// once playback has finished (or failed).
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// Question is the turn currently awaiting an answer.
type Question struct {
	Text       string
	Section    string
	Difficulty int
}

// Config carries the session policy knobs.
type Config struct {
	PauseWindow     time.Duration
	FullscreenGrace time.Duration
	ViolationLimit  int
}

// Controller runs one candidate's interview in real time. It owns the
// transcript buffer for the lifetime of each turn and serializes the capture
// and reasoning phases: the speech channel is fully closed before any
// moderation, grading, or generation call begins, and reopened only after
// the resulting utterance finishes playing.
type Controller struct {
	cfg        Config
	interview  *models.Interview
	candidate  *models.Candidate
	gateway    *reasoning.Gateway
	speaker    Speaker
	repo       *repositories.InterviewRepository
	lifecycle  *Lifecycle
	newChannel speech.ChannelFactory
	logger     *zap.Logger

	Timer   *Timer
	Monitor *Monitor

	mu       sync.Mutex
	state    State
	channel  speech.Channel
	buffer   *speech.TranscriptBuffer
	pause    *time.Timer
	current  Question
	introDue bool
	reason   TerminationReason

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func NewController(
	cfg Config,
	interview *models.Interview,
	candidate *models.Candidate,
	gateway *reasoning.Gateway,
	speaker Speaker,
	repo *repositories.InterviewRepository,
	lifecycle *Lifecycle,
	newChannel speech.ChannelFactory,
	logger *zap.Logger,
) *Controller {
	c := &Controller{
		cfg:        cfg,
		interview:  interview,
		candidate:  candidate,
		gateway:    gateway,
		speaker:    speaker,
		repo:       repo,
		lifecycle:  lifecycle,
		newChannel: newChannel,
		logger:     logger,
		Timer:      NewTimer(),
		buffer:     speech.NewTranscriptBuffer(),
		state:      StateSpeaking,
		introDue:   true,
		done:       make(chan struct{}),
	}
	c.Monitor = NewMonitor(cfg.ViolationLimit, cfg.FullscreenGrace, c.Terminate, logger)
	return c
}

// Run starts the session: proctoring attaches, the countdown starts, and the
// greeting plus introduction question is spoken. Run returns immediately;
// the loop continues on internal goroutines until termination.
func (c *Controller) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.ctx = ctx
	c.cancel = cancel
	c.mu.Unlock()

	c.Monitor.Attach()
	c.Timer.Start(c.interview.DurationMin*60, func() {
		c.Terminate(ReasonTimerExpired)
	})

	greeting := c.gateway.Greeting(ctx, c.candidate.Name)
	c.setCurrent(Question{
		Text:       greeting,
		Section:    models.SectionIntroduction,
		Difficulty: models.DefaultDifficulty,
	})

	c.logger.Info("session started",
		zap.String("interview_id", c.interview.InterviewID),
		zap.Int("duration_min", c.interview.DurationMin))

	go c.speakThenListen(greeting)
}

// State returns the controller's current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// CurrentQuestion returns the open turn's question.
func (c *Controller) CurrentQuestion() Question {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Done is closed once the session has terminated and completion has run.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// OnFragment implements speech.Listener. Fragments are buffered by turn-order
// key; each one resets the pause window.
func (c *Controller) OnFragment(turnOrder int, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateAwaitingSpeech && c.state != StateAccumulating {
		// stale fragment from a closing stream
		return
	}

	c.buffer.Set(turnOrder, text)
	if c.state == StateAwaitingSpeech && !c.buffer.Empty() {
		c.setStateLocked(StateAccumulating)
	}
	if c.state == StateAccumulating {
		if c.pause != nil {
			c.pause.Stop()
		}
		c.pause = time.AfterFunc(c.cfg.PauseWindow, c.onPause)
	}
}

// OnError implements speech.Listener. A mid-capture stream failure tears the
// channel down and opens a fresh one; repeated failures leave the session to
// the timer.
func (c *Controller) OnError(err error) {
	c.logger.Warn("speech channel error", zap.Error(err))

	c.mu.Lock()
	if c.state != StateAwaitingSpeech && c.state != StateAccumulating {
		c.mu.Unlock()
		return
	}
	ch := c.channel
	c.channel = nil
	c.mu.Unlock()

	if ch != nil {
		ch.Close()
	}
	go c.openChannel()
}

// onPause fires when the candidate has been silent for the pause window.
// Capture stops before any reasoning call starts.
func (c *Controller) onPause() {
	c.mu.Lock()
	if c.state != StateAccumulating {
		c.mu.Unlock()
		return
	}
	if c.buffer.Empty() {
		c.setStateLocked(StateAwaitingSpeech)
		c.mu.Unlock()
		return
	}

	answer := c.buffer.Text()
	c.buffer.Reset()
	c.setStateLocked(StateModerating)
	ch := c.channel
	c.channel = nil
	c.mu.Unlock()

	if ch != nil {
		ch.Close()
	}
	c.processAnswer(answer)
}

// processAnswer drives moderation, grading, and generation for one accepted
// answer. The introduction turn is special: never moderated, always graded
// correct.
func (c *Controller) processAnswer(answer string) {
	if c.terminated() {
		return
	}
	q := c.CurrentQuestion()

	if c.takeIntro() {
		c.persistTurn(q, answer, true, "Great")
		c.generateNext(true)
		return
	}

	decision := c.gateway.Moderate(c.ctx, q.Text, answer)
	if c.terminated() {
		return
	}

	switch decision.Action {
	case reasoning.ActionConfirm:
		// same turn stays open; the pending answer is not graded or saved
		message := decision.Explanation + ". Shall we go to the next question?"
		c.speakThenListen(message)

	case reasoning.ActionProceed:
		// explicit acknowledgment: skip grading for the acknowledgment itself
		c.generateNext(false)

	case reasoning.ActionNextStep:
		c.setState(StateGrading)
		grade := c.gateway.GradeAnswer(c.ctx, q.Text, answer, q.Difficulty, q.Section, c.candidate.ResumeProfile)
		if c.terminated() {
			return
		}
		c.persistTurn(q, answer, grade.Correct, grade.Feedback)
		c.generateNext(true)
	}
}

// generateNext selects the next difficulty and section from the most recent
// persisted turn, asks for a new question, and speaks it. withFeedback
// prefixes the prior turn's feedback; the proceed path skips it.
func (c *Controller) generateNext(withFeedback bool) {
	if c.terminated() {
		return
	}
	c.setState(StateGeneratingNext)

	turns, err := c.repo.ListQuestions(c.interview.InterviewID)
	if err != nil {
		c.logger.Error("failed to load turn history", zap.Error(err))
	}

	difficulty := models.DefaultDifficulty
	feedback := ""
	if len(turns) > 0 {
		last := turns[len(turns)-1]
		difficulty = models.NextDifficulty(last.DifficultyLevel, &last.Correct)
		feedback = last.AIFeedback
	}

	history, _ := json.Marshal(turns)
	remainingMin := float64(c.Timer.Remaining()) / 60

	next := c.gateway.GenerateQuestion(c.ctx, c.candidate.ResumeProfile, string(history),
		remainingMin, c.interview.DurationMin, difficulty)
	if c.terminated() {
		return
	}

	c.setCurrent(Question{
		Text:       next.Question,
		Section:    next.Section,
		Difficulty: next.DifficultyLevel,
	})

	utterance := next.Question
	if withFeedback && feedback != "" {
		utterance = feedback + ". Now lets move to the next question. " + next.Question
	}
	c.speakThenListen(utterance)
}

// speakThenListen plays one interviewer utterance, then reopens the speech
// channel for the candidate's answer. A playback failure skips straight to
// reopening rather than hanging in SPEAKING.
func (c *Controller) speakThenListen(text string) {
	if c.terminated() {
		return
	}
	c.setState(StateSpeaking)

	if err := c.speaker.Speak(c.ctx, text); err != nil {
		c.logger.Warn("utterance playback failed, reopening capture", zap.Error(err))
	}
	c.openChannel()
}

// openChannel establishes a fresh speech channel for the next answer. A
// credential failure is an unrecoverable environment failure and terminates
// the session.
func (c *Controller) openChannel() {
	if c.terminated() {
		return
	}

	ch := c.newChannel()
	if err := ch.Open(c.ctx, c); err != nil {
		if errors.Is(err, speech.ErrNoToken) {
			c.logger.Error("streaming credential unavailable, terminating session", zap.Error(err))
		} else {
			c.logger.Error("failed to open speech channel, terminating session", zap.Error(err))
		}
		c.Terminate(ReasonEnvironmentFailure)
		return
	}

	c.mu.Lock()
	if c.state == StateTerminated {
		c.mu.Unlock()
		ch.Close()
		return
	}
	c.channel = ch
	c.setStateLocked(StateAwaitingSpeech)
	c.mu.Unlock()
}

// Terminate moves the controller to its terminal state and finalizes the
// session. Safe to invoke from any state and from any trigger; only the
// first call does work. Teardown order: session context, countdown,
// proctoring listeners, speech channel, then completion.
func (c *Controller) Terminate(reason TerminationReason) {
	c.mu.Lock()
	if c.state == StateTerminated {
		c.mu.Unlock()
		return
	}
	c.setStateLocked(StateTerminated)
	c.reason = reason
	if c.pause != nil {
		c.pause.Stop()
		c.pause = nil
	}
	ch := c.channel
	c.channel = nil
	c.buffer.Reset()
	cancel := c.cancel
	c.mu.Unlock()

	// unblocks any goroutine still waiting on playback or a speaker attach
	if cancel != nil {
		cancel()
	}
	c.Timer.Cancel()
	c.Monitor.Detach()
	if ch != nil {
		ch.Close()
	}

	elapsedMin := float64(c.interview.DurationMin) - float64(c.Timer.Remaining())/60

	// the session context may already be gone; completion must still run
	err := c.lifecycle.Complete(context.Background(),
		c.interview.InterviewID, c.interview.CandidateID, elapsedMin, reason)
	if err != nil && !errors.Is(err, ErrAlreadyFinalized) {
		c.logger.Error("session completion failed", zap.Error(err),
			zap.String("reason", string(reason)))
	}

	close(c.done)
}

func (c *Controller) persistTurn(q Question, answer string, correct bool, feedback string) {
	turn := &models.InterviewQuestion{
		InterviewID:     c.interview.InterviewID,
		Content:         q.Text,
		CandidateAnswer: answer,
		Correct:         correct,
		AIFeedback:      feedback,
		DifficultyLevel: q.Difficulty,
		Section:         q.Section,
		AskedAt:         time.Now(),
	}
	if err := c.repo.CreateQuestion(turn); err != nil {
		c.logger.Error("failed to persist question turn", zap.Error(err))
	}
}

// ForwardAudio relays one chunk of candidate microphone audio to the open
// speech channel. Audio arriving outside a capture phase is dropped.
func (c *Controller) ForwardAudio(data []byte) {
	c.mu.Lock()
	ch := c.channel
	c.mu.Unlock()
	if ch == nil {
		return
	}
	if err := ch.SendAudio(data); err != nil {
		c.logger.Debug("dropping audio chunk", zap.Error(err))
	}
}

// Reason returns the termination reason, empty until terminated.
func (c *Controller) Reason() TerminationReason {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reason
}

func (c *Controller) terminated() bool {
	return c.State() == StateTerminated
}

func (c *Controller) setCurrent(q Question) {
	c.mu.Lock()
	c.current = q
	c.mu.Unlock()
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.setStateLocked(s)
	c.mu.Unlock()
}

func (c *Controller) setStateLocked(s State) {
	if c.state == StateTerminated {
		return
	}
	if c.state != s {
		c.logger.Debug("turn controller transition",
			zap.String("from", c.state.String()),
			zap.String("to", s.String()))
	}
	c.state = s
}

// takeIntro consumes the one-time introduction flag.
func (c *Controller) takeIntro() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	was := c.introDue
	c.introDue = false
	return was
}
