package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"quiz-funnel-service/internal/domain"
	"quiz-funnel-service/internal/events"
	"quiz-funnel-service/internal/logging"
	"quiz-funnel-service/internal/validation"
	"github.com/google/uuid"
)

const (
	defaultAutoAdvanceDelay = 3 * time.Second
	defaultCallTimeout      = 5 * time.Second

	initErrorMessage = "Não foi possível iniciar o quiz. Tente novamente."
	leadErrorMessage = "Ocorreu um erro ao enviar seus dados. Por favor, tente novamente."
)

// ControllerOptions tunes a Controller. Zero values select defaults.
type ControllerOptions struct {
	AutoAdvanceDelay time.Duration
	CallTimeout      time.Duration
	Scheduler        Scheduler
	Clock            func() time.Time
	Logger           logging.Logger
	// Calls tracks detached best-effort calls; the Runtime shares one across visitors.
	Calls *sync.WaitGroup
	// OnClose runs once after Close.
	OnClose func(*Controller)
}

// State is a point-in-time view of one visitor's session.
type State struct {
	VisitorID            string            `json:"visitor_id"`
	Slug                 string            `json:"slug"`
	QuizID               string            `json:"quiz_id,omitempty"`
	SessionID            string            `json:"session_id,omitempty"`
	CurrentQuestionIndex int               `json:"current_question_index"`
	TotalSteps           int               `json:"total_steps"`
	Progress             int               `json:"progress"`
	Step                 domain.Step       `json:"step"`
	Selected             []string          `json:"selected"`
	Answers              map[string]string `json:"answers"`
	IsLoading            bool              `json:"is_loading"`
	Error                string            `json:"error,omitempty"`
	Completed            bool              `json:"completed"`
	LeadSubmitted        bool              `json:"lead_submitted"`
	LeadID               string            `json:"lead_id,omitempty"`
	LeadError            string            `json:"lead_error,omitempty"`
}

// Controller owns one visitor's pass through a quiz template. All methods are safe for
// concurrent use; the websocket reader and the auto-advance timer both drive it.
type Controller struct {
	id        string
	tpl       domain.QuizTemplate
	backend   Backend
	sink      events.Sink
	logger    logging.Logger
	scheduler Scheduler
	clock     func() time.Time
	delay     time.Duration
	timeout   time.Duration
	calls     *sync.WaitGroup
	onClose   func(*Controller)

	mu            sync.Mutex
	closed        bool
	index         int
	answers       map[string]string
	selections    map[string][]string
	quizID        string
	sessionID     string
	isLoading     bool
	initError     string
	completed     bool
	leadSubmitted bool
	leadID        string
	leadError     string

	timer    Timer
	timerGen uint64

	subscribers map[chan State]struct{}
}

// NewController prepares a controller for tpl. Call Initialize before driving it.
func NewController(tpl domain.QuizTemplate, backend Backend, sink events.Sink, opts ControllerOptions) *Controller {
	tpl.Prepare()
	c := &Controller{
		id:          uuid.NewString(),
		tpl:         tpl,
		backend:     backend,
		sink:        sink,
		logger:      opts.Logger,
		scheduler:   opts.Scheduler,
		clock:       opts.Clock,
		delay:       opts.AutoAdvanceDelay,
		timeout:     opts.CallTimeout,
		calls:       opts.Calls,
		onClose:     opts.OnClose,
		answers:     make(map[string]string),
		selections:  make(map[string][]string),
		subscribers: make(map[chan State]struct{}),
	}
	if c.logger == nil {
		c.logger = logging.Discard()
	}
	if c.scheduler == nil {
		c.scheduler = RealScheduler()
	}
	if c.clock == nil {
		c.clock = time.Now
	}
	if c.delay <= 0 {
		c.delay = defaultAutoAdvanceDelay
	}
	if c.timeout <= 0 {
		c.timeout = defaultCallTimeout
	}
	if c.calls == nil {
		c.calls = &sync.WaitGroup{}
	}
	c.logger = c.logger.With("visitor_id", c.id, "slug", tpl.Slug)
	return c
}

// ID identifies the visitor runtime.
func (c *Controller) ID() string {
	return c.id
}

// Initialize resolves the quiz record and creates the remote session. The session id
// is stored before quiz_start is emitted. A failure leaves the controller retryable;
// once a session exists further calls do nothing.
func (c *Controller) Initialize(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return domain.ErrControllerClosed
	}
	if c.sessionID != "" || c.isLoading {
		c.mu.Unlock()
		return nil
	}
	c.isLoading = true
	c.initError = ""
	c.broadcastLocked()
	c.mu.Unlock()

	quizID, err := c.backend.ResolveQuizID(ctx, c.tpl.Slug)
	var session domain.Session
	if err == nil {
		session, err = c.backend.CreateSession(ctx, quizID)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.isLoading = false
	if c.closed {
		return domain.ErrControllerClosed
	}
	if err != nil {
		c.initError = initErrorMessage
		c.broadcastLocked()
		c.logger.Warn("quiz initialization failed", "error", err)
		return fmt.Errorf("initialize quiz session: %w", err)
	}

	c.quizID = quizID
	c.sessionID = session.ID
	c.logger = c.logger.With("session_id", session.ID)

	first := c.currentStepLocked()
	c.emitLocked(domain.EventQuizStart, first.ID, map[string]any{
		"quiz_id":   quizID,
		"quiz_slug": c.tpl.Slug,
	})
	c.emitLocked(domain.EventStepView, first.ID, nil)
	c.enterStepLocked()
	c.broadcastLocked()
	return nil
}

// SelectOption updates the selection buffer of stepID. It is local only. Single
// choice steps replace the selection; multi choice steps toggle the option and ignore
// additions beyond the step's cap. Steps without options ignore the call.
func (c *Controller) SelectOption(stepID, option string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.readyLocked(); err != nil {
		return err
	}
	step, ok := c.tpl.Step(stepID)
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrStepNotFound, stepID)
	}
	if !step.AcceptsSelection() {
		return nil
	}
	if !step.HasOption(option) {
		return fmt.Errorf("%w: %q on step %s", domain.ErrOptionNotFound, option, stepID)
	}

	current := c.selections[stepID]
	switch step.Kind {
	case domain.StepSingleChoice:
		c.selections[stepID] = []string{option}
	case domain.StepMultiChoice:
		if i := indexOf(current, option); i >= 0 {
			next := make([]string, 0, len(current)-1)
			next = append(next, current[:i]...)
			c.selections[stepID] = append(next, current[i+1:]...)
		} else if len(current) < step.MaxSelections {
			c.selections[stepID] = append(append([]string(nil), current...), option)
		} else {
			return nil
		}
	}
	c.broadcastLocked()
	return nil
}

// SubmitAnswer commits the selection of stepID, records it and advances.
func (c *Controller) SubmitAnswer(stepID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.readyLocked(); err != nil {
		return err
	}
	step, ok := c.tpl.Step(stepID)
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrStepNotFound, stepID)
	}
	selected := c.selections[stepID]
	if len(selected) == 0 {
		return domain.ErrNoSelection
	}

	answer := strings.Join(selected, ", ")
	c.answers[stepID] = answer
	delete(c.selections, stepID)

	record := domain.Answer{
		SessionID: c.sessionID,
		StepID:    stepID,
		Question:  step.Prompt(),
		Answer:    answer,
		CreatedAt: c.clock(),
	}
	c.detach("record answer", func(ctx context.Context) error {
		return c.backend.RecordAnswer(ctx, record)
	})
	c.emitLocked(domain.EventAnswer, stepID, map[string]any{
		"question":    step.Prompt(),
		"question_id": stepID,
		"answer":      answer,
	})
	c.advanceLocked()
	return nil
}

// Advance moves to the next step, clamping at the last one. Landing on the last step
// completes the session once per controller.
func (c *Controller) Advance() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.readyLocked(); err != nil {
		return err
	}
	c.advanceLocked()
	return nil
}

// Retreat moves to the previous step. It does nothing on the first step.
func (c *Controller) Retreat() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.readyLocked(); err != nil {
		return err
	}
	if c.index == 0 {
		return nil
	}
	c.index--
	c.emitLocked(domain.EventStepView, c.currentStepLocked().ID, nil)
	c.enterStepLocked()
	c.broadcastLocked()
	return nil
}

// SubmitLead validates the form locally and then awaits lead creation. A failed
// submission may be retried; a successful one cannot be repeated.
func (c *Controller) SubmitLead(ctx context.Context, form validation.LeadForm) (domain.LeadReceipt, error) {
	c.mu.Lock()
	if err := c.readyLocked(); err != nil {
		c.mu.Unlock()
		return domain.LeadReceipt{}, err
	}
	if c.leadSubmitted {
		c.mu.Unlock()
		return domain.LeadReceipt{}, domain.ErrLeadAlreadySubmitted
	}
	if err := form.Validate(); err != nil {
		c.mu.Unlock()
		return domain.LeadReceipt{}, err
	}

	form = form.Normalized()
	answers := make(map[string]string, len(c.answers))
	for k, v := range c.answers {
		answers[k] = v
	}
	input := domain.LeadInput{
		Name:           form.Name,
		Email:          form.Email,
		Phone:          form.Phone,
		QuizID:         c.quizID,
		SessionID:      c.sessionID,
		AdditionalData: answers,
	}
	c.isLoading = true
	c.leadError = ""
	c.broadcastLocked()
	c.mu.Unlock()

	receipt, err := c.backend.CreateLead(ctx, input)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.isLoading = false
	if err != nil {
		c.leadError = leadErrorMessage
		c.broadcastLocked()
		c.logger.Warn("lead submission failed", "error", err)
		return domain.LeadReceipt{}, fmt.Errorf("submit lead: %w", err)
	}
	c.leadSubmitted = true
	c.leadID = receipt.LeadID
	c.emitLocked(domain.EventSubmitLead, c.currentStepLocked().ID, map[string]any{
		"lead_data": map[string]any{
			"name":  form.Name,
			"email": form.Email,
		},
	})
	c.broadcastLocked()
	return receipt, nil
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe returns a channel receiving a snapshot after every change, starting with
// the current one. Slow readers only see the latest snapshots. The caller must invoke
// cancel to release the subscription.
func (c *Controller) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 8)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	c.subscribers[ch] = struct{}{}
	ch <- c.snapshotLocked()
	c.mu.Unlock()

	cancel := func() {
		c.mu.Lock()
		if _, ok := c.subscribers[ch]; ok {
			delete(c.subscribers, ch)
			close(ch)
		}
		c.mu.Unlock()
	}
	return ch, cancel
}

// Close cancels the auto-advance timer and ends all subscriptions. Later operations
// return domain.ErrControllerClosed.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.cancelTimerLocked()
	for ch := range c.subscribers {
		delete(c.subscribers, ch)
		close(ch)
	}
	onClose := c.onClose
	c.mu.Unlock()

	if onClose != nil {
		onClose(c)
	}
	return nil
}

func (c *Controller) readyLocked() error {
	if c.closed {
		return domain.ErrControllerClosed
	}
	if c.sessionID == "" {
		return domain.ErrNotInitialized
	}
	return nil
}

func (c *Controller) advanceLocked() {
	total := c.tpl.TotalSteps()
	c.emitLocked(domain.EventStepComplete, c.currentStepLocked().ID, nil)

	next := c.index + 1
	if next > total-1 {
		next = total - 1
	}
	c.index = next
	c.emitLocked(domain.EventStepView, c.currentStepLocked().ID, nil)
	c.enterStepLocked()

	if next == total-1 && !c.completed {
		c.completeLocked()
	}
	c.broadcastLocked()
}

func (c *Controller) completeLocked() {
	c.completed = true
	c.emitLocked(domain.EventQuizComplete, c.currentStepLocked().ID, nil)
	sessionID := c.sessionID
	c.detach("complete session", func(ctx context.Context) error {
		_, err := c.backend.CompleteSession(ctx, sessionID)
		return err
	})
}

// enterStepLocked re-arms the auto-advance timer for the current step.
func (c *Controller) enterStepLocked() {
	c.cancelTimerLocked()
	step := c.currentStepLocked()
	if step.Kind != domain.StepAutoAdvance {
		return
	}
	gen := c.timerGen
	c.timer = c.scheduler.AfterFunc(c.delay, func() {
		c.autoAdvance(gen, step.ID)
	})
}

func (c *Controller) cancelTimerLocked() {
	c.timerGen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Controller) autoAdvance(gen uint64, stepID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || gen != c.timerGen || c.currentStepLocked().ID != stepID {
		return
	}
	c.timer = nil
	c.advanceLocked()
}

func (c *Controller) currentStepLocked() domain.Step {
	step, _ := c.tpl.StepAt(c.index)
	return step
}

func (c *Controller) emitLocked(typ domain.EventType, stepID string, data map[string]any) {
	if c.sessionID == "" {
		return
	}
	c.sink.Record(domain.NewEvent(c.sessionID, typ, stepID, data, c.clock()))
}

// detach runs fn outside the caller with its own deadline; failures are logged.
func (c *Controller) detach(name string, fn func(ctx context.Context) error) {
	c.calls.Add(1)
	go func() {
		defer c.calls.Done()
		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
		defer cancel()
		if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
			c.logger.Warn(name+" failed", "error", err)
		}
	}()
}

func (c *Controller) snapshotLocked() State {
	total := c.tpl.TotalSteps()
	step := c.currentStepLocked()
	answers := make(map[string]string, len(c.answers))
	for k, v := range c.answers {
		answers[k] = v
	}
	progress := 0
	if total > 0 {
		progress = (c.index + 1) * 100 / total
	}
	return State{
		VisitorID:            c.id,
		Slug:                 c.tpl.Slug,
		QuizID:               c.quizID,
		SessionID:            c.sessionID,
		CurrentQuestionIndex: c.index,
		TotalSteps:           total,
		Progress:             progress,
		Step:                 step,
		Selected:             append([]string{}, c.selections[step.ID]...),
		Answers:              answers,
		IsLoading:            c.isLoading,
		Error:                c.initError,
		Completed:            c.completed,
		LeadSubmitted:        c.leadSubmitted,
		LeadID:               c.leadID,
		LeadError:            c.leadError,
	}
}

func (c *Controller) broadcastLocked() {
	if len(c.subscribers) == 0 {
		return
	}
	st := c.snapshotLocked()
	for ch := range c.subscribers {
		select {
		case ch <- st:
		default:
			// Drop the oldest snapshot so a slow reader never blocks the controller.
			select {
			case <-ch:
			default:
			}
			ch <- st
		}
	}
}

func indexOf(values []string, v string) int {
	for i, x := range values {
		if x == v {
			return i
		}
	}
	return -1
}
