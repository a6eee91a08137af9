package conversation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Youdahe123/fill.ai-hop-hacks/internal/llm"
	"github.com/Youdahe123/fill.ai-hop-hacks/internal/schema"
	"github.com/Youdahe123/fill.ai-hop-hacks/internal/translate"
)

var (
	// ErrSessionNotFound is returned for an unknown or expired session id.
	ErrSessionNotFound = errors.New("session not found")
	// ErrStaleAnswer is returned when an answer arrives while the session
	// is not waiting for one. The answer is dropped.
	ErrStaleAnswer = errors.New("session is not waiting for an answer")
)

// Language is a language the interview can be conducted in, with the
// spellings a user might pick it by.
type Language struct {
	Name    string
	Aliases []string
}

// Options tunes engine behavior. Zero values fall back to defaults.
type Options struct {
	// AnswerTimeout is how long each question waits for a reply.
	AnswerTimeout time.Duration
	// MaxRetries is how many times a question is re-asked after a timeout,
	// a failed validation, or a rejected confirmation.
	MaxRetries int
	// CanonicalLanguage is the language answers are stored in.
	CanonicalLanguage string
	// Languages offered at the start of a session. Empty skips the
	// language selection step entirely.
	Languages []Language
}

func (o Options) withDefaults() Options {
	if o.AnswerTimeout <= 0 {
		o.AnswerTimeout = 60 * time.Second
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = 3
	}
	if o.CanonicalLanguage == "" {
		o.CanonicalLanguage = "English"
	}
	return o
}

// Engine runs form-filling interviews. Each session gets its own goroutine
// that owns all session state; the public methods only read snapshots or
// hand input to that goroutine.
type Engine struct {
	opts       Options
	llmClient  llm.Client
	translator translate.Translator
	logger     *log.Logger

	mu       sync.RWMutex
	sessions map[string]*session
}

// NewEngine creates an engine. Both collaborators are optional; without
// them prompts use templates and translation degrades to passthrough.
func NewEngine(opts Options, llmClient llm.Client, translator translate.Translator) *Engine {
	return &Engine{
		opts:       opts.withDefaults(),
		llmClient:  llmClient,
		translator: translator,
		logger:     log.Default(),
		sessions:   make(map[string]*session),
	}
}

// StartRequest describes a new interview.
type StartRequest struct {
	Schema schema.FieldSchema
	// Prefilled answers, keyed by field id. Prefilled fields are never
	// prompted for.
	Prefilled map[string]string
	// Language pins the session language and skips selection. Empty lets
	// the user pick one when languages are configured.
	Language string
	// Channel carries the dialogue. Required.
	Channel Channel
}

// StartSession begins an interview and returns its id. The interview runs
// on its own goroutine until it reaches a terminal state.
func (e *Engine) StartSession(req StartRequest) (string, error) {
	if req.Channel == nil {
		return "", fmt.Errorf("a conversation channel is required")
	}
	if err := req.Schema.Validate(); err != nil {
		return "", fmt.Errorf("invalid schema: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &session{
		channel: req.Channel,
		schema:  req.Schema,
		cancel:  cancel,
		done:    make(chan struct{}),
		state: State{
			SessionID: uuid.New().String(),
			Status:    StatusInit,
			Language:  req.Language,
			Answers:   make(map[string]string),
		},
	}
	for id, v := range req.Prefilled {
		if _, ok := req.Schema.Field(id); ok {
			s.state.Answers[id] = v
		}
	}

	e.mu.Lock()
	e.sessions[s.state.SessionID] = s
	e.mu.Unlock()

	go s.run(ctx, e)
	return s.state.SessionID, nil
}

// SubmitAnswer delivers a reply to a session that is waiting for one.
// Answers sent at any other moment are rejected as stale.
func (e *Engine) SubmitAnswer(sessionID, answer string) error {
	s, err := e.lookup(sessionID)
	if err != nil {
		return err
	}
	mc, ok := s.channel.(*MemoryChannel)
	if !ok {
		return fmt.Errorf("session %s does not take answers through the engine", sessionID)
	}
	switch s.snapshot().Status {
	case StatusSelectingLanguage, StatusAwaitingAnswer, StatusConfirming:
	default:
		return ErrStaleAnswer
	}
	if !mc.Submit(answer) {
		return ErrStaleAnswer
	}
	return nil
}

// GetState returns a snapshot of a session.
func (e *Engine) GetState(sessionID string) (State, error) {
	s, err := e.lookup(sessionID)
	if err != nil {
		return State{}, err
	}
	return s.snapshot(), nil
}

// Abort cancels a running session. It transitions to failed; terminal
// sessions are left untouched.
func (e *Engine) Abort(sessionID string) error {
	s, err := e.lookup(sessionID)
	if err != nil {
		return err
	}
	s.cancel()
	<-s.done
	return nil
}

// Done returns a channel closed when the session reaches a terminal state.
func (e *Engine) Done(sessionID string) (<-chan struct{}, error) {
	s, err := e.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	return s.done, nil
}

func (e *Engine) lookup(sessionID string) (*session, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s, ok := e.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

type session struct {
	channel Channel
	schema  schema.FieldSchema
	cancel  context.CancelFunc
	done    chan struct{}

	mu    sync.RWMutex
	state State
}

func (s *session) snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

func (s *session) update(fn func(*State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Status.Terminal() {
		return
	}
	fn(&s.state)
}

func (s *session) fail(reason string) {
	s.update(func(st *State) {
		st.Status = StatusFailed
		st.FailureReason = reason
		st.CurrentFieldID = ""
	})
}

// fieldOutcome is what asking one field ended with.
type fieldOutcome int

const (
	outcomeCommitted fieldOutcome = iota
	outcomeSkipped
	outcomeFailed
	outcomeAborted
)

func (s *session) run(ctx context.Context, e *Engine) {
	defer close(s.done)

	if s.snapshot().Language == "" && len(e.opts.Languages) > 0 {
		if aborted := s.selectLanguage(ctx, e); aborted {
			s.fail("session aborted")
			return
		}
	} else if s.snapshot().Language == "" {
		s.update(func(st *State) { st.Language = e.opts.CanonicalLanguage })
	}

	var queue []schema.FieldDefinition
	answered := s.snapshot().Answers
	for _, def := range s.schema.Fields {
		if _, ok := answered[def.ID]; !ok {
			queue = append(queue, def)
		}
	}
	s.update(func(st *State) { st.Progress.Total = len(queue) })

	for i, def := range queue {
		switch s.askField(ctx, e, def, i+1, len(queue)) {
		case outcomeCommitted:
			s.update(func(st *State) { st.Progress.Asked++ })
		case outcomeSkipped:
			s.update(func(st *State) {
				st.Progress.Asked++
				st.Skipped = append(st.Skipped, def.ID)
			})
		case outcomeFailed:
			s.fail(fmt.Sprintf("no valid answer for required field %q", def.ID))
			return
		case outcomeAborted:
			s.fail("session aborted")
			return
		}
	}

	s.sendSummary(ctx, e)
	s.update(func(st *State) {
		st.Status = StatusCompleted
		st.CurrentFieldID = ""
		st.Retries = 0
	})
}

// selectLanguage asks the user to pick from the configured languages.
// After the retry budget it falls back to the canonical language and marks
// the session degraded.
func (s *session) selectLanguage(ctx context.Context, e *Engine) (aborted bool) {
	names := make([]string, len(e.opts.Languages))
	for i, l := range e.opts.Languages {
		names[i] = l.Name
	}
	prompt := fmt.Sprintf("Which language would you like to continue in? Options: %s.", strings.Join(names, ", "))

	for attempt := 0; attempt < e.opts.MaxRetries; attempt++ {
		s.update(func(st *State) { st.Status = StatusSelectingLanguage })
		if err := s.channel.Send(ctx, prompt); err != nil {
			e.logger.Printf("conversation: sending language prompt: %v", err)
		}
		reply, err := s.channel.Receive(ctx, e.opts.AnswerTimeout)
		if isAbort(ctx, err) {
			return true
		}
		if err != nil {
			continue
		}
		if name, ok := resolveLanguage(e.opts.Languages, reply); ok {
			s.update(func(st *State) { st.Language = name })
			return false
		}
	}

	e.logger.Printf("conversation: language selection exhausted, continuing in %s", e.opts.CanonicalLanguage)
	s.update(func(st *State) {
		st.Language = e.opts.CanonicalLanguage
		st.LanguageDegraded = true
	})
	return false
}

func resolveLanguage(languages []Language, reply string) (string, bool) {
	want := strings.ToLower(strings.TrimSpace(reply))
	for _, l := range languages {
		if strings.ToLower(l.Name) == want {
			return l.Name, true
		}
		for _, alias := range l.Aliases {
			if strings.ToLower(alias) == want {
				return l.Name, true
			}
		}
	}
	return "", false
}

// askField runs the ask, validate, confirm loop for one field. Answers are
// stored in the canonical language.
func (s *session) askField(ctx context.Context, e *Engine, def schema.FieldDefinition, position, total int) fieldOutcome {
	retries := 0
	for retries < e.opts.MaxRetries {
		s.update(func(st *State) {
			st.Status = StatusAsking
			st.CurrentFieldID = def.ID
			st.Retries = retries
		})

		prompt := e.phrasePrompt(ctx, def, position, total)
		if err := s.send(ctx, e, prompt); err != nil {
			e.logger.Printf("conversation: sending prompt for %s: %v", def.ID, err)
		}

		s.update(func(st *State) { st.Status = StatusAwaitingAnswer })
		reply, err := s.channel.Receive(ctx, e.opts.AnswerTimeout)
		if isAbort(ctx, err) {
			return outcomeAborted
		}
		if err != nil {
			retries++
			continue
		}

		s.update(func(st *State) { st.Status = StatusValidating })
		if verr := validateAnswer(def, reply); verr != nil {
			retries++
			if err := s.send(ctx, e, fmt.Sprintf("That doesn't look right: %s. Please try again.", verr)); err != nil {
				e.logger.Printf("conversation: sending clarification for %s: %v", def.ID, err)
			}
			continue
		}
		canonical := e.normalizeAnswer(ctx, def, s.toCanonical(ctx, e, reply))

		s.update(func(st *State) { st.Status = StatusConfirming })
		confirm := fmt.Sprintf("You answered %q for %q. Is that correct? (yes/no)", canonical, def.Label)
		if err := s.send(ctx, e, confirm); err != nil {
			e.logger.Printf("conversation: sending confirmation for %s: %v", def.ID, err)
		}
		verdict, err := s.channel.Receive(ctx, e.opts.AnswerTimeout)
		if isAbort(ctx, err) {
			return outcomeAborted
		}
		if err != nil || !isAffirmative(verdict) {
			retries++
			continue
		}

		s.update(func(st *State) {
			st.Answers[def.ID] = canonical
			st.Retries = 0
			st.CurrentFieldID = ""
		})
		return outcomeCommitted
	}

	if def.Required {
		return outcomeFailed
	}
	return outcomeSkipped
}

// phrasePrompt asks the language collaborator to word the question and
// falls back to a template when it can't.
func (e *Engine) phrasePrompt(ctx context.Context, def schema.FieldDefinition, position, total int) string {
	if e.llmClient != nil {
		resp, err := e.llmClient.Complete(ctx, llm.Request{
			Task: llm.TaskPhrasePrompt,
			Text: def.Label,
			Context: map[string]string{
				"kind":     string(def.Kind),
				"position": fmt.Sprintf("%d of %d", position, total),
			},
		})
		if err == nil && strings.TrimSpace(resp.Text) != "" {
			return resp.Text
		}
		if err != nil {
			e.logger.Printf("conversation: phrasing prompt for %q: %v", def.Label, err)
		}
	}
	return fmt.Sprintf("Question %d of %d: %s", position, total, templatePrompt(def))
}

// normalizeAnswer asks the collaborator to tidy a canonical answer before
// it is confirmed and stored. Failures keep the answer as given.
func (e *Engine) normalizeAnswer(ctx context.Context, def schema.FieldDefinition, answer string) string {
	if e.llmClient == nil {
		return answer
	}
	resp, err := e.llmClient.Complete(ctx, llm.Request{
		Task: llm.TaskNormalize,
		Text: answer,
		Context: map[string]string{
			"label": def.Label,
			"kind":  string(def.Kind),
		},
	})
	if err != nil {
		e.logger.Printf("conversation: normalizing answer for %s: %v", def.ID, err)
		return answer
	}
	if strings.TrimSpace(resp.Text) == "" {
		return answer
	}
	return strings.TrimSpace(resp.Text)
}

func templatePrompt(def schema.FieldDefinition) string {
	switch def.Kind {
	case schema.KindCheckbox:
		return fmt.Sprintf("Should %q be checked? (yes/no)", def.Label)
	case schema.KindDate:
		return fmt.Sprintf("What is the date for %q?", def.Label)
	case schema.KindSignature:
		return fmt.Sprintf("Please type your full name to sign %q.", def.Label)
	default:
		return fmt.Sprintf("What is your %s?", strings.ToLower(def.Label))
	}
}

// send delivers a prompt in the session language.
func (s *session) send(ctx context.Context, e *Engine, text string) error {
	st := s.snapshot()
	res := translate.Apply(ctx, e.translator, text, e.opts.CanonicalLanguage, st.Language)
	if res.Degraded {
		s.update(func(cur *State) { cur.TranslationDegraded = true })
	}
	return s.channel.Send(ctx, res.Text)
}

// toCanonical translates a reply into the canonical language for storage.
func (s *session) toCanonical(ctx context.Context, e *Engine, reply string) string {
	st := s.snapshot()
	res := translate.Apply(ctx, e.translator, reply, st.Language, e.opts.CanonicalLanguage)
	if res.Degraded {
		s.update(func(cur *State) { cur.TranslationDegraded = true })
	}
	return res.Text
}

func (s *session) sendSummary(ctx context.Context, e *Engine) {
	st := s.snapshot()
	var b strings.Builder
	b.WriteString("All done. Here is what I have:\n")
	for _, def := range s.schema.Fields {
		if v, ok := st.Answers[def.ID]; ok {
			fmt.Fprintf(&b, "  %s: %s\n", def.Label, v)
		}
	}
	if len(st.Skipped) > 0 {
		fmt.Fprintf(&b, "Skipped: %s\n", strings.Join(st.Skipped, ", "))
	}
	s.send(ctx, e, b.String())
}

func isAbort(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return true
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
