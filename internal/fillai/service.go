package fillai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "image/jpeg"
	_ "image/png"

	"github.com/Youdahe123/fill.ai-hop-hacks/internal/conversation"
	"github.com/Youdahe123/fill.ai-hop-hacks/internal/docai"
	"github.com/Youdahe123/fill.ai-hop-hacks/internal/document"
	"github.com/Youdahe123/fill.ai-hop-hacks/internal/llm"
	"github.com/Youdahe123/fill.ai-hop-hacks/internal/override"
	"github.com/Youdahe123/fill.ai-hop-hacks/internal/render"
	"github.com/Youdahe123/fill.ai-hop-hacks/internal/schema"
)

// promptWait bounds how long state queries wait for the engine to produce
// its next prompt before returning without one.
const promptWait = 2 * time.Second

// Service orchestrates the form pipeline: analysis, schema extraction,
// override lookup, the interview engine, and rendering.
type Service struct {
	analyzer   docai.Analyzer
	extractor  *schema.Extractor
	store      *override.Store
	engine     *conversation.Engine
	compositor *render.Compositor
	llmClient  llm.Client
	logger     *log.Logger

	mu       sync.RWMutex
	sessions map[string]*sessionContext
}

// sessionContext is what the service remembers about a session beyond the
// engine's own state, so rendering can find positions later.
type sessionContext struct {
	doc       document.FormDocument
	channel   *conversation.MemoryChannel
	schema    schema.FieldSchema
	positions schema.FieldPositions
}

// NewService wires the pipeline together. The LLM client is optional.
func NewService(analyzer docai.Analyzer, store *override.Store, engine *conversation.Engine, llmClient llm.Client) *Service {
	return &Service{
		analyzer:   analyzer,
		extractor:  schema.NewExtractor(),
		store:      store,
		engine:     engine,
		compositor: render.NewCompositor(),
		llmClient:  llmClient,
		logger:     log.Default(),
		sessions:   make(map[string]*sessionContext),
	}
}

// ExtractSchema analyzes a form file and returns its fillable structure
// with any stored override already layered on.
func (s *Service) ExtractSchema(ctx context.Context, req ExtractSchemaRequest) (*ExtractSchemaResult, error) {
	doc, fields, positions, prefilled, applied, err := s.extractForm(ctx, req.Path)
	if err != nil {
		return nil, err
	}
	return &ExtractSchemaResult{
		Hash:            doc.Hash,
		Filename:        doc.Filename,
		PageCount:       doc.PageCount(),
		Schema:          fields,
		Positions:       positions,
		Prefilled:       prefilled,
		OverrideApplied: applied,
	}, nil
}

// LoadOverride returns the stored record matching a form file, if any.
func (s *Service) LoadOverride(ctx context.Context, req LoadOverrideRequest) (*LoadOverrideResult, error) {
	doc, _, err := document.Load(req.Path)
	if err != nil {
		return nil, fmt.Errorf("loading form: %w", err)
	}
	rec, found := s.store.Lookup(override.Identity{Hash: doc.Hash, Filename: doc.Filename})
	return &LoadOverrideResult{Found: found, Record: rec}, nil
}

// SaveOverride stores a curated record.
func (s *Service) SaveOverride(ctx context.Context, req SaveOverrideRequest) (*SaveOverrideResult, error) {
	rec := req.Record
	if err := s.store.Save(&rec); err != nil {
		return nil, err
	}
	return &SaveOverrideResult{Hash: rec.Metadata.Hash}, nil
}

// StartConversation extracts the form and begins an interview over it.
func (s *Service) StartConversation(ctx context.Context, req StartConversationRequest) (*StartConversationResult, error) {
	doc, fields, positions, prefilled, _, err := s.extractForm(ctx, req.Path)
	if err != nil {
		return nil, err
	}
	if len(fields.Fields) == 0 {
		return nil, fmt.Errorf("no fillable fields found in %s", doc.Filename)
	}

	channel := conversation.NewMemoryChannel()
	sessionID, err := s.engine.StartSession(conversation.StartRequest{
		Schema:    fields,
		Prefilled: prefilled,
		Language:  req.Language,
		Channel:   channel,
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.sessions[sessionID] = &sessionContext{
		doc:       doc,
		channel:   channel,
		schema:    fields,
		positions: positions,
	}
	s.mu.Unlock()

	prompts := s.collectPrompts(channel)
	state, err := s.engine.GetState(sessionID)
	if err != nil {
		return nil, err
	}
	return &StartConversationResult{SessionID: sessionID, State: state, Prompts: prompts}, nil
}

// SubmitAnswer delivers one reply and returns the engine's reaction.
func (s *Service) SubmitAnswer(ctx context.Context, req SubmitAnswerRequest) (*SubmitAnswerResult, error) {
	sess, err := s.session(req.SessionID)
	if err != nil {
		return nil, err
	}
	if err := s.engine.SubmitAnswer(req.SessionID, req.Answer); err != nil {
		return nil, err
	}
	prompts := s.collectPrompts(sess.channel)
	state, err := s.engine.GetState(req.SessionID)
	if err != nil {
		return nil, err
	}
	return &SubmitAnswerResult{State: state, Prompts: prompts}, nil
}

// GetState returns a session snapshot and drains pending prompts.
func (s *Service) GetState(ctx context.Context, req GetStateRequest) (*GetStateResult, error) {
	sess, err := s.session(req.SessionID)
	if err != nil {
		return nil, err
	}
	state, err := s.engine.GetState(req.SessionID)
	if err != nil {
		return nil, err
	}
	return &GetStateResult{State: state, Prompts: sess.channel.DrainPrompts()}, nil
}

// AbortSession cancels a running interview.
func (s *Service) AbortSession(ctx context.Context, req AbortSessionRequest) (*AbortSessionResult, error) {
	if _, err := s.session(req.SessionID); err != nil {
		return nil, err
	}
	if err := s.engine.Abort(req.SessionID); err != nil {
		return nil, err
	}
	state, err := s.engine.GetState(req.SessionID)
	if err != nil {
		return nil, err
	}
	s.release(req.SessionID)
	return &AbortSessionResult{State: state}, nil
}

// RenderFilledImage draws a completed session's answers onto the given
// page images and writes the filled pages as JPEGs.
func (s *Service) RenderFilledImage(ctx context.Context, req RenderFilledImageRequest) (*RenderFilledImageResult, error) {
	sess, err := s.session(req.SessionID)
	if err != nil {
		return nil, err
	}
	state, err := s.engine.GetState(req.SessionID)
	if err != nil {
		return nil, err
	}
	if state.Status != conversation.StatusCompleted {
		return nil, fmt.Errorf("session %s is %s, only completed sessions can be rendered", req.SessionID, state.Status)
	}
	if len(req.PageImagePaths) == 0 {
		return nil, fmt.Errorf("at least one page image is required")
	}

	pages := make([]image.Image, len(req.PageImagePaths))
	for i, path := range req.PageImagePaths {
		img, err := loadImage(path)
		if err != nil {
			return nil, fmt.Errorf("loading page image %s: %w", path, err)
		}
		pages[i] = img
	}

	placements, dropped := s.buildPlacements(sess, state.Answers)
	rendered, placed, err := s.compositor.Render(pages, placements)
	if err != nil {
		return nil, err
	}

	outDir := req.OutputDir
	if outDir == "" {
		outDir = filepath.Dir(req.PageImagePaths[0])
	}
	stem := strings.TrimSuffix(sess.doc.Filename, filepath.Ext(sess.doc.Filename))

	var written []string
	for i, page := range rendered {
		name := fmt.Sprintf("filled_%s_p%d.jpg", stem, i+1)
		path := filepath.Join(outDir, name)
		f, err := os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("writing %s: %w", path, err)
		}
		if err := s.compositor.EncodeJPEG(f, page); err != nil {
			f.Close()
			return nil, fmt.Errorf("encoding %s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			return nil, err
		}
		written = append(written, path)
	}

	s.release(req.SessionID)
	return &RenderFilledImageResult{
		OutputPaths:   written,
		PlacedFields:  placed,
		DroppedFields: dropped,
	}, nil
}

// buildPlacements turns committed answers into draw instructions. Fields
// without a known position are reported instead of guessed at.
func (s *Service) buildPlacements(sess *sessionContext, answers map[string]string) ([]render.Placement, []string) {
	var placements []render.Placement
	var dropped []string
	for _, def := range sess.schema.Fields {
		answer, ok := answers[def.ID]
		if !ok {
			continue
		}
		pos, ok := sess.positions[def.ID]
		if !ok {
			s.logger.Printf("fillai: no position for %s, leaving it off the page", def.ID)
			dropped = append(dropped, def.ID)
			continue
		}
		p := render.Placement{
			FieldID: def.ID,
			Page:    pos.Page,
			X:       pos.Point.X,
			Y:       pos.Point.Y,
			Text:    answer,
		}
		if def.Kind == schema.KindCheckbox {
			checked, ok := conversation.ParseCheckbox(answer)
			if !ok || !checked {
				continue
			}
			p.Mark = true
			p.Text = ""
		}
		placements = append(placements, p)
	}
	return placements, dropped
}

// extractForm runs the shared front half of the pipeline: load, analyze,
// extract, then layer the stored override.
func (s *Service) extractForm(ctx context.Context, path string) (document.FormDocument, schema.FieldSchema, schema.FieldPositions, map[string]string, bool, error) {
	doc, data, err := document.Load(path)
	if err != nil {
		return document.FormDocument{}, schema.FieldSchema{}, nil, nil, false, fmt.Errorf("loading form: %w", err)
	}

	result := &docai.Result{}
	if s.analyzer != nil {
		analyzed, err := s.analyzer.Analyze(ctx, bytes.NewReader(data), doc.ContentType)
		switch {
		case errors.Is(err, docai.ErrUnsupportedContentType):
			s.logger.Printf("fillai: analyzer cannot read %s (%s), continuing without spans", doc.Filename, doc.ContentType)
		case err != nil:
			return doc, schema.FieldSchema{}, nil, nil, false, fmt.Errorf("analyzing form: %w", err)
		default:
			result = analyzed
		}
	}

	fields, positions := s.extractor.Extract(result, s.fieldHints(ctx, result))

	rec, found := s.store.Lookup(override.Identity{Hash: doc.Hash, Filename: doc.Filename})
	merged, mergedPos, prefilled := override.Merge(fields, positions, rec)
	return doc, merged, mergedPos, prefilled, found, nil
}

// fieldHints asks the language collaborator to refine field kinds from the
// raw span text. Failures just mean no hints.
func (s *Service) fieldHints(ctx context.Context, result *docai.Result) []llm.FieldHint {
	if s.llmClient == nil || result == nil || len(result.Spans) == 0 {
		return nil
	}
	var b strings.Builder
	for _, span := range result.Spans {
		b.WriteString(span.Text)
		b.WriteByte('\n')
	}
	resp, err := s.llmClient.Complete(ctx, llm.Request{Task: llm.TaskFieldHints, Text: b.String()})
	if err != nil {
		s.logger.Printf("fillai: field hints unavailable: %v", err)
		return nil
	}
	return resp.Fields
}

// collectPrompts waits briefly for the engine goroutine to emit its next
// prompt so tool callers see the question in the same response.
func (s *Service) collectPrompts(channel *conversation.MemoryChannel) []string {
	deadline := time.Now().Add(promptWait)
	for {
		if prompts := channel.DrainPrompts(); len(prompts) > 0 {
			return prompts
		}
		if time.Now().After(deadline) {
			return nil
		}
		time.Sleep(20 * time.Millisecond)
	}
}

// release forgets a session the service no longer needs to render. The
// engine keeps its own record, but long-running servers should not hold
// page geometry for sessions that are already done.
func (s *Service) release(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

func (s *Service) session(id string) (*sessionContext, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, conversation.ErrSessionNotFound
	}
	return sess, nil
}

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	return img, err
}
