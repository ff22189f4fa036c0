package session

import (
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/wxo-labs/studio/internal/form"
	"github.com/wxo-labs/studio/internal/tool"
)

// Deps are the collaborators a controller needs. Sink is required; the rest
// may be nil, disabling the commands that depend on them.
type Deps struct {
	Remote    RemoteAPI
	Invoker   Invoker
	Dialog    FileDialog
	Clipboard Clipboard
	Diff      DiffViewer
	HTTP      *http.Client
	APIKey    string
	Sink      Sink
	Log       zerolog.Logger
}

// Controller owns the open editor sessions. Sessions are keyed by entity id:
// opening an id that is already open replaces that session's state in place,
// so one entity never has two live editors.
type Controller struct {
	mu       sync.Mutex
	sessions map[string]*Session
	deps     Deps
}

// NewController builds a controller.
func NewController(deps Deps) *Controller {
	if deps.Sink == nil {
		deps.Sink = func(Event) {}
	}
	if deps.HTTP == nil {
		deps.HTTP = &http.Client{Timeout: 30 * time.Second}
	}
	return &Controller{sessions: map[string]*Session{}, deps: deps}
}

// Open returns the session for id, creating it or replacing its state. The
// remoteID ties an edit session to its persisted record; it is empty for
// create sessions.
func (c *Controller) Open(id string, mode form.Mode, doc *tool.Document, remoteID string) *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.sessions[id]; ok {
		s.replace(mode, doc, remoteID)
		return s
	}
	s := &Session{
		id:       id,
		mode:     mode,
		doc:      doc,
		engine:   form.NewEngine(mode, doc),
		remoteID: remoteID,
		ctrl:     c,
	}
	c.sessions[id] = s
	return s
}

// Get returns the open session for id, or nil.
func (c *Controller) Get(id string) *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessions[id]
}

// Close discards the session for id.
func (c *Controller) Close(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, id)
}

// Len reports the number of open sessions.
func (c *Controller) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sessions)
}

// Session is one open editor. Commands mutate the session's document and
// report through the controller's sink; they never push state directly into
// the editor surface except via events.
type Session struct {
	mu       sync.Mutex
	id       string
	mode     form.Mode
	doc      *tool.Document
	engine   *form.Engine
	remoteID string
	saving   bool
	ctrl     *Controller
}

// ID returns the session's entity id.
func (s *Session) ID() string { return s.id }

// RemoteID returns the persisted record id, or "" before first save.
func (s *Session) RemoteID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remoteID
}

// Document returns the live document.
func (s *Session) Document() *tool.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc
}

// Engine returns the form engine bound to the live document.
func (s *Session) Engine() *form.Engine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine
}

func (s *Session) replace(mode form.Mode, doc *tool.Document, remoteID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = mode
	s.doc = doc
	s.engine = form.NewEngine(mode, doc)
	s.remoteID = remoteID
}

func (s *Session) setDocument(doc *tool.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc = doc
	s.engine = form.NewEngine(s.mode, doc)
}

func (s *Session) emit(t EventType, payload any) {
	s.ctrl.deps.Sink(Event{Type: t, SessionID: s.id, Payload: payload})
}

func (s *Session) fail(op string, err error) {
	s.ctrl.deps.Log.Error().Err(err).Str("session", s.id).Str("op", op).Msg("command failed")
	s.emit(EventError, ErrorPayload{Op: op, Message: err.Error()})
}

// pushJSON re-renders the document and pushes it to the editor surface.
func (s *Session) pushJSON() {
	s.mu.Lock()
	doc := s.doc
	s.mu.Unlock()
	data, err := doc.Marshal()
	if err != nil {
		s.fail("render", err)
		return
	}
	s.emit(EventUpdateJSON, string(data))
}
