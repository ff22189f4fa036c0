package session

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/wxo-labs/studio/internal/export"
	"github.com/wxo-labs/studio/internal/form"
	"github.com/wxo-labs/studio/internal/infer"
	"github.com/wxo-labs/studio/internal/localtest"
	"github.com/wxo-labs/studio/internal/oas"
	"github.com/wxo-labs/studio/internal/orchestrate"
	"github.com/wxo-labs/studio/internal/tool"
)

// ErrSaveInProgress is returned when a save command arrives while a previous
// save is still pending. The new command is ignored, not queued.
var ErrSaveInProgress = errors.New("a save is already in progress")

var errNotOpenAPI = errors.New("this command requires an OpenAPI document")

// LoadTemplate replaces the document with the starter template.
func (s *Session) LoadTemplate() {
	doc, err := tool.Detect([]byte(oas.Template))
	if err != nil {
		s.fail("loadTemplate", err)
		return
	}
	s.setDocument(doc)
	s.pushJSON()
}

// ImportFile loads an external definition from path, or from a file dialog
// when path is empty. Swagger 2.0 input is converted on the way in.
func (s *Session) ImportFile(ctx context.Context, path string) {
	if path == "" {
		if s.ctrl.deps.Dialog == nil {
			s.fail("importFile", errors.New("no file dialog available"))
			return
		}
		picked, err := s.ctrl.deps.Dialog.PickOpenPath(ctx)
		if err != nil {
			s.fail("importFile", err)
			return
		}
		if picked == "" {
			return
		}
		path = picked
	}

	data, err := oas.Import(ctx, path)
	if err != nil {
		s.fail("importFile", err)
		return
	}
	doc, err := tool.Detect(data)
	if err != nil {
		s.fail("importFile", err)
		return
	}
	s.setDocument(doc)
	s.pushJSON()
	s.emit(EventValidationResult, tool.Validate(data))
}

// ExportOpenAPI writes the current document to path, or to a save dialog
// choice when path is empty.
func (s *Session) ExportOpenAPI(ctx context.Context, path string) {
	if path == "" {
		if s.ctrl.deps.Dialog == nil {
			s.fail("exportOpenAPI", errors.New("no file dialog available"))
			return
		}
		suggested := s.suggestedFilename()
		picked, err := s.ctrl.deps.Dialog.PickSavePath(ctx, suggested)
		if err != nil {
			s.fail("exportOpenAPI", err)
			return
		}
		if picked == "" {
			return
		}
		path = picked
	}
	if _, err := export.Export(s.Document(), export.Options{OutPath: path, Force: true}); err != nil {
		s.fail("exportOpenAPI", err)
	}
}

func (s *Session) suggestedFilename() string {
	name := strings.TrimSpace(s.Engine().Fields().Name)
	name = form.SanitizeName(name)
	if name == "" {
		name = "tool"
	}
	return name + ".json"
}

// ViewDiff shows the editor's unsaved text against the session's current
// document.
func (s *Session) ViewDiff(ctx context.Context, edited []byte) {
	if s.ctrl.deps.Diff == nil {
		s.fail("viewDiff", errors.New("no diff viewer available"))
		return
	}
	before, err := s.Document().Marshal()
	if err != nil {
		s.fail("viewDiff", err)
		return
	}
	if err := s.ctrl.deps.Diff.ShowDiff(ctx, s.id, before, edited); err != nil {
		s.fail("viewDiff", err)
	}
}

// ValidateJSON validates raw editor text and reports the result.
func (s *Session) ValidateJSON(raw []byte) tool.ValidationResult {
	res := tool.Validate(raw)
	s.emit(EventValidationResult, res)
	return res
}

// ApplyJSON replaces the document with edited text from the editor surface.
// Malformed JSON is rejected with an error event and the document stands.
func (s *Session) ApplyJSON(raw []byte) error {
	doc, err := tool.Detect(raw)
	if err != nil {
		s.fail("applyJson", err)
		return err
	}
	s.setDocument(doc)
	return nil
}

// Save persists the document. In create mode the document is compiled and
// posted; a successful create turns the session into an edit session over the
// returned record. In edit mode only the mutable metadata is sent.
//
// Validation errors block the save unless override is set. A save arriving
// while one is pending is rejected with ErrSaveInProgress.
func (s *Session) Save(ctx context.Context, override bool) error {
	s.mu.Lock()
	if s.saving {
		s.mu.Unlock()
		s.fail("save", ErrSaveInProgress)
		return ErrSaveInProgress
	}
	s.saving = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.saving = false
		s.mu.Unlock()
	}()

	if s.ctrl.deps.Remote == nil {
		err := errors.New("no remote service configured")
		s.fail("save", err)
		return err
	}

	engine := s.Engine()
	engine.Sync()
	doc := s.Document()

	data, err := doc.Marshal()
	if err != nil {
		s.fail("save", err)
		return err
	}
	res := tool.Validate(data)
	s.emit(EventValidationResult, res)
	if !res.OK() && !override {
		return nil
	}

	if s.mode == form.ModeCreate {
		return s.saveCreate(ctx, engine, doc)
	}
	return s.saveUpdate(ctx, engine)
}

func (s *Session) saveCreate(ctx context.Context, engine *form.Engine, doc *tool.Document) error {
	var bound *tool.Bound
	if doc.Kind == tool.KindBound {
		bound = doc.Bound
	} else {
		f := engine.Fields()
		meta := tool.Meta{
			Name:         form.SanitizeName(f.Name),
			DisplayName:  f.DisplayName,
			Description:  f.Description,
			Permission:   f.Permission,
			Restrictions: f.Restrictions,
			Tags:         f.Tags,
		}
		if meta.Permission == "" {
			meta.Permission = tool.PermissionReadOnly
		}
		compiled, err := tool.Compile(meta, doc.OpenAPI)
		if err != nil {
			s.fail("save", err)
			return err
		}
		bound = compiled
	}

	created, err := s.ctrl.deps.Remote.CreateTool(ctx, bound)
	if err != nil {
		s.fail("save", err)
		return err
	}

	remoteID := created.ID
	if remoteID == "" {
		remoteID = created.Name
	}
	s.replace(form.ModeEdit, &tool.Document{Kind: tool.KindBound, Bound: created}, remoteID)
	s.pushJSON()
	return nil
}

func (s *Session) saveUpdate(ctx context.Context, engine *form.Engine) error {
	f := engine.Fields()
	payload := orchestrate.ToolUpdate{
		DisplayName:  f.DisplayName,
		Description:  f.Description,
		Permission:   f.Permission,
		Restrictions: f.Restrictions,
		Tags:         f.Tags,
	}
	if err := s.ctrl.deps.Remote.UpdateTool(ctx, s.RemoteID(), payload); err != nil {
		s.fail("save", err)
		return err
	}
	return nil
}

// Delete removes the persisted record and closes the session.
func (s *Session) Delete(ctx context.Context) error {
	if s.ctrl.deps.Remote == nil {
		err := errors.New("no remote service configured")
		s.fail("delete", err)
		return err
	}
	id := s.RemoteID()
	if id == "" {
		err := errors.New("nothing to delete: the tool was never saved")
		s.fail("delete", err)
		return err
	}
	if err := s.ctrl.deps.Remote.DeleteTool(ctx, id); err != nil {
		s.fail("delete", err)
		return err
	}
	s.ctrl.Close(s.id)
	return nil
}

// TestLocal calls the tool's endpoint directly and folds the observed
// response back into the document's response schema.
func (s *Session) TestLocal(ctx context.Context, overrides map[string]string) {
	doc := s.Document()
	if doc.Kind != tool.KindOpenAPI {
		s.fail("testLocal", errNotOpenAPI)
		return
	}
	s.Engine().Sync()

	rec, err := localtest.BuildRequest(doc.OpenAPI, localtest.Options{
		APIKey:    s.ctrl.deps.APIKey,
		Overrides: overrides,
	})
	if err != nil {
		s.fail("testLocal", err)
		return
	}
	runner := localtest.NewRunner(s.ctrl.deps.HTTP, s.ctrl.deps.Log)
	resp, err := runner.Run(ctx, rec)
	if err != nil {
		s.fail("testLocal", err)
		return
	}

	if resp.Status < 300 && len(resp.Body) > 0 {
		s.applyObservedResponse(doc.OpenAPI, resp.Body)
		s.pushJSON()
	}
	s.emit(EventTestResult, LocalTestPayload{
		Status: resp.Status,
		Body:   string(resp.Body),
		Curl:   localtest.RenderCurl(rec, true),
	})
}

// applyObservedResponse regenerates the 200 response schema from an observed
// body.
func (s *Session) applyObservedResponse(doc *oas.Document, body []byte) {
	_, _, op, ok := doc.FirstOperation()
	if !ok {
		return
	}
	schema, err := json.Marshal(infer.Infer(body))
	if err != nil {
		return
	}
	if op.Responses == nil {
		op.Responses = map[string]*oas.Response{}
	}
	resp := op.Responses["200"]
	if resp == nil {
		resp = &oas.Response{Description: "Successful response"}
		op.Responses["200"] = resp
	}
	if resp.Content == nil {
		resp.Content = map[string]*oas.MediaType{}
	}
	mt := resp.Content["application/json"]
	if mt == nil {
		mt = &oas.MediaType{}
		resp.Content["application/json"] = mt
	}
	mt.Schema = schema
}

// CopyCurl puts a credential-masked curl command for the tool's request on
// the clipboard.
func (s *Session) CopyCurl(_ context.Context) {
	if s.ctrl.deps.Clipboard == nil {
		s.fail("copyCurl", errors.New("no clipboard available"))
		return
	}
	doc := s.Document()
	if doc.Kind != tool.KindOpenAPI {
		s.fail("copyCurl", errNotOpenAPI)
		return
	}
	rec, err := localtest.BuildRequest(doc.OpenAPI, localtest.Options{APIKey: s.ctrl.deps.APIKey})
	if err != nil {
		s.fail("copyCurl", err)
		return
	}
	if err := s.ctrl.deps.Clipboard.WriteText(localtest.RenderCurl(rec, true)); err != nil {
		s.fail("copyCurl", err)
	}
}

// TestRemote invokes the persisted tool through the orchestration service.
func (s *Session) TestRemote(ctx context.Context, params map[string]any, verbose bool) {
	if s.ctrl.deps.Invoker == nil {
		s.fail("testRemote", errors.New("no remote service configured"))
		return
	}
	id := s.RemoteID()
	if id == "" {
		s.fail("testRemote", errors.New("save the tool before testing it remotely"))
		return
	}
	res, err := s.ctrl.deps.Invoker.InvokeTool(ctx, id, params, verbose)
	if err != nil {
		s.fail("testRemote", err)
		return
	}
	s.emit(EventTestRemoteResult, RemoteTestPayload{
		State:     res.State,
		Output:    res.Output,
		Reasoning: res.Reasoning,
		Attempts:  res.Attempts,
	})
}

// Chat sends one message to an agent and reports its reply.
func (s *Session) Chat(ctx context.Context, agentID, message string, verbose bool) {
	if s.ctrl.deps.Invoker == nil {
		s.fail("chat", errors.New("no remote service configured"))
		return
	}
	res, err := s.ctrl.deps.Invoker.ChatAgent(ctx, agentID, message, verbose)
	if err != nil {
		s.fail("chat", err)
		return
	}
	s.emit(EventChatResponse, RemoteTestPayload{
		State:     res.State,
		Output:    res.Output,
		Reasoning: res.Reasoning,
		Attempts:  res.Attempts,
	})
}

// FetchAndGenerate calls an arbitrary URL and generates a fresh OpenAPI
// document from the observed exchange.
func (s *Session) FetchAndGenerate(ctx context.Context, rawURL, apiKeyParam string) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		s.fail("fetchAndGenerate", errors.New("a full http(s) URL is required"))
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		s.fail("fetchAndGenerate", err)
		return
	}
	resp, err := s.ctrl.deps.HTTP.Do(req)
	if err != nil {
		s.fail("fetchAndGenerate", err)
		return
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	resp.Body.Close()
	if err != nil {
		s.fail("fetchAndGenerate", err)
		return
	}

	params := map[string]string{}
	for name, vals := range u.Query() {
		if len(vals) > 0 {
			params[name] = vals[0]
		}
	}

	info := oas.FetchServiceInfo(ctx, u.Scheme+"://"+u.Host, s.ctrl.deps.HTTP, s.ctrl.deps.Log)
	built := oas.Build(oas.BuildRequest{
		Service:      info,
		URL:          u,
		Method:       "GET",
		Params:       params,
		ResponseBody: body,
		APIKeyParam:  apiKeyParam,
	})
	s.setDocument(&tool.Document{Kind: tool.KindOpenAPI, OpenAPI: built})
	s.pushJSON()
}

// GenerateDocument folds the parameter table back into the document and
// pushes the re-rendered text.
func (s *Session) GenerateDocument() {
	s.Engine().Sync()
	s.pushJSON()
}
