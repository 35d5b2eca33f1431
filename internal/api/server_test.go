package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/luispater/webdriverkit/internal/browser"
	"github.com/luispater/webdriverkit/internal/browser/browsertest"
	"github.com/luispater/webdriverkit/internal/driver"
	"github.com/luispater/webdriverkit/internal/runner"
	"github.com/luispater/webdriverkit/internal/wait"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

const searchScenario = `
workflow:
  - index: 1
    action: SendKeys
    params: ["name=q", "#query#", "0"]
  - index: 2
    action: Value
    params: ["name=q", "0"]
    result:
      - result_index: 0
        name: typed
        type: string
`

const failingScenario = `
workflow:
  - index: 1
    action: AlwaysTrue
    result:
      - result_index: 0
        type: bool
        policy:
          is_true: FAILED
`

type fixture struct {
	session *browsertest.Session
	driver  *driver.Driver
	server  *Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "search.yaml"), []byte(searchScenario), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yml"), []byte(failingScenario), 0o644))

	s := browsertest.NewSession()
	s.Put(browser.Name("q"), browsertest.NewElement("input"))
	d := driver.New(driver.Options{
		Factory:       s.Factory(),
		ScreenshotDir: t.TempDir(),
		Wait:          wait.Config{Timeout: 100 * time.Millisecond, PollFrequency: 10 * time.Millisecond},
	})
	t.Cleanup(func() { _ = d.Quit() })
	r, err := runner.NewRunnerManager(dir, d, false)
	require.NoError(t, err)

	srv := NewServer(&ServerConfig{Port: "0", Debug: true}, d, r)
	require.NoError(t, srv.StartQueue())
	t.Cleanup(func() { _ = srv.queue.Stop() })
	return &fixture{session: s, driver: d, server: srv}
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(w, req)
	return w
}

func TestRootAndList(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "POST /v1/scenarios/:name")
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	w = f.do(http.MethodGet, "/v1/scenarios", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"scenarios":["broken","search"]}`, w.Body.String())

	w = f.do(http.MethodOptions, "/v1/scenarios", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRunScenario(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/v1/scenarios/search", `{"variables":{"query":"golang"}}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := w.Body.Bytes()
	_, err := uuid.Parse(gjson.GetBytes(body, "id").String())
	assert.NoError(t, err)
	assert.Equal(t, "search", gjson.GetBytes(body, "scenario").String())
	assert.True(t, gjson.GetBytes(body, "success").Bool())
	assert.Equal(t, gjson.Null, gjson.GetBytes(body, "error").Type)
	assert.Equal(t, "golang", gjson.GetBytes(body, "results.typed").String())
	assert.Equal(t, "golang", gjson.GetBytes(body, "results.query").String())
	assert.True(t, f.driver.IsInitialized(), "the browser starts with the first run")
}

func TestRunScenarioFailure(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/v1/scenarios/broken", "")
	require.Equal(t, http.StatusInternalServerError, w.Code)
	body := w.Body.Bytes()
	assert.False(t, gjson.GetBytes(body, "success").Bool())
	assert.Contains(t, gjson.GetBytes(body, "error").String(), runner.ErrWorkflowFailed.Error())
}

func TestRunScenarioRejectsBadRequests(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/v1/scenarios/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(http.MethodPost, "/v1/scenarios/search", `{"variables":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodPost, "/v1/scenarios/search", `{"variables":[1,2]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "variables must be an object")
}

func TestScreenshot(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/v1/screenshot", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	require.NoError(t, f.driver.Init(context.Background()))
	w = f.do(http.MethodGet, "/v1/screenshot", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, browsertest.PNG, w.Body.Bytes())

	f.session.SetScreenshotError(browsertest.ErrScripted)
	w = f.do(http.MethodGet, "/v1/screenshot", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRenderResponseEscapesNames(t *testing.T) {
	task := &RequestTask{ID: "id-1", Scenario: "s"}
	out := renderResponse(task, &TaskResponse{
		Success: true,
		Results: map[string]runner.RunnerResult{
			"a.b":  {Value: 1, Type: "int"},
			"err":  {Value: errors.New("boom"), Type: "error"},
			"none": {Value: nil, Type: "error"},
		},
	})
	assert.Equal(t, int64(1), gjson.GetBytes(out, `results.a\.b`).Int())
	assert.Equal(t, "boom", gjson.GetBytes(out, "results.err").String())
	assert.Equal(t, gjson.Null, gjson.GetBytes(out, "results.none").Type)
}

type blockingProcessor struct {
	started chan struct{}
	release chan struct{}
}

func (p *blockingProcessor) ProcessTask(ctx context.Context, _ *RequestTask) *TaskResponse {
	p.started <- struct{}{}
	select {
	case <-ctx.Done():
		return &TaskResponse{Error: ctx.Err()}
	case <-p.release:
		return &TaskResponse{Success: true}
	}
}

func newTask(id string) *RequestTask {
	return &RequestTask{ID: id, Response: make(chan *TaskResponse, 1), Context: context.Background()}
}

func TestQueueIsSerialAndBounded(t *testing.T) {
	p := &blockingProcessor{started: make(chan struct{}, 2), release: make(chan struct{})}
	q := NewRequestQueue(p, 1)

	assert.ErrorIs(t, q.AddTask(newTask("early")), ErrQueueNotRunning)
	require.NoError(t, q.Start())
	assert.Error(t, q.Start())

	first := newTask("first")
	require.NoError(t, q.AddTask(first))
	<-p.started

	second := newTask("second")
	require.NoError(t, q.AddTask(second))
	assert.ErrorIs(t, q.AddTask(newTask("third")), ErrQueueFull)

	close(p.release)
	assert.True(t, (<-first.Response).Success)
	assert.True(t, (<-second.Response).Success)

	require.NoError(t, q.Stop())
	assert.False(t, q.IsRunning())
	assert.ErrorIs(t, q.Stop(), ErrQueueNotRunning)
}

func TestQueueStopCancelsRunningTask(t *testing.T) {
	p := &blockingProcessor{started: make(chan struct{}, 1), release: make(chan struct{})}
	q := NewRequestQueue(p, 4)
	require.NoError(t, q.Start())

	task := newTask("long")
	require.NoError(t, q.AddTask(task))
	<-p.started

	require.NoError(t, q.Stop())
	response := <-task.Response
	assert.ErrorIs(t, response.Error, context.Canceled)
}

func TestCallerContextCancelsTask(t *testing.T) {
	p := &blockingProcessor{started: make(chan struct{}, 1), release: make(chan struct{})}
	q := NewRequestQueue(p, 4)
	require.NoError(t, q.Start())
	t.Cleanup(func() { _ = q.Stop() })

	ctx, cancel := context.WithCancel(context.Background())
	task := newTask("caller")
	task.Context = ctx
	require.NoError(t, q.AddTask(task))
	<-p.started
	cancel()

	response := <-task.Response
	assert.ErrorIs(t, response.Error, context.Canceled)
}
