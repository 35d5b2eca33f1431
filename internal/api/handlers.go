package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/luispater/webdriverkit/internal/driver"
	"github.com/luispater/webdriverkit/internal/runner"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// APIHandlers contains the handlers for API endpoints
type APIHandlers struct {
	queue   *RequestQueue
	driver  *driver.Driver
	runner  *runner.RunnerManager
	timeout time.Duration
}

// NewAPIHandlers creates a new API handlers instance
func NewAPIHandlers(queue *RequestQueue, d *driver.Driver, r *runner.RunnerManager, timeout time.Duration) *APIHandlers {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &APIHandlers{
		queue:   queue,
		driver:  d,
		runner:  r,
		timeout: timeout,
	}
}

func errorJSON(c *gin.Context, status int, errType string, format string, args ...any) {
	c.JSON(status, ErrorResponse{
		Error: ErrorDetail{
			Message: fmt.Sprintf(format, args...),
			Type:    errType,
		},
	})
}

// TakeScreenshot streams a PNG of the current page
func (h *APIHandlers) TakeScreenshot(c *gin.Context) {
	screenshot, err := h.driver.Screenshot(c.Request.Context())
	if errors.Is(err, driver.ErrNotInitialized) {
		errorJSON(c, http.StatusServiceUnavailable, "server_error", "browser is not running")
		return
	}
	if err != nil {
		errorJSON(c, http.StatusInternalServerError, "server_error", "screenshot failed: %v", err)
		return
	}
	c.Header("Cache-Control", "no-cache")
	c.Data(http.StatusOK, "image/png", screenshot)
}

// ListScenarios returns the loaded scenario names
func (h *APIHandlers) ListScenarios(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"scenarios": h.runner.Scenarios()})
}

// RunScenario queues a scenario run and waits for its outcome. The optional
// body is {"variables": {...}}.
func (h *APIHandlers) RunScenario(c *gin.Context) {
	name := c.Param("name")
	if !h.runner.HasScenario(name) {
		errorJSON(c, http.StatusNotFound, "invalid_request_error", "unknown scenario %q", name)
		return
	}

	rawJson, err := c.GetRawData()
	if err != nil {
		errorJSON(c, http.StatusBadRequest, "invalid_request_error", "Invalid request: %v", err)
		return
	}
	variables, err := parseVariables(rawJson)
	if err != nil {
		errorJSON(c, http.StatusBadRequest, "invalid_request_error", "Invalid request: %v", err)
		return
	}

	task := &RequestTask{
		ID:        uuid.New().String(),
		Scenario:  name,
		Variables: variables,
		Response:  make(chan *TaskResponse, 1),
		CreatedAt: time.Now(),
		Context:   c.Request.Context(),
	}
	if err = h.queue.AddTask(task); err != nil {
		errorJSON(c, http.StatusServiceUnavailable, "server_error", "Failed to queue request: %v", err)
		return
	}

	select {
	case response := <-task.Response:
		status := http.StatusOK
		if !response.Success {
			status = http.StatusInternalServerError
		}
		c.Data(status, "application/json; charset=utf-8", renderResponse(task, response))
	case <-c.Request.Context().Done():
		log.Debugf("Client disconnected while task %s was pending", task.ID)
	case <-time.After(h.timeout):
		errorJSON(c, http.StatusRequestTimeout, "timeout_error", "Request timeout")
	}
}

func parseVariables(rawJson []byte) (map[string]any, error) {
	variables := make(map[string]any)
	if len(strings.TrimSpace(string(rawJson))) == 0 {
		return variables, nil
	}
	if !gjson.ValidBytes(rawJson) {
		return nil, errors.New("body is not valid JSON")
	}
	vars := gjson.GetBytes(rawJson, "variables")
	if !vars.Exists() {
		return variables, nil
	}
	if !vars.IsObject() {
		return nil, errors.New("variables must be an object")
	}
	vars.ForEach(func(key, value gjson.Result) bool {
		variables[key.String()] = value.Value()
		return true
	})
	return variables, nil
}

// renderResponse builds {"id","scenario","success","error","results"}.
func renderResponse(task *RequestTask, response *TaskResponse) []byte {
	out := []byte(`{}`)
	out, _ = sjson.SetBytes(out, "id", task.ID)
	out, _ = sjson.SetBytes(out, "scenario", task.Scenario)
	out, _ = sjson.SetBytes(out, "success", response.Success)
	if response.Error != nil {
		out, _ = sjson.SetBytes(out, "error", response.Error.Error())
	} else {
		out, _ = sjson.SetBytes(out, "error", nil)
	}
	out, _ = sjson.SetRawBytes(out, "results", []byte(`{}`))
	for name, result := range response.Results {
		path := "results." + escapePath(name)
		var value any = result.Value
		if err, ok := value.(error); ok {
			value = err.Error()
		}
		next, err := sjson.SetBytes(out, path, value)
		if err != nil {
			next, _ = sjson.SetBytes(out, path, fmt.Sprint(value))
		}
		out = next
	}
	out, _ = sjson.SetBytes(out, "duration_ms", response.Duration.Milliseconds())
	return out
}

// escapePath quotes the characters sjson treats as path syntax.
func escapePath(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch r {
		case '.', '*', '?':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
