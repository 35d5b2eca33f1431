package api

import (
	"context"
	"sync"

	"github.com/luispater/webdriverkit/internal/driver"
	"github.com/luispater/webdriverkit/internal/runner"
	log "github.com/sirupsen/logrus"
)

// ScenarioProcessor runs queued scenarios on the shared driver
type ScenarioProcessor struct {
	mu     sync.Mutex
	driver *driver.Driver
	runner *runner.RunnerManager
}

func NewScenarioProcessor(d *driver.Driver, r *runner.RunnerManager) *ScenarioProcessor {
	return &ScenarioProcessor{
		driver: d,
		runner: r,
	}
}

// ProcessTask starts the browser when needed and runs the task's scenario
// with fresh variables.
func (p *ScenarioProcessor) ProcessTask(ctx context.Context, task *RequestTask) *TaskResponse {
	p.mu.Lock()
	defer p.mu.Unlock()

	log.Debugf("Starting to process task %s (%s)", task.ID, task.Scenario)
	if !p.driver.IsInitialized() {
		if err := p.driver.Init(ctx); err != nil {
			return &TaskResponse{Error: err}
		}
	}

	p.runner.Reset()
	for name, value := range task.Variables {
		p.runner.SetVariable(name, value, "request")
	}
	err := p.runner.Run(ctx, task.Scenario)
	return &TaskResponse{
		Success: err == nil,
		Error:   err,
		Results: p.runner.Results(),
	}
}
