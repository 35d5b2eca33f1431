// Package runner executes YAML scenarios: ordered workflows of method
// actions with result policies, failbacks and shared variables.
package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/luispater/webdriverkit/internal/driver"
	"github.com/luispater/webdriverkit/internal/method"
	log "github.com/sirupsen/logrus"
)

var (
	ErrScenarioNotFound = errors.New("scenario not found")
	ErrWorkflowFailed   = errors.New("workflow failed")

	errBreak      = errors.New("break")
	errLoopParent = errors.New("loop parent")
)

const maxScenarioDepth = 16

var (
	methodType  = reflect.TypeOf((*method.Method)(nil))
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()

	variablePattern = regexp.MustCompile(`#([A-Za-z0-9_.-]+)#`)
)

type RunnerResult struct {
	Value any
	Type  string
}

type RunnerManager struct {
	dir    string
	driver *driver.Driver
	method *method.Method
	debug  bool

	mu      sync.Mutex
	configs map[string]Configuration
	paths   map[string]string
	results map[string]RunnerResult
	depth   int
}

// NewRunnerManager loads every scenario in dir. In debug mode the files are
// reloaded before each run.
func NewRunnerManager(dir string, d *driver.Driver, debug bool) (*RunnerManager, error) {
	rm := &RunnerManager{
		dir:     dir,
		driver:  d,
		method:  method.NewMethod(d),
		debug:   debug,
		configs: make(map[string]Configuration),
		paths:   make(map[string]string),
		results: make(map[string]RunnerResult),
	}
	if err := rm.LoadConfigurations(); err != nil {
		return nil, err
	}
	return rm, nil
}

func (rm *RunnerManager) SetVariable(name string, value any, valueType string) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.results[name] = RunnerResult{
		Value: value,
		Type:  valueType,
	}
}

func (rm *RunnerManager) Variable(name string) (any, bool) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	r, ok := rm.results[name]
	return r.Value, ok
}

// Results returns a copy of the stored variables.
func (rm *RunnerManager) Results() map[string]RunnerResult {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	out := make(map[string]RunnerResult, len(rm.results))
	for k, v := range rm.results {
		out[k] = v
	}
	return out
}

// Reset forgets every stored variable.
func (rm *RunnerManager) Reset() {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.results = make(map[string]RunnerResult)
}

// Scenarios lists the loaded scenario names in order.
func (rm *RunnerManager) Scenarios() []string {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	names := make([]string, 0, len(rm.configs))
	for name := range rm.configs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (rm *RunnerManager) HasScenario(name string) bool {
	_, ok := rm.configuration(name)
	return ok
}

func (rm *RunnerManager) configuration(name string) (Configuration, bool) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	cfg, ok := rm.configs[name]
	return cfg, ok
}

func (rm *RunnerManager) LoadConfiguration(name, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var cfg Configuration
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return err
	}
	if err = validateWorkflow(cfg.Workflow); err != nil {
		return err
	}

	rm.mu.Lock()
	rm.configs[name] = cfg
	rm.paths[name] = path
	rm.mu.Unlock()
	return nil
}

// LoadFile registers the scenario at path under its file name and returns that name.
func (rm *RunnerManager) LoadFile(path string) (string, error) {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if err := rm.LoadConfiguration(name, path); err != nil {
		return "", fmt.Errorf("failed to load configuration file %s: %w", path, err)
	}
	return name, nil
}

// LoadConfigurations scans all yaml files in the scenario directory and
// registers each by file name.
func (rm *RunnerManager) LoadConfigurations() error {
	if rm.dir == "" {
		return nil
	}
	yamlFiles, err := filepath.Glob(filepath.Join(rm.dir, "*.yaml"))
	if err != nil {
		return fmt.Errorf("failed to scan yaml files: %w", err)
	}
	ymlFiles, err := filepath.Glob(filepath.Join(rm.dir, "*.yml"))
	if err != nil {
		return fmt.Errorf("failed to scan yml files: %w", err)
	}

	allFiles := append(yamlFiles, ymlFiles...)
	for _, filePath := range allFiles {
		name, errLoad := rm.LoadFile(filePath)
		if errLoad != nil {
			return errLoad
		}
		log.Debugf("Loaded configuration file: %s -> %s", name, filePath)
	}

	log.Debugf("Total loaded %d configuration files", len(allFiles))
	return nil
}

func (rm *RunnerManager) reload() {
	rm.mu.Lock()
	paths := make(map[string]string, len(rm.paths))
	for k, v := range rm.paths {
		paths[k] = v
	}
	rm.mu.Unlock()
	for name, path := range paths {
		if err := rm.LoadConfiguration(name, path); err != nil {
			log.Warnf("Reload configuration file %s failed: %v", path, err)
		}
	}
}

// Run executes the named scenario. Scenario variables only fill names that
// are not set yet.
func (rm *RunnerManager) Run(ctx context.Context, name string) (err error) {
	if rm.debug {
		rm.reload()
	}
	cfg, ok := rm.configuration(name)
	if !ok {
		return fmt.Errorf("%s: %w", name, ErrScenarioNotFound)
	}
	for k, v := range cfg.Variables {
		if _, set := rm.Variable(k); !set {
			rm.SetVariable(k, v, kindName(v))
		}
	}

	done := rm.driver.Steps().Begin(log.InfoLevel, "scenario "+name)
	defer func() { done(err) }()

	err = rm.runWorkflow(ctx, 0, cfg.Workflow, nil)
	if errors.Is(err, errLoopParent) {
		return fmt.Errorf("%s: %s used outside a nested workflow: %w", name, PolicyLoopParent, ErrWorkflowFailed)
	}
	return err
}

func (rm *RunnerManager) runWorkflow(ctx context.Context, level int, workflows []ConfigurationWorkflow, doWorkflowIndex []int) error {
	for i := range workflows {
		workflow := &workflows[i]
		if len(doWorkflowIndex) > 0 && !slices.Contains(doWorkflowIndex, workflow.Index) {
			log.Debugf("workflow Index: %d, level: %d not in %v, skip", workflow.Index, level, doWorkflowIndex)
			continue
		}
		log.Debugf("execute workflow Index: %d, level: %d", workflow.Index, level)
		err := rm.runEntry(ctx, level, workflow)
		if errors.Is(err, errBreak) {
			log.Debugf("break at workflow Index: %d, level: %d", workflow.Index, level)
			return nil
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// runEntry runs one workflow entry, rerunning it while a LOOP policy, a
// nested LOOP-PARENT or a successful failback asks for it.
func (rm *RunnerManager) runEntry(ctx context.Context, level int, workflow *ConfigurationWorkflow) error {
	maxReruns := max(workflow.Retry, 1)
	for reruns := 0; ; reruns++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if reruns > maxReruns {
			return fmt.Errorf("%s: gave up after %d reruns: %w", workflow.label(), maxReruns, ErrWorkflowFailed)
		}
		rerun, err := rm.runOnce(ctx, level, workflow)
		if err != nil || !rerun {
			return err
		}
		log.Debugf("rerun workflow Index: %d (%d/%d)", workflow.Index, reruns+1, maxReruns)
	}
}

func (rm *RunnerManager) runOnce(ctx context.Context, level int, workflow *ConfigurationWorkflow) (bool, error) {
	if workflow.Action == ActionDoScenario {
		return false, rm.doScenario(ctx, rm.substitute(workflow.Params[0]))
	}

	results, err := rm.executeStep(ctx, workflow)
	if err != nil {
		if workflow.Failback == nil {
			return false, err
		}
		log.Warnf("execute workflow %s failed, running failback %s: %v", workflow.Action, workflow.Failback.Action, err)
		if errFailback := rm.runEntry(ctx, level, workflow.Failback); errFailback != nil {
			if errors.Is(errFailback, errBreak) {
				return false, errBreak
			}
			return false, fmt.Errorf("%w (failback: %v)", err, errFailback)
		}
		return true, nil
	}

	doWorkflow := false
	doFailback := false
	arrayWorkflowIndex := make([]int, 0)
	for _, result := range workflow.Result {
		value := valueOf(results[result.ResultIndex])
		if result.Name != "" {
			log.Debugf("store result to variable #%s#", result.Name)
			rm.SetVariable(result.Name, value, result.Type)
		}

		rule := resultRule(result, value)
		if rule == "" {
			continue
		}
		log.Debugf("rule is %s", rule)
		switch {
		case rule == PolicyContinue:
			return false, nil
		case rule == PolicyFailed:
			return false, fmt.Errorf("%s: %w", workflow.label(), ErrWorkflowFailed)
		case rule == PolicyBreak:
			return false, errBreak
		case rule == PolicyFailback:
			doFailback = true
		case rule == PolicyDoWorkflow:
			doWorkflow = true
		case strings.HasPrefix(rule, PolicyDoWorkflowIdx):
			arrayWorkflowIndex = append(arrayWorkflowIndex, parseIndexes(rule[len(PolicyDoWorkflowIdx):])...)
			doWorkflow = true
		case rule == PolicyLoop:
			return true, nil
		case rule == PolicyLoopParent:
			return false, errLoopParent
		default:
			log.Warnf("configuration error, unknown policy %q", rule)
		}
	}

	if doFailback && workflow.Failback != nil {
		if err = rm.runEntry(ctx, level, workflow.Failback); err != nil {
			return false, err
		}
		return true, nil
	}

	if doWorkflow {
		err = rm.runWorkflow(ctx, level+1, workflow.Workflow, arrayWorkflowIndex)
		if errors.Is(err, errLoopParent) {
			return true, nil
		}
		return false, err
	}
	return false, nil
}

func (rm *RunnerManager) doScenario(ctx context.Context, name string) error {
	rm.mu.Lock()
	if rm.depth >= maxScenarioDepth {
		rm.mu.Unlock()
		return fmt.Errorf("scenario %s: nesting deeper than %d: %w", name, maxScenarioDepth, ErrWorkflowFailed)
	}
	rm.depth++
	rm.mu.Unlock()
	defer func() {
		rm.mu.Lock()
		rm.depth--
		rm.mu.Unlock()
	}()
	return rm.Run(ctx, name)
}

// executeStep runs the action inside a driver step so it gets the step's
// retries, logging and failure screenshot.
func (rm *RunnerManager) executeStep(ctx context.Context, workflow *ConfigurationWorkflow) ([]reflect.Value, error) {
	p := rm.driver.Policy(workflow.label())
	if workflow.Retry > 0 {
		p.Retries = workflow.Retry
	}
	if workflow.RetryDelay != "" {
		delay, err := time.ParseDuration(workflow.RetryDelay)
		if err != nil {
			return nil, fmt.Errorf("invalid retry_delay %q: %w", workflow.RetryDelay, err)
		}
		p.RetryDelay = delay
	}
	handlesErrors := workflow.handlesErrors()
	return driver.Step(ctx, rm.driver, p, func(ctx context.Context) ([]reflect.Value, error) {
		results, err := rm.executeMethod(ctx, workflow.Action, workflow.Params)
		if err != nil {
			return nil, err
		}
		if !handlesErrors {
			if errResult := trailingError(results); errResult != nil {
				return nil, errResult
			}
		}
		return results, nil
	})
}

func (rm *RunnerManager) executeMethod(ctx context.Context, methodName string, params []string) ([]reflect.Value, error) {
	methodValue := reflect.ValueOf(rm.method).MethodByName(methodName)
	if !methodValue.IsValid() {
		return nil, fmt.Errorf("method '%s' not found", methodName)
	}
	methodFunc := methodValue.Type()

	args := make([]reflect.Value, methodFunc.NumIn())
	next := 0
	for i := 0; i < methodFunc.NumIn(); i++ {
		paramType := methodFunc.In(i)
		// The context is injected, scenario files never pass it.
		if paramType == contextType {
			args[i] = reflect.ValueOf(ctx)
			continue
		}
		if next >= len(params) {
			return nil, fmt.Errorf("parameter number not match")
		}
		value, err := rm.argument(params[next], paramType)
		if err != nil {
			return nil, fmt.Errorf("parameter %d of %s: %w", next, methodName, err)
		}
		args[i] = value
		next++
	}
	if next != len(params) {
		return nil, fmt.Errorf("parameter number not match")
	}

	log.Debugf("execute method: %s", methodName)
	return methodValue.Call(args), nil
}

// argument turns one scenario parameter into a call argument. A parameter
// that is exactly "#name#" passes the stored value through; other strings
// get every known "#name#" replaced by its text form.
func (rm *RunnerManager) argument(raw string, paramType reflect.Type) (reflect.Value, error) {
	input := strings.TrimSpace(raw)
	if name, ok := variableName(input); ok {
		v, set := rm.Variable(name)
		if !set {
			return reflect.Value{}, fmt.Errorf("variable #%s# is not set", name)
		}
		if v == nil {
			return reflect.Zero(paramType), nil
		}
		rv := reflect.ValueOf(v)
		if rv.Type().AssignableTo(paramType) {
			return rv, nil
		}
		input = fmt.Sprint(v)
	} else {
		input = rm.substitute(raw)
	}
	return convertToType(input, paramType)
}

func (rm *RunnerManager) substitute(s string) string {
	return variablePattern.ReplaceAllStringFunc(s, func(match string) string {
		v, ok := rm.Variable(match[1 : len(match)-1])
		if !ok {
			return match
		}
		return fmt.Sprint(v)
	})
}

func variableName(input string) (string, bool) {
	m := variablePattern.FindStringSubmatch(input)
	if m == nil || m[0] != input {
		return "", false
	}
	return m[1], true
}

// convertToType converts string input to the specified type
func convertToType(input string, targetType reflect.Type) (reflect.Value, error) {
	switch targetType.Kind() {
	case reflect.String:
		return reflect.ValueOf(input).Convert(targetType), nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		val, err := strconv.ParseInt(input, 10, 64)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("cannot convert to integer: %w", err)
		}
		return reflect.ValueOf(val).Convert(targetType), nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		val, err := strconv.ParseUint(input, 10, 64)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("cannot convert to unsigned integer: %w", err)
		}
		return reflect.ValueOf(val).Convert(targetType), nil

	case reflect.Float32, reflect.Float64:
		val, err := strconv.ParseFloat(input, 64)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("cannot convert to float: %w", err)
		}
		return reflect.ValueOf(val).Convert(targetType), nil

	case reflect.Bool:
		val, err := strconv.ParseBool(input)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("cannot convert to boolean: %w", err)
		}
		return reflect.ValueOf(val), nil

	case reflect.Interface:
		if reflect.TypeOf(input).AssignableTo(targetType) {
			return reflect.ValueOf(input), nil
		}
	}
	return reflect.Value{}, fmt.Errorf("unsupported parameter type: %s", targetType.String())
}

func resultRule(result ConfigurationWorkflowResult, value any) string {
	if result.Policy == nil {
		return ""
	}
	switch result.Type {
	case "bool":
		v, ok := value.(bool)
		if !ok {
			log.Warnf("configuration error, return value %d is not bool type", result.ResultIndex)
			return ""
		}
		if v {
			return result.Policy.IsTrue
		}
		return result.Policy.IsFalse
	case "error":
		if value != nil {
			return result.Policy.HasError
		}
		return result.Policy.NoError
	}
	return ""
}

func valueOf(v reflect.Value) any {
	switch v.Kind() {
	case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice:
		if v.IsNil() {
			return nil
		}
	}
	return v.Interface()
}

func trailingError(results []reflect.Value) error {
	if len(results) == 0 {
		return nil
	}
	last := results[len(results)-1]
	if last.Type() != errorType || last.IsNil() {
		return nil
	}
	return last.Interface().(error)
}

func parseIndexes(list string) []int {
	out := make([]int, 0)
	for _, idx := range strings.Split(list, ",") {
		i, err := strconv.Atoi(strings.TrimSpace(idx))
		if err != nil {
			log.Warnf("configuration error, workflow index is not a number: %v", err)
			continue
		}
		out = append(out, i)
	}
	return out
}

func kindName(v any) string {
	if v == nil {
		return "nil"
	}
	return reflect.TypeOf(v).Kind().String()
}

func validateWorkflow(workflows []ConfigurationWorkflow) error {
	for i := range workflows {
		if err := validateStep(&workflows[i]); err != nil {
			return fmt.Errorf("workflow index %d: %w", workflows[i].Index, err)
		}
	}
	return nil
}

// validateStep checks actions, parameter counts and result indexes against
// the method set before anything runs.
func validateStep(w *ConfigurationWorkflow) error {
	if w.Action == ActionDoScenario {
		if len(w.Params) != 1 {
			return fmt.Errorf("%s takes exactly one scenario name", ActionDoScenario)
		}
	} else {
		m, found := methodType.MethodByName(w.Action)
		if !found {
			return fmt.Errorf("method '%s' not found", w.Action)
		}
		// In(0) is the receiver.
		params := 0
		for i := 1; i < m.Type.NumIn(); i++ {
			if m.Type.In(i) != contextType {
				params++
			}
		}
		if params != len(w.Params) {
			return fmt.Errorf("method '%s' takes %d parameters, got %d", w.Action, params, len(w.Params))
		}
		for _, r := range w.Result {
			if r.ResultIndex < 0 || r.ResultIndex >= m.Type.NumOut() {
				return fmt.Errorf("method '%s' has no return value %d", w.Action, r.ResultIndex)
			}
		}
	}
	if w.RetryDelay != "" {
		if _, err := time.ParseDuration(w.RetryDelay); err != nil {
			return fmt.Errorf("invalid retry_delay %q: %w", w.RetryDelay, err)
		}
	}
	if w.Failback != nil {
		if err := validateStep(w.Failback); err != nil {
			return fmt.Errorf("failback: %w", err)
		}
	}
	return validateWorkflow(w.Workflow)
}
