package runner

// Configuration is one scenario file.
type Configuration struct {
	Version     string                  `yaml:"version"`
	Name        string                  `yaml:"name"`
	Description string                  `yaml:"description"`
	Variables   map[string]any          `yaml:"variables"`
	Workflow    []ConfigurationWorkflow `yaml:"workflow"`
}

type ConfigurationWorkflow struct {
	Index       int                           `yaml:"index"`
	Action      string                        `yaml:"action"`
	Description string                        `yaml:"description"`
	Params      []string                      `yaml:"params"`
	Result      []ConfigurationWorkflowResult `yaml:"result"`
	// Retry is the number of extra attempts after a failure; zero uses the
	// driver default.
	Retry      int                     `yaml:"retry"`
	RetryDelay string                  `yaml:"retry_delay"`
	Failback   *ConfigurationWorkflow  `yaml:"failback"`
	Workflow   []ConfigurationWorkflow `yaml:"workflow"`
}

type ConfigurationWorkflowResult struct {
	ResultIndex int                                `yaml:"result_index"`
	Name        string                             `yaml:"name"`
	Type        string                             `yaml:"type"`
	Policy      *ConfigurationWorkflowResultPolicy `yaml:"policy"`
}

type ConfigurationWorkflowResultPolicy struct {
	IsTrue   string `yaml:"is_true"`
	IsFalse  string `yaml:"is_false"`
	HasError string `yaml:"has_error"`
	NoError  string `yaml:"no_error"`
}

// Result policies.
const (
	PolicyContinue      = "CONTINUE"
	PolicyFailed        = "FAILED"
	PolicyBreak         = "BREAK"
	PolicyFailback      = "FAILBACK"
	PolicyDoWorkflow    = "DO-WORKFLOW"
	PolicyDoWorkflowIdx = "DO-WORKFLOW-IDX:"
	PolicyLoop          = "LOOP"
	PolicyLoopParent    = "LOOP-PARENT"
)

// ActionDoScenario runs another loaded scenario with the shared variables.
const ActionDoScenario = "DoScenario"

// handlesErrors reports whether a result entry inspects an error return, in
// which case a returned error is data for the policy rather than a failure.
func (w *ConfigurationWorkflow) handlesErrors() bool {
	for _, r := range w.Result {
		if r.Type == "error" {
			return true
		}
	}
	return false
}

func (w *ConfigurationWorkflow) label() string {
	if w.Description != "" {
		return w.Description
	}
	return w.Action
}
