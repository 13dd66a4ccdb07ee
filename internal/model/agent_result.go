package model

// AgentResult is the unit exchanged between a branch agent and the
// orchestrator. Data holds a *Report for the analytics branch and either
// []SheetRow or an aggregate map[string]float64 for the SEO branch.
type AgentResult struct {
	Success    bool                   `json:"success"`
	Answer     string                 `json:"answer,omitempty"`
	Data       interface{}            `json:"data,omitempty"`
	Error      string                 `json:"error,omitempty"`
	DataStatus string                 `json:"data_status,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

func FailedAgentResult(err string) AgentResult {
	return AgentResult{Success: false, Error: err}
}
