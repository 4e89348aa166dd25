package harness

import "github.com/roach88/reportcore/internal/query"

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	PassID  string                       `json:"pass_id"`
	Order   []string                     `json:"order"`
	Results map[string]query.QueryResult `json:"results"`

	// ErrorCode, Error and ErrorPath describe a resolution that aborted
	// (cycle or cancellation). Per-section failures live in Results.
	ErrorCode string   `json:"error_code,omitempty"`
	Error     string   `json:"error,omitempty"`
	ErrorPath []string `json:"error_path,omitempty"`

	// Errors contains assertion failure messages.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Order:   []string{},
		Results: make(map[string]query.QueryResult),
		Errors:  []string{},
	}
}

// AddError adds an assertion failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
