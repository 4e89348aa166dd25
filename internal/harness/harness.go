package harness

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/reportcore/internal/engine"
	"github.com/roach88/reportcore/internal/logging"
	"github.com/roach88/reportcore/internal/report"
	"github.com/roach88/reportcore/internal/testutil"
)

// StepDuration is how far the harness clock advances per reading, so every
// sequential query reports the same execution time.
const StepDuration = time.Millisecond

// Run executes a scenario and returns the result.
//
// The report's own data sources are used. Errors that abort the whole
// resolution (a dependency cycle) are recorded in the result; they fail the
// scenario unless a cycle assertion expects them. Failures to load the
// report or set up its sources are returned as errors.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	def, err := report.Load(scenario.Report)
	if err != nil {
		return nil, fmt.Errorf("failed to load report: %w", err)
	}

	res, runErr := report.Run(ctx, def, report.RunOptions{
		Parallelism: scenario.Parallelism,
		Logger:      logging.Discard(),
		Clock:       testutil.NewStepClock(StepDuration),
		PassIDs:     testutil.NewConstantGenerator(scenario.PassID),
	})

	result := NewResult()
	if res != nil {
		result.PassID = res.PassID
		result.Order = append(result.Order, res.Order...)
		for id, r := range res.Results {
			result.Results[id] = r
		}
	}
	if runErr != nil {
		var ee *engine.EngineError
		if !errors.As(runErr, &ee) {
			return nil, fmt.Errorf("failed to run report: %w", runErr)
		}
		result.ErrorCode = string(ee.Code)
		result.Error = ee.Message
		result.ErrorPath = ee.Path
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	if result.Error != "" && !expectsCycle(scenario) {
		result.AddError(fmt.Sprintf("resolution aborted: %s", result.Error))
	}
	return result, nil
}

func expectsCycle(s *Scenario) bool {
	for _, a := range s.Assertions {
		if a.Type == AssertCycle {
			return true
		}
	}
	return false
}
