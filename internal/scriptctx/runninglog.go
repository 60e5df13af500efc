package scriptctx

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// runningLogDoc is the JSON shape written to runningLogPath after every
// recorded step (spec §4.8 "Running log").
type runningLogDoc struct {
	ScriptName        string       `json:"script_name"`
	TotalSteps        int          `json:"total_steps"`
	CurrentStepNumber int          `json:"current_step_number"`
	StartTime         time.Time    `json:"start_time"`
	CompletedSteps    []StepRecord `json:"completed_steps"`
	CurrentStep       *StepRecord  `json:"current_step,omitempty"`
	EstimatedEnd      *time.Time   `json:"estimated_end,omitempty"`
}

// writeRunningLog atomically (tmp+rename) rewrites the running log,
// matching the teacher's write-to-tmp-then-rename idiom used for run
// artifacts throughout internal/attractor.
func (c *ScriptContext) writeRunningLog() error {
	if c.runningLogPath == "" {
		return nil
	}

	c.mu.Lock()
	doc := runningLogDoc{
		ScriptName:        c.ScriptName,
		TotalSteps:        len(c.steps),
		CurrentStepNumber: len(c.steps),
		StartTime:         c.StartedAt,
		CompletedSteps:    append([]StepRecord(nil), c.steps...),
	}
	if len(c.steps) > 0 {
		cur := c.steps[len(c.steps)-1]
		doc.CurrentStep = &cur
	}
	estimate := c.estimatedEnd()
	c.mu.Unlock()

	doc.EstimatedEnd = estimate

	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(c.runningLogPath), 0o755); err != nil {
		return err
	}
	tmp := c.runningLogPath + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, c.runningLogPath)
}

// estimatedEnd derives a completion estimate from the running average
// step duration (spec §4.8 "estimated from running average step duration
// and remaining steps, or from a caller-provided historical average").
// Without a total-step count this core has no "remaining steps" signal,
// so the estimate is a single-step lookahead: start-time plus
// (steps-so-far + 1) * average duration.
func (c *ScriptContext) estimatedEnd() *time.Time {
	avgMS := c.historicalAvgStepMS
	if len(c.steps) > 0 {
		var total int64
		for _, s := range c.steps {
			total += s.DurationMS
		}
		avgMS = total / int64(len(c.steps))
	}
	if avgMS <= 0 {
		return nil
	}
	est := c.StartedAt.Add(time.Duration(avgMS) * time.Millisecond * time.Duration(len(c.steps)+1))
	return &est
}
