package workflow

// StepMetrics aggregates per-step performance over a set of workflows.
type StepMetrics struct {
	AvgTimeMS   float64 `json:"avg_time_ms"`
	SuccessRate float64 `json:"success_rate"`
}

// Metrics aggregates workflow performance over a set of states.
type Metrics struct {
	TotalWorkflows int `json:"total_workflows"`
	Completed      int `json:"completed"`
	Failed         int `json:"failed"`
	InProgress     int `json:"in_progress"`

	// AverageExecutionMS is the mean total execution time of completed
	// workflows, in milliseconds.
	AverageExecutionMS float64 `json:"average_execution_time_ms"`

	// SuccessRate is completed / total, as a percentage.
	SuccessRate float64 `json:"success_rate"`

	// StepPerformance maps step names to their aggregate metrics,
	// computed over completed workflows only.
	StepPerformance map[string]StepMetrics `json:"step_performance"`
}

// CalculateMetrics computes aggregate metrics from a set of workflow
// states, typically the result of a Store.ListStates call.
func CalculateMetrics(states []*State) Metrics {
	m := Metrics{
		TotalWorkflows:  len(states),
		StepPerformance: make(map[string]StepMetrics),
	}

	type stepAccum struct {
		totalMS   int64
		count     int
		successes int
	}
	accum := make(map[string]*stepAccum)

	var completedTimeMS int64
	for _, s := range states {
		switch s.Status {
		case StatusCompleted:
			m.Completed++
			completedTimeMS += s.TotalExecutionMS
		case StatusFailed:
			m.Failed++
		case StatusInProgress:
			m.InProgress++
		}

		if s.Status != StatusCompleted {
			continue
		}
		for name, r := range s.StepResults {
			a := accum[name]
			if a == nil {
				a = &stepAccum{}
				accum[name] = a
			}
			a.totalMS += r.ExecutionMS
			a.count++
			if r.Status == StepCompleted {
				a.successes++
			}
		}
	}

	if m.Completed > 0 {
		m.AverageExecutionMS = float64(completedTimeMS) / float64(m.Completed)
	}
	if m.TotalWorkflows > 0 {
		m.SuccessRate = float64(m.Completed) / float64(m.TotalWorkflows) * 100
	}

	for name, a := range accum {
		sm := StepMetrics{}
		if a.count > 0 {
			sm.AvgTimeMS = float64(a.totalMS) / float64(a.count)
			sm.SuccessRate = float64(a.successes) / float64(a.count) * 100
		}
		m.StepPerformance[name] = sm
	}

	return m
}
