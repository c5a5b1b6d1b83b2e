// Package claimflow provides a durable, resumable step-workflow engine for
// multi-stage claims processing pipelines. A workflow is an ordered DAG of
// named steps (patient registration, eligibility, coding, submission, ...);
// each step invokes an opaque executor under a bounded timeout and retry
// budget, and every transition is persisted so a crashed process resumes
// exactly at the next unprocessed step.
//
// Claimflow is designed as a library, not a service. Import it, configure a
// state store, register executors as ordinary Go values, and run pipelines.
//
// # Quick Start
//
//	reg := workflow.NewRegistry()
//	reg.Register("registration", registerPatient)
//
//	def, err := workflow.NewDefinition("end_to_end_rcm", steps)
//	eng, err := engine.New(def, reg, memory.New())
//
//	state, err := eng.Create(ctx, "ENC-1001", subject, nil)
//	result, err := eng.Run(ctx, state.WorkflowID)
//
// # Architecture
//
// The workflow package holds the data model (state, step results,
// definitions) and the collaborator contracts (Store, Executor). The engine
// package owns all execution semantics: dependency checks, per-step
// deadlines, exponential-backoff retries, and persistence ordering. Store
// backends live under store/ (memory, postgres, redis); a single backend
// implements the workflow.Store interface.
//
// All entity IDs use TypeID — type-prefixed, K-sortable, UUIDv7-based,
// compile-time safe identifiers.
package claimflow
