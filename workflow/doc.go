// Package workflow defines the claimflow data model and collaborator
// contracts: step and workflow definitions, the persisted workflow state
// aggregate, step results, the executor contract, and the store interface.
//
// Execution semantics live in the engine package. This package is purely
// data and contracts so that store backends and middleware can depend on
// it without import cycles.
//
// # Definitions
//
// A Definition is an ordered list of StepDefinitions forming a DAG via
// DependsOn edges. NewDefinition validates the graph at construction time;
// a cycle or an unknown dependency is a configuration fault and fails
// before any execution begins.
//
// # State
//
// A State is the mutable aggregate record of one workflow's progress. It is
// created once per unit of work (one claim, one encounter), mutated
// exclusively by the engine, and persisted after every step transition. It
// is never auto-deleted; archival is a caller responsibility.
package workflow
