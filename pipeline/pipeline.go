// Package pipeline provides the canonical end-to-end revenue cycle
// workflow definition: the ten-step claim pipeline from patient
// registration through payment posting. It binds step names, executor
// names, dependencies, timeouts, and retry budgets in one place so every
// deployment drives the same DAG.
//
// The step bodies themselves are external capabilities (claims-exchange
// calls, code lookup, FHIR generation); callers register an executor per
// step name and hand the definition to an engine.
package pipeline

import (
	"time"

	"github.com/claimflow/claimflow/workflow"
)

// WorkflowType identifies the end-to-end revenue cycle pipeline.
const WorkflowType = "end_to_end_rcm"

// Step names, in execution order.
const (
	StepRegistration     = "registration"
	StepEligibility      = "eligibility"
	StepPreAuthorization = "pre_authorization"
	StepMedicalCoding    = "medical_coding"
	StepChargeAudit      = "charge_audit"
	StepFHIRGeneration   = "fhir_generation"
	StepScrubbing        = "scrubbing"
	StepSubmission       = "submission"
	StepStatusTracking   = "status_tracking"
	StepPaymentPosting   = "payment_posting"
)

// StepNames returns all pipeline step names in execution order.
func StepNames() []string {
	return []string{
		StepRegistration,
		StepEligibility,
		StepPreAuthorization,
		StepMedicalCoding,
		StepChargeAudit,
		StepFHIRGeneration,
		StepScrubbing,
		StepSubmission,
		StepStatusTracking,
		StepPaymentPosting,
	}
}

// Definition builds the validated pipeline DAG. The two main branches —
// eligibility/authorization and coding/audit — run off registration and
// join at submission.
func Definition() (*workflow.Definition, error) {
	return workflow.NewDefinition(WorkflowType, []workflow.StepDefinition{
		{
			Name:        StepRegistration,
			Description: "Register patient and verify demographics",
			Timeout:     60 * time.Second,
		},
		{
			Name:        StepEligibility,
			Description: "Verify insurance eligibility via the claims exchange",
			Timeout:     120 * time.Second,
			DependsOn:   []string{StepRegistration},
		},
		{
			Name:        StepPreAuthorization,
			Description: "Obtain pre-authorization if required",
			Timeout:     180 * time.Second,
			DependsOn:   []string{StepEligibility},
		},
		{
			Name:        StepMedicalCoding,
			Description: "Assign ICD-10 and CPT codes",
			Timeout:     120 * time.Second,
			DependsOn:   []string{StepRegistration},
		},
		{
			Name:        StepChargeAudit,
			Description: "Audit charges for completeness",
			Timeout:     90 * time.Second,
			DependsOn:   []string{StepMedicalCoding},
		},
		{
			Name:        StepFHIRGeneration,
			Description: "Generate FHIR R4 Claim resource",
			Timeout:     60 * time.Second,
			DependsOn:   []string{StepMedicalCoding, StepChargeAudit},
		},
		{
			Name:        StepScrubbing,
			Description: "Validate and scrub the claim",
			Timeout:     90 * time.Second,
			DependsOn:   []string{StepFHIRGeneration},
		},
		{
			Name:        StepSubmission,
			Description: "Submit the claim to the exchange",
			Timeout:     120 * time.Second,
			DependsOn:   []string{StepScrubbing, StepPreAuthorization},
		},
		{
			Name:        StepStatusTracking,
			Description: "Track claim adjudication status",
			Timeout:     60 * time.Second,
			DependsOn:   []string{StepSubmission},
		},
		{
			Name:        StepPaymentPosting,
			Description: "Post remittance payments and reconcile variances",
			Timeout:     90 * time.Second,
			DependsOn:   []string{StepStatusTracking},
		},
	})
}

// MustDefinition is like Definition but panics on error. The step list
// above is static, so a failure is a programming error.
func MustDefinition() *workflow.Definition {
	def, err := Definition()
	if err != nil {
		panic(err)
	}
	return def
}
