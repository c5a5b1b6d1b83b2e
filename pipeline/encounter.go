package pipeline

import "time"

// Encounter is the business subject the pipeline processes: one patient
// visit whose charges become one claim. It is carried immutably through
// every step as the workflow subject payload.
type Encounter struct {
	EncounterID      string    `json:"encounter_id"`
	PatientID        string    `json:"patient_id"`
	ProviderID       string    `json:"provider_id,omitempty"`
	InsuranceCompany string    `json:"insurance_company,omitempty"`
	PolicyNumber     string    `json:"policy_number,omitempty"`
	ServiceDate      time.Time `json:"service_date"`
	TotalCharges     float64   `json:"total_charges,omitempty"`

	// Notes holds free-text clinical documentation consumed by the
	// coding step.
	Notes string `json:"notes,omitempty"`
}

// Subject converts the encounter to the map form stored on the workflow
// state and exposed to executors through the step context.
func (e Encounter) Subject() map[string]any {
	subject := map[string]any{
		"encounter_id": e.EncounterID,
		"patient_id":   e.PatientID,
		"service_date": e.ServiceDate.Format(time.RFC3339),
	}
	if e.ProviderID != "" {
		subject["provider_id"] = e.ProviderID
	}
	if e.InsuranceCompany != "" {
		subject["insurance_company"] = e.InsuranceCompany
	}
	if e.PolicyNumber != "" {
		subject["policy_number"] = e.PolicyNumber
	}
	if e.TotalCharges != 0 {
		subject["total_charges"] = e.TotalCharges
	}
	if e.Notes != "" {
		subject["notes"] = e.Notes
	}
	return subject
}
