package messagequeue

// EntityCreatedPayload is the schema for provisioning.*.created messages.
type EntityCreatedPayload struct {
	EntityID  string `json:"entity_id"`
	TenantID  string `json:"tenant_id"`
	CreatedBy string `json:"created_by"`
}

// SagaFailurePayload is the schema for provisioning.saga.* failure messages.
// Uncompensated lists local writes that could not be rolled back and need
// manual reconciliation.
type SagaFailurePayload struct {
	Workflow      string   `json:"workflow"`
	FailedStep    string   `json:"failed_step"`
	Error         string   `json:"error"`
	Uncompensated []string `json:"uncompensated,omitempty"`
}

// ProgramTransitionPayload is the schema for audit.program.transition messages.
type ProgramTransitionPayload struct {
	ProgramID string `json:"program_id"`
	TenantID  string `json:"tenant_id"`
	Action    string `json:"action"`
	From      string `json:"from"`
	To        string `json:"to"`
	ActorID   string `json:"actor_id"`
}
