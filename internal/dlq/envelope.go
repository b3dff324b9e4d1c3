package dlq

import (
	"time"

	"github.com/google/uuid"

	"github.com/tjfontaine/uda/internal/core/domain"
)

// Reason codes for escalated requests.
const (
	ReasonUnfaithful      = "unfaithful"
	ReasonHighUncertainty = "high_uncertainty"
)

// Envelope is the escalation record written for a dlq decision.
type Envelope struct {
	ID         string          `json:"id"`
	RunID      string          `json:"run_id,omitempty"`
	ReasonCode string          `json:"reason_code"`
	Query      string          `json:"query"`
	Decision   domain.Decision `json:"decision"`
	CreatedAt  time.Time       `json:"created_at"`
	Artifacts  Artifacts       `json:"artifacts"`
}

// Artifacts carries what a reviewer needs to judge the escalation.
type Artifacts struct {
	DraftAnswer string                   `json:"draft_answer"`
	Citations   []string                 `json:"citations"`
	Uncertainty *domain.Uncertainty      `json:"uncertainty,omitempty"`
	Validation  *domain.ValidationReport `json:"validation,omitempty"`
	AuditTrail  domain.AuditTrail        `json:"audit_trail"`
}

// NewEnvelope captures the final state of an escalated run.
func NewEnvelope(runID string, st domain.State) Envelope {
	citations := st.Citations
	if citations == nil {
		citations = []string{}
	}
	return Envelope{
		ID:         uuid.NewString(),
		RunID:      runID,
		ReasonCode: ReasonCode(st),
		Query:      st.UserQuery,
		Decision:   st.Decision,
		CreatedAt:  time.Now().UTC(),
		Artifacts: Artifacts{
			DraftAnswer: st.DraftAnswer,
			Citations:   citations,
			Uncertainty: st.Uncertainty,
			Validation:  st.ValidationReports,
			AuditTrail:  st.AuditTrail,
		},
	}
}

// ReasonCode explains why st was escalated.
func ReasonCode(st domain.State) string {
	if !st.Faithful() {
		return ReasonUnfaithful
	}
	return ReasonHighUncertainty
}
