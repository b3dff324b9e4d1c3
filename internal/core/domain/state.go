package domain

import (
	"errors"
	"fmt"
	"slices"
)

// ErrDecisionFinal is returned when an update tries to overwrite a decision
// that a previous stage already made.
var ErrDecisionFinal = errors.New("decision already made")

// State is the single record threaded through one pipeline run.
// Stages receive it by value and describe their changes as an Update.
type State struct {
	UserQuery         string            `json:"user_query"`
	Intent            Intent            `json:"intent,omitempty"`
	RetrievedEvidence []EvidenceItem    `json:"retrieved_evidence,omitempty"`
	DraftAnswer       string            `json:"draft_answer,omitempty"`
	Citations         []string          `json:"citations,omitempty"`
	Uncertainty       *Uncertainty      `json:"uncertainty,omitempty"`
	ValidationReports *ValidationReport `json:"validation_reports,omitempty"`
	Decision          Decision          `json:"decision,omitempty"`
	AuditTrail        AuditTrail        `json:"audit_trail"`
}

// NewState returns the initial state for a query.
func NewState(query string) State {
	return State{UserQuery: query, AuditTrail: AuditTrail{}}
}

// Payload projects the state onto the request boundary's response shape.
func (s State) Payload() AnswerPayload {
	citations := s.Citations
	if citations == nil {
		citations = []string{}
	}
	decision := s.Decision
	if decision == "" {
		decision = DecisionAnswer
	}
	return AnswerPayload{
		Answer:      s.DraftAnswer,
		Citations:   citations,
		Uncertainty: s.Uncertainty,
		Validation:  s.ValidationReports,
		Decision:    decision,
	}
}

// Field identifies one writable State field.
type Field uint16

const (
	FieldIntent Field = 1 << iota
	FieldRetrievedEvidence
	FieldDraftAnswer
	FieldCitations
	FieldUncertainty
	FieldValidationReports
	FieldDecision
	FieldAuditTrail
)

var fieldNames = map[Field]string{
	FieldIntent:            "intent",
	FieldRetrievedEvidence: "retrieved_evidence",
	FieldDraftAnswer:       "draft_answer",
	FieldCitations:         "citations",
	FieldUncertainty:       "uncertainty",
	FieldValidationReports: "validation_reports",
	FieldDecision:          "decision",
	FieldAuditTrail:        "audit_trail",
}

func (f Field) String() string {
	if name, ok := fieldNames[f]; ok {
		return name
	}
	return fmt.Sprintf("field(%d)", uint16(f))
}

// Update is the partial result of a stage: only fields marked as set are merged.
// The zero Update changes nothing.
type Update struct {
	set         Field
	intent      Intent
	evidence    []EvidenceItem
	draft       string
	citations   []string
	uncertainty *Uncertainty
	validation  *ValidationReport
	decision    Decision
	audit       AuditTrail
}

// Has reports whether f is set on the update.
func (u Update) Has(f Field) bool { return u.set&f != 0 }

// Fields lists the set fields in schema order.
func (u Update) Fields() []Field {
	var out []Field
	for f := FieldIntent; f <= FieldAuditTrail; f <<= 1 {
		if u.Has(f) {
			out = append(out, f)
		}
	}
	return out
}

func (u Update) WithIntent(i Intent) Update {
	u.set |= FieldIntent
	u.intent = i
	return u
}

func (u Update) WithEvidence(ev []EvidenceItem) Update {
	u.set |= FieldRetrievedEvidence
	u.evidence = ev
	return u
}

func (u Update) WithDraftAnswer(draft string) Update {
	u.set |= FieldDraftAnswer
	u.draft = draft
	return u
}

func (u Update) WithCitations(c []string) Update {
	u.set |= FieldCitations
	u.citations = c
	return u
}

func (u Update) WithUncertainty(unc Uncertainty) Update {
	u.set |= FieldUncertainty
	u.uncertainty = &unc
	return u
}

func (u Update) WithValidation(r ValidationReport) Update {
	u.set |= FieldValidationReports
	u.validation = &r
	return u
}

func (u Update) WithDecision(d Decision) Update {
	u.set |= FieldDecision
	u.decision = d
	return u
}

// WithAuditTrail replaces the whole trail. Stages pass prior.Append(record).
func (u Update) WithAuditTrail(t AuditTrail) Update {
	u.set |= FieldAuditTrail
	u.audit = t
	return u
}

// AuditTrail returns the trail carried by the update, if any.
func (u Update) AuditTrail() (AuditTrail, bool) {
	return u.audit, u.Has(FieldAuditTrail)
}

// Apply merges u into a copy of s, field by field, last writer wins.
// Slices are cloned so later stages cannot alias earlier results.
func (s State) Apply(u Update) (State, error) {
	if u.Has(FieldDecision) && s.Decision != "" {
		return s, fmt.Errorf("%w: %s", ErrDecisionFinal, s.Decision)
	}
	if u.Has(FieldIntent) {
		s.Intent = u.intent
	}
	if u.Has(FieldRetrievedEvidence) {
		s.RetrievedEvidence = slices.Clone(u.evidence)
		if s.RetrievedEvidence == nil {
			s.RetrievedEvidence = []EvidenceItem{}
		}
	}
	if u.Has(FieldDraftAnswer) {
		s.DraftAnswer = u.draft
	}
	if u.Has(FieldCitations) {
		s.Citations = slices.Clone(u.citations)
		if s.Citations == nil {
			s.Citations = []string{}
		}
	}
	if u.Has(FieldUncertainty) {
		s.Uncertainty = u.uncertainty
	}
	if u.Has(FieldValidationReports) {
		s.ValidationReports = u.validation
	}
	if u.Has(FieldDecision) {
		s.Decision = u.decision
	}
	if u.Has(FieldAuditTrail) {
		s.AuditTrail = slices.Clone(u.audit)
	}
	return s, nil
}

// Faithful reads the validator verdict; a missing report counts as unfaithful.
func (s State) Faithful() bool {
	return s.ValidationReports != nil && s.ValidationReports.Faithful
}

// OverallUncertainty reads the aggregate entropy; a missing value counts as 1.0.
func (s State) OverallUncertainty() float64 {
	if s.Uncertainty == nil {
		return 1.0
	}
	return s.Uncertainty.Overall
}
