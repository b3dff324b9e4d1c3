package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Intent is the router's classification of a query.
type Intent string

const (
	IntentLookup    Intent = "lookup"
	IntentSynthesis Intent = "synthesis"
	IntentPolicy    Intent = "policy"
)

// Valid reports whether i is one of the known intents.
func (i Intent) Valid() bool {
	switch i {
	case IntentLookup, IntentSynthesis, IntentPolicy:
		return true
	}
	return false
}

// Decision is the supervisor's terminal routing outcome.
type Decision string

const (
	// DecisionAnswer returns the draft to the caller.
	DecisionAnswer Decision = "answer"
	// DecisionDLQ escalates the request to the dead-letter queue for human review.
	DecisionDLQ Decision = "dlq"
)

// Valid reports whether d is one of the known decisions.
func (d Decision) Valid() bool {
	return d == DecisionAnswer || d == DecisionDLQ
}

// EvidenceItem is one retrieved snippet with provenance and score.
// Any field may be empty; consumers degrade rather than fail.
type EvidenceItem struct {
	DocID        string   `json:"doc_id" yaml:"doc_id"`
	Heading      string   `json:"heading,omitempty" yaml:"heading,omitempty"`
	Text         string   `json:"text" yaml:"text"`
	SourceURI    string   `json:"source_uri,omitempty" yaml:"source_uri,omitempty"`
	SecurityTags []string `json:"security_tags,omitempty" yaml:"security_tags,omitempty"`
	Score        float64  `json:"score" yaml:"-"`
}

// Span is an entropy measurement over the token range [Start, End).
type Span struct {
	Start   int     `json:"start"`
	End     int     `json:"end"`
	Entropy float64 `json:"entropy"`
}

// Uncertainty summarises span entropies. Overall is their arithmetic mean.
type Uncertainty struct {
	Overall float64 `json:"overall"`
	Spans   []Span  `json:"spans"`
}

// ValidationReport is the faithfulness verdict for a draft answer.
type ValidationReport struct {
	Faithful bool     `json:"faithful"`
	Checks   []string `json:"checks"`
}

// AuditRecord is what one stage observed or decided. It serializes flat:
// {"node": "router", "intent": "lookup"}.
type AuditRecord struct {
	Node   string
	Fields map[string]any
}

// NewAuditRecord builds a record from alternating key/value pairs.
func NewAuditRecord(node string, kv ...any) AuditRecord {
	rec := AuditRecord{Node: node, Fields: make(map[string]any, len(kv)/2)}
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		rec.Fields[key] = kv[i+1]
	}
	return rec
}

// Get returns the named field; "node" resolves to Node.
func (r AuditRecord) Get(key string) (any, bool) {
	if key == "node" {
		return r.Node, true
	}
	v, ok := r.Fields[key]
	return v, ok
}

func (r AuditRecord) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(r.Fields)+1)
	for k, v := range r.Fields {
		flat[k] = v
	}
	flat["node"] = r.Node
	return json.Marshal(flat)
}

func (r *AuditRecord) UnmarshalJSON(data []byte) error {
	var flat map[string]any
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}
	node, _ := flat["node"].(string)
	delete(flat, "node")
	r.Node = node
	r.Fields = flat
	return nil
}

// AuditTrail is the ordered, append-only log of stage records.
type AuditTrail []AuditRecord

// Append returns a new trail with rec at the end. The receiver is never modified,
// so stages can hand back the result without aliasing the previous state.
func (t AuditTrail) Append(rec AuditRecord) AuditTrail {
	out := make(AuditTrail, len(t), len(t)+1)
	copy(out, t)
	return append(out, rec)
}

// Nodes returns the node names in execution order.
func (t AuditTrail) Nodes() []string {
	nodes := make([]string, len(t))
	for i, rec := range t {
		nodes[i] = rec.Node
	}
	return nodes
}

// AnswerPayload is the response shape of the request boundary.
type AnswerPayload struct {
	Answer      string            `json:"answer"`
	Citations   []string          `json:"citations"`
	Uncertainty *Uncertainty      `json:"uncertainty"`
	Validation  *ValidationReport `json:"validation"`
	Decision    Decision          `json:"decision"`
}

// RunRecord is one completed pipeline run as kept in the run ledger.
type RunRecord struct {
	ID          string            `json:"id"`
	Query       string            `json:"query"`
	Intent      Intent            `json:"intent"`
	Decision    Decision          `json:"decision"`
	Answer      string            `json:"answer"`
	Citations   []string          `json:"citations"`
	Uncertainty *Uncertainty      `json:"uncertainty,omitempty"`
	Validation  *ValidationReport `json:"validation,omitempty"`
	AuditTrail  AuditTrail        `json:"audit_trail"`
	Backend     string            `json:"backend"`
	Duration    time.Duration     `json:"duration_ns"`
	CreatedAt   time.Time         `json:"created_at"`
}
