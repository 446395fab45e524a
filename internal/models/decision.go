package models

// DecisionKind classifies the matcher's verdict for one record.
type DecisionKind string

const (
	DecisionCreate DecisionKind = "create"
	DecisionUpdate DecisionKind = "update"
	DecisionSkip   DecisionKind = "skip"
)

// SkipReason explains why a record was skipped.
type SkipReason string

const (
	SkipNewNotAllowed    SkipReason = "new_not_allowed"
	SkipUpdateNotAllowed SkipReason = "update_not_allowed"
	SkipInvalidRecord    SkipReason = "invalid_record"
)

// FieldDiff carries the changed fields for an update, keyed by storage field
// name. Only price, stock flag and the last-scraped timestamp are ever
// overwritten; user-edited fields such as description or category appear
// here only when the incoming record carries a non-empty value.
type FieldDiff map[string]interface{}

// MatchDecision is the matcher's output for one normalized record.
// Exactly one of the kind-specific payloads is populated:
// Record for create, MaterialID+Diff for update, Reason for skip.
type MatchDecision struct {
	Kind       DecisionKind    `json:"kind"`
	Record     *MaterialRecord `json:"record,omitempty"`
	MaterialID string          `json:"material_id,omitempty"`
	Diff       FieldDiff       `json:"diff,omitempty"`
	Reason     SkipReason      `json:"reason,omitempty"`
}
