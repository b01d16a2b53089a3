package ir

// Severity levels for findings.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Risk tiers attached to findings and edit operations.
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// Finding is a detected issue, not necessarily tied to an edit. Findings
// accumulate read-only across pipeline stages into the final report; they are
// never retracted.
type Finding struct {
	RuleID   string            `json:"rule_id"`
	Severity string            `json:"severity"`
	Category string            `json:"category"`
	Message  string            `json:"message"`
	Ref      *BlockRef         `json:"ref,omitempty"`
	Before   string            `json:"before,omitempty"`
	After    string            `json:"after,omitempty"`
	RiskTier string            `json:"risk_tier"`
	Details  map[string]string `json:"details,omitempty"`
}
