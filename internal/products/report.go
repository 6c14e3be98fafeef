package products

// BatchOutcome classifies how a variant batch landed.
type BatchOutcome string

const (
	AllSucceeded   BatchOutcome = "all_succeeded"
	PartialFailure BatchOutcome = "partial_failure"
	AllFailed      BatchOutcome = "all_failed"
)

// FailedVariant identifies one variant that could not be applied.
type FailedVariant struct {
	ExternalID int64  `json:"external_id"`
	Reason     string `json:"reason"`
}

// BatchReport accumulates per-variant results for one product webhook. The
// loop never aborts early: every variant is attempted and every failure is
// reported so operators can reconcile.
type BatchReport struct {
	Applied int             `json:"applied"`
	Failed  []FailedVariant `json:"failed,omitempty"`
}

// Outcome tags the report.
func (r BatchReport) Outcome() BatchOutcome {
	switch {
	case len(r.Failed) == 0:
		return AllSucceeded
	case r.Applied == 0:
		return AllFailed
	default:
		return PartialFailure
	}
}
