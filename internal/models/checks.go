package models

// CheckResult is the outcome of one category check.
type CheckResult struct {
	ID       string      `json:"id"`
	Category string      `json:"category"`
	Status   CheckStatus `json:"status"`

	// Points is what the check earned out of MaxPoints. INFO checks earn
	// nothing and contribute nothing to the possible total.
	Points    int `json:"points"`
	MaxPoints int `json:"max_points"`

	Description string            `json:"description"`
	Evidence    map[string]string `json:"evidence,omitempty"`

	// Skipped marks a check whose required evidence class is unobtainable
	// on the current reachability branch. Skipped checks contribute to
	// neither earned nor possible points.
	Skipped    bool   `json:"skipped,omitempty"`
	SkipReason string `json:"skip_reason,omitempty"`
}

// CategoryResult aggregates the checks of one category.
//
// Skipped is true if and only if the category declined to execute because
// the reachability branch makes its evidence unobtainable. Skipped
// categories contribute zero to both earned and possible totals.
type CategoryResult struct {
	Category   string        `json:"category"`
	Earned     int           `json:"earned"`
	Possible   int           `json:"possible"`
	Skipped    bool          `json:"skipped"`
	SkipReason string        `json:"skip_reason,omitempty"`
	Checks     []CheckResult `json:"checks,omitempty"`
}
