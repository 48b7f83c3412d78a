package models

// Reachability classifies what kind of target the prober found.
// It gates which evidence can be collected and which checks can run.
type Reachability string

const (
	ReachOnline   Reachability = "ONLINE"
	ReachOffline  Reachability = "OFFLINE"
	ReachParked   Reachability = "PARKED"
	ReachWAF      Reachability = "WAF"
	ReachSinkhole Reachability = "SINKHOLE"

	// ReachUnprobed marks a scan the intel gate terminated before any
	// probing happened. The prober never produces it.
	ReachUnprobed Reachability = "UNPROBED"
)

// RiskBand is the categorical verdict, ordered from safest (A) to
// confirmed threat (F).
type RiskBand string

const (
	BandA RiskBand = "A"
	BandB RiskBand = "B"
	BandC RiskBand = "C"
	BandD RiskBand = "D"
	BandE RiskBand = "E"
	BandF RiskBand = "F"
)

// bandOrder maps each band to its position in the A..F ordering.
var bandOrder = map[RiskBand]int{
	BandA: 0, BandB: 1, BandC: 2, BandD: 3, BandE: 4, BandF: 5,
}

// Ordinal returns the band's position in the A..F ordering (A=0, F=5).
// Unknown bands sort before A.
func (b RiskBand) Ordinal() int {
	if n, ok := bandOrder[b]; ok {
		return n
	}
	return -1
}

// MoreSevere reports whether b is a more severe band than other.
func (b RiskBand) MoreSevere(other RiskBand) bool {
	return b.Ordinal() > other.Ordinal()
}

// Severity is the severity attached to a threat-intel finding.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// CheckStatus is the outcome of a single category check.
//
// INFO is reported when a check ran but its required evidence was absent;
// it is deliberately distinct from PASS (checked and clean) and from a
// skipped check (the category never ran for this reachability branch).
type CheckStatus string

const (
	CheckPass CheckStatus = "PASS"
	CheckWarn CheckStatus = "WARN"
	CheckFail CheckStatus = "FAIL"
	CheckInfo CheckStatus = "INFO"
)

// PredictorKind distinguishes a trained model endpoint from the built-in
// rule-based fallback that stands in when no endpoint is configured.
type PredictorKind string

const (
	PredictorTrained   PredictorKind = "trained"
	PredictorHeuristic PredictorKind = "heuristic-fallback"
)
