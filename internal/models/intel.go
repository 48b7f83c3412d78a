package models

import "time"

// TIFinding is one reputation hit from a single threat-intel source.
type TIFinding struct {
	Source   string    `json:"source"`
	Tier     int       `json:"tier"` // 1=premium, 2=community, 3=supplementary
	Severity Severity  `json:"severity"`
	LastSeen time.Time `json:"last_seen"`
}

// TISummary aggregates the findings from every queried source into the
// counts and derived flags the gate, policy engine and feature extractor
// consume.
type TISummary struct {
	Total     int `json:"total"`
	Tier1Hits int `json:"tier1_hits"`
	Tier2Hits int `json:"tier2_hits"`

	// DualTier1 is set when two or more independent tier-1 sources agree.
	DualTier1 bool `json:"dual_tier1"`

	// CriticalTier1 is set when any single tier-1 finding carries critical
	// severity.
	CriticalTier1 bool `json:"critical_tier1"`

	// RecentHit is set when any finding was last seen within the configured
	// recency window.
	RecentHit bool `json:"recent_hit"`

	NewestSeen time.Time   `json:"newest_seen,omitzero"`
	Findings   []TIFinding `json:"findings,omitempty"`
}

// SummarizeFindings folds raw findings into a TISummary. recencyWindow
// bounds the RecentHit flag; now anchors the window so summaries are
// reproducible in tests.
func SummarizeFindings(findings []TIFinding, now time.Time, recencyWindow time.Duration) TISummary {
	s := TISummary{Findings: findings}

	tier1Sources := map[string]bool{}
	cutoff := now.Add(-recencyWindow)

	for _, f := range findings {
		s.Total++
		switch f.Tier {
		case 1:
			s.Tier1Hits++
			tier1Sources[f.Source] = true
			if f.Severity == SeverityCritical {
				s.CriticalTier1 = true
			}
		case 2:
			s.Tier2Hits++
		}
		if !f.LastSeen.IsZero() {
			if f.LastSeen.After(cutoff) {
				s.RecentHit = true
			}
			if f.LastSeen.After(s.NewestSeen) {
				s.NewestSeen = f.LastSeen
			}
		}
	}

	s.DualTier1 = len(tier1Sources) >= 2
	return s
}
