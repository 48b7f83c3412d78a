package checks

import (
	"fmt"

	"github.com/hakim/threatscore/internal/models"
)

// intelChecks score the aggregated threat-intel summary. They run on
// every branch: the summary exists even when the target is unreachable.
var intelChecks = []Check{
	{
		ID:        "TI_TIER1_HIT",
		Category:  "threat_intel",
		MaxPoints: 25,
		Needs:     needNone,
		Run: func(in Input) (models.CheckStatus, int, string, map[string]string) {
			if in.Intel.Tier1Hits > 0 {
				return models.CheckFail, 25,
					fmt.Sprintf("%d tier-1 reputation source(s) report this target", in.Intel.Tier1Hits), nil
			}
			return models.CheckPass, 0, "no tier-1 reputation hits", nil
		},
	},
	{
		ID:        "TI_COMMUNITY_HITS",
		Category:  "threat_intel",
		MaxPoints: 15,
		Needs:     needNone,
		Run: func(in Input) (models.CheckStatus, int, string, map[string]string) {
			switch {
			case in.Intel.Tier2Hits >= 2:
				return models.CheckFail, 15,
					fmt.Sprintf("%d community sources report this target", in.Intel.Tier2Hits), nil
			case in.Intel.Tier2Hits == 1:
				return models.CheckWarn, 8, "one community source reports this target", nil
			default:
				return models.CheckPass, 0, "no community reputation hits", nil
			}
		},
	},
	{
		ID:        "TI_RECENT_ACTIVITY",
		Category:  "threat_intel",
		MaxPoints: 15,
		Needs:     needNone,
		Run: func(in Input) (models.CheckStatus, int, string, map[string]string) {
			if in.Intel.RecentHit {
				return models.CheckWarn, 15, "reputation hit within the recency window", nil
			}
			if in.Intel.Total > 0 {
				return models.CheckWarn, 5, "only stale reputation hits", nil
			}
			return models.CheckPass, 0, "no recent reputation activity", nil
		},
	},
}
