package checks

import (
	"fmt"

	"github.com/hakim/threatscore/internal/models"
)

// identityChecks and brandScreenshotChecks read the screenshot analysis.
// Screenshots exist only on the ONLINE branch and can be disabled per
// scan, in which case the checks degrade to INFO.
var identityChecks = []Check{
	{
		ID:        "IDENT_CREDENTIAL_HARVEST",
		Category:  "identity_theft",
		MaxPoints: 30,
		Needs:     needScreenshot,
		Run: func(in Input) (models.CheckStatus, int, string, map[string]string) {
			s := in.Bundle.Screenshot
			if s == nil {
				return models.CheckInfo, 0, "screenshot unavailable", nil
			}
			if s.LoginFormVisible && s.BrandLogoDetected {
				return models.CheckFail, 30,
					fmt.Sprintf("login prompt rendered under %s branding on a foreign domain", s.DetectedBrand),
					map[string]string{"brand": s.DetectedBrand, "screenshot": s.Ref}
			}
			if s.LoginFormVisible {
				return models.CheckWarn, 10, "login prompt visible on landing page", nil
			}
			return models.CheckPass, 0, "no credential prompt on landing page", nil
		},
	},
}

var brandScreenshotChecks = []Check{
	{
		ID:        "BRAND_VISUAL_DIVERGENCE",
		Category:  "brand",
		MaxPoints: 25,
		Needs:     needScreenshot,
		Run: func(in Input) (models.CheckStatus, int, string, map[string]string) {
			s := in.Bundle.Screenshot
			if s == nil {
				return models.CheckInfo, 0, "screenshot unavailable", nil
			}
			if in.Features.Causal.BrandInfraDivergence {
				return models.CheckFail, 25,
					fmt.Sprintf("page presents as %s but is not served from that brand's infrastructure", s.DetectedBrand),
					map[string]string{"brand": s.DetectedBrand}
			}
			return models.CheckPass, 0, "visual branding matches serving infrastructure", nil
		},
	},
}
