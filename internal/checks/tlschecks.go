package checks

import (
	"fmt"

	"github.com/hakim/threatscore/internal/models"
)

// tlsChecks inspect the served certificate. TLS evidence only exists on
// the ONLINE branch; elsewhere the whole category is skipped.
var tlsChecks = []Check{
	{
		ID:        "TLS_INVALID_CHAIN",
		Category:  "tls",
		MaxPoints: 20,
		Needs:     needTLS,
		Run: func(in Input) (models.CheckStatus, int, string, map[string]string) {
			t := in.Bundle.TLS
			if t == nil {
				return models.CheckInfo, 0, "certificate inspection failed", nil
			}
			if t.SelfSigned {
				return models.CheckFail, 20, "self-signed certificate", nil
			}
			if !t.Valid {
				return models.CheckFail, 15, "certificate chain does not verify", nil
			}
			return models.CheckPass, 0, "certificate chain verifies", map[string]string{"issuer": t.Issuer}
		},
	},
	{
		ID:        "TLS_EXPIRY",
		Category:  "tls",
		MaxPoints: 10,
		Needs:     needTLS,
		Run: func(in Input) (models.CheckStatus, int, string, map[string]string) {
			t := in.Bundle.TLS
			if t == nil {
				return models.CheckInfo, 0, "certificate inspection failed", nil
			}
			switch {
			case t.DaysToExpiry < 0:
				return models.CheckFail, 10, "certificate has expired", nil
			case t.DaysToExpiry < 14:
				return models.CheckWarn, 5, fmt.Sprintf("certificate expires in %d days", t.DaysToExpiry), nil
			default:
				return models.CheckPass, 0, "certificate validity window is healthy", nil
			}
		},
	},
}
