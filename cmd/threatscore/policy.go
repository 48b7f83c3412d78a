package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hakim/threatscore/internal/models"
	"github.com/hakim/threatscore/internal/policy"
)

// policyInput is the JSON document the policy subcommand evaluates:
// everything the rule table reads, without running a scan. Calibration
// tooling uses this to replay historical inputs against the current rules.
type policyInput struct {
	Features     models.FeatureVector `json:"features"`
	Intel        models.TISummary     `json:"intel"`
	Reachability models.Reachability  `json:"reachability"`
}

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Evaluate the policy rules over a JSON input",
	Long: `Run the ordered hard-override rule table against a JSON document
containing a feature vector, a threat-intel summary and a reachability
state, without scanning anything.

The rules are evaluated first-match-wins in their fixed order. The output
is the resulting PolicyDecision as JSON.

Example input document:
  {"features": {...}, "intel": {...}, "reachability": "ONLINE"}`,
	RunE: func(cmd *cobra.Command, args []string) error {
		inputPath, _ := cmd.Flags().GetString("file")

		data, err := os.ReadFile(inputPath)
		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}

		var in policyInput
		if err := json.Unmarshal(data, &in); err != nil {
			return fmt.Errorf("parsing input: %w", err)
		}

		engine := policy.NewEngine(snap.Policy)
		decision := engine.Evaluate(in.Features, in.Intel, in.Reachability)

		out, err := json.MarshalIndent(decision, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding decision: %w", err)
		}
		fmt.Println(string(out))

		if !decision.Overridden {
			fmt.Fprintln(os.Stderr, "[*] No rule matched; the calibrated verdict stands.")
		}
		return nil
	},
}

var policyRulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the policy rules in evaluation order",
	RunE: func(cmd *cobra.Command, args []string) error {
		for i, id := range policy.RuleIDs() {
			fmt.Printf("%d. %s\n", i+1, id)
		}
		return nil
	},
}

func init() {
	policyCmd.Flags().StringP("file", "f", "", "JSON input file (required)")
	policyCmd.MarkFlagRequired("file")

	policyCmd.AddCommand(policyRulesCmd)
	rootCmd.AddCommand(policyCmd)
}
