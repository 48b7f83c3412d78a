package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hakim/threatscore/internal/storage"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show scan history for a hostname",
	Long: `Display a formatted table of past scans for a hostname.

Scans are listed newest-first. Each row shows the scan ID (truncated),
start time, reachability branch, risk level and calibrated probability.

Use --limit to cap the number of rows shown (default: 10).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		hostname, _ := cmd.Flags().GetString("hostname")
		limit, _ := cmd.Flags().GetInt("limit")

		store, err := storage.NewStore(snap.DBPath)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer store.Close()

		results, err := store.ListResults(hostname)
		if err != nil {
			return fmt.Errorf("listing scans for %s: %w", hostname, err)
		}

		if len(results) == 0 {
			fmt.Printf("No scan history found for %s\n", hostname)
			return nil
		}

		if limit > 0 && len(results) > limit {
			results = results[:limit]
		}

		const separator = "────────────────────────────────────────────────────────────────────────"

		fmt.Printf("\nScan History for %s\n", hostname)
		fmt.Println(separator)
		fmt.Printf("  %-3s  %-12s  %-17s  %-9s  %-5s  %s\n", "#", "Scan ID", "Started", "Branch", "Band", "Probability")
		fmt.Println(separator)

		for i, r := range results {
			prob := "-"
			if r.Verdict != nil {
				prob = fmt.Sprintf("%.3f", r.Verdict.Probability)
			}
			band := string(r.RiskLevel)
			if r.Incomplete {
				band += "*"
			}
			fmt.Printf("  %-3d  %-12s  %-17s  %-9s  %-5s  %s\n",
				i+1, shortScanID(r.ScanID), r.StartedAt.UTC().Format("2006-01-02 15:04"),
				r.Reachability.State, band, prob)
		}

		fmt.Println(separator)
		fmt.Printf("Total: %d scan(s)  (* = partial result)\n\n", len(results))

		return nil
	},
}

// shortScanID returns the first 8 characters of a UUID followed by "..."
// for compact table display. Falls back to the full ID when shorter.
func shortScanID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8] + "..."
}

func init() {
	historyCmd.Flags().StringP("hostname", "n", "", "Hostname to list scans for (required)")
	historyCmd.Flags().Int("limit", 10, "Maximum number of scans to display")
	historyCmd.MarkFlagRequired("hostname")
	rootCmd.AddCommand(historyCmd)
}
