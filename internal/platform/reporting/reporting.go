// Package reporting renders the end-of-session audit report: overall
// outcomes, the confidence distribution, correction counts and a preview of
// the manual-review queue.
package reporting

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/medoco-health/dtxlink/internal/domain/batch"
)

// maxReviewPreview caps how many review-queue entries the report lists.
const maxReviewPreview = 10

// Write renders the session report for one batch result.
func Write(w io.Writer, result *batch.Result) error {
	snap := result.Statistics

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "MATCHING SESSION REPORT\t\n")
	fmt.Fprintf(tw, "Session:\t%s\n", snap.SessionID)
	fmt.Fprintf(tw, "\t\n")

	fmt.Fprintf(tw, "Total processed:\t%d\n", snap.TotalProcessed)
	fmt.Fprintf(tw, "Auto matched:\t%d\n", snap.AutoMatched)
	fmt.Fprintf(tw, "Manual review:\t%d\n", snap.ManualReviewRequired)
	fmt.Fprintf(tw, "No match:\t%d\n", snap.NoMatches)
	fmt.Fprintf(tw, "Match rate:\t%.1f%%\n", snap.MatchRate()*100)
	fmt.Fprintf(tw, "Auto-match rate:\t%.1f%%\n", snap.AutoMatchRate()*100)
	fmt.Fprintf(tw, "\t\n")

	fmt.Fprintf(tw, "CONFIDENCE DISTRIBUTION\t\n")
	fmt.Fprintf(tw, "Gold standard:\t%d\n", snap.GoldStandardMatches)
	fmt.Fprintf(tw, "High:\t%d\n", snap.HighConfidenceMatches)
	fmt.Fprintf(tw, "Moderate:\t%d\n", snap.ModerateConfidenceMatches)
	fmt.Fprintf(tw, "Acceptable:\t%d\n", snap.AcceptableConfidenceMatches)
	fmt.Fprintf(tw, "\t\n")

	fmt.Fprintf(tw, "CORRECTIONS\t\n")
	fmt.Fprintf(tw, "Gender mismatches:\t%d\n", snap.GenderCorrections)
	fmt.Fprintf(tw, "Date corrections:\t%d\n", snap.DateCorrections)
	fmt.Fprintf(tw, "Name flips:\t%d\n", snap.NameFlips)
	fmt.Fprintf(tw, "Partial name matches:\t%d\n", snap.PartialNameMatches)
	fmt.Fprintf(tw, "Reference gender errors:\t%d\n", snap.ReferenceGenderErrors)

	if len(result.ReviewQueue) > 0 {
		fmt.Fprintf(tw, "\t\n")
		fmt.Fprintf(tw, "MANUAL REVIEW QUEUE (%d total)\t\n", len(result.ReviewQueue))
		for i, item := range result.ReviewQueue {
			if i == maxReviewPreview {
				fmt.Fprintf(tw, "... and %d more\t\n", len(result.ReviewQueue)-maxReviewPreview)
				break
			}
			fmt.Fprintf(tw, "%s %s\t%s (%.0f%%) %s\n",
				item.Row["family_name"], item.Row["given_name"],
				item.Result.MatchType, item.Result.Confidence*100, item.Reason)
		}
	}

	return tw.Flush()
}
