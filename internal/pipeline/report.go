package pipeline

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sells-group/profile-cli/internal/model"
)

// FormatReport generates a human-readable build report.
func FormatReport(name string, res *BuildResult) string {
	var b strings.Builder

	if name == "" {
		name = res.PersonID
	}
	fmt.Fprintf(&b, "# Build Report: %s\n", name)
	fmt.Fprintf(&b, "Person ID: %s\n\n", res.PersonID)

	b.WriteString("## Summary\n")
	fmt.Fprintf(&b, "- Status: %s\n", res.Status)
	fmt.Fprintf(&b, "- Completeness: %d (%s)\n", res.Completeness, res.Score.Grade)
	fmt.Fprintf(&b, "- Items persisted: %d", res.Persisted)
	if res.PersistFails > 0 {
		fmt.Fprintf(&b, " (%d failed)", res.PersistFails)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "- Duration: %s\n\n", res.Duration.Round(time.Millisecond))

	b.WriteString("## Sources\n")
	if len(res.Results) == 0 {
		b.WriteString("No sources ran.\n")
	}
	for _, r := range res.Results {
		switch {
		case r.Skipped:
			fmt.Fprintf(&b, "- %s: skipped (%s)\n", r.Source, r.SkipReason)
		case r.Failed():
			fmt.Fprintf(&b, "- %s: failed after %d attempts\n", r.Source, r.Stats.Attempts)
			if r.Error != nil {
				fmt.Fprintf(&b, "  Error: %s\n", r.Error.Error())
			}
		default:
			fmt.Fprintf(&b, "- %s: %d items (%dms)\n", r.Source, len(r.Items), r.Stats.DurationMs)
		}
	}
	b.WriteString("\n")

	b.WriteString("## QA\n")
	fmt.Fprintf(&b, "- Approved: %d, fixed: %d, updated: %d, unchanged: %d, rejected: %d\n",
		res.QA.Approved, res.QA.Fixed, res.QA.Updated, res.QA.Unchanged, res.QA.Rejected)
	reasons := rejectionReasons(res.QA.Rejections)
	keys := make([]string, 0, len(reasons))
	for k := range reasons {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "  - %s: %d\n", k, reasons[k])
	}
	b.WriteString("\n")

	b.WriteString("## Career\n")
	if res.Career.Events == 0 {
		b.WriteString("No career events.\n")
	} else {
		fmt.Fprintf(&b, "- Events: %d, organizations created: %d\n", res.Career.Events, res.Career.OrgsCreated)
		fmt.Fprintf(&b, "- Roles inserted: %d, updated: %d, unchanged: %d, skipped: %d\n",
			res.Career.RolesInserted, res.Career.RolesUpdated, res.Career.RolesUnchanged, res.Career.Skipped)
	}

	return b.String()
}

func rejectionReasons(rejections []model.Rejection) map[string]int {
	out := make(map[string]int, len(rejections))
	for _, r := range rejections {
		reason := r.Reason
		// low_confidence:0.42 groups under its prefix.
		if i := strings.IndexByte(reason, ':'); i > 0 && strings.HasPrefix(reason, "low_confidence") {
			reason = reason[:i]
		}
		out[reason]++
	}
	return out
}
