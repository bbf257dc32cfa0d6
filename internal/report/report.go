// Package report renders analysis results for files and terminals.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"
	"github.com/vadiminshakov/bridgetvl/internal/services/tvl"
)

const timeLayout = "2006-01-02 15:04:05 MST"

var summaryStyle = lipgloss.NewStyle().
	Foreground(lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}).
	Bold(true)

// Write renders the report: the total value series, the per-interval TWAP
// block, and the full-range summary line.
func Write(w io.Writer, rep *tvl.Report) error {
	if _, err := fmt.Fprintf(w, "Timestamp, TVL_%s\n", rep.Range.Currency); err != nil {
		return errors.Wrap(err, "write report")
	}
	for _, p := range rep.Total {
		if _, err := fmt.Fprintf(w, "%d, %s\n", p.Timestamp, p.Value.String()); err != nil {
			return errors.Wrap(err, "write report")
		}
	}

	if _, err := fmt.Fprintf(w, "\nintervalStart, TVL_%s\n", rep.Range.Currency); err != nil {
		return errors.Wrap(err, "write report")
	}
	for _, iv := range rep.Intervals {
		if _, err := fmt.Fprintf(w, "%d, %s\n", iv.Start, iv.Value.String()); err != nil {
			return errors.Wrap(err, "write report")
		}
	}

	if _, err := fmt.Fprintf(w, "\n%s\n", Summary(rep)); err != nil {
		return errors.Wrap(err, "write report")
	}
	return nil
}

// Summary is the one-line human-readable result.
func Summary(rep *tvl.Report) string {
	start := time.Unix(rep.Range.Start, 0).UTC().Format(timeLayout)
	end := time.Unix(rep.Range.End, 0).UTC().Format(timeLayout)
	return fmt.Sprintf("TWAP for %s - %s: %s %s", start, end, rep.TWAP.String(), rep.Range.Currency)
}

// StyledSummary is Summary dressed for the terminal.
func StyledSummary(rep *tvl.Report) string {
	return summaryStyle.Render(Summary(rep))
}
