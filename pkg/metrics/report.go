package metrics

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
)

const maxBarWidth = 40

// WriteTable renders per-class IoU, SIoU and support in ascending IoU order
// with a bar chart scaled to [0,1].
func (r *Report) WriteTable(w io.Writer, classNames []string) error {
	type classRow struct {
		Name    string
		IoU     float64
		SIoU    float64
		Support int64
	}

	rows := make([]classRow, len(r.IoU))
	for c := range rows {
		rows[c] = classRow{Name: className(classNames, c), IoU: r.IoU[c]}
		if c < len(r.SIoU) {
			rows[c].SIoU = r.SIoU[c]
		}
		if c < len(r.Support) {
			rows[c].Support = r.Support[c]
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].IoU < rows[j].IoU
	})

	var b strings.Builder
	fmt.Fprintf(&b, "\nPer-class IoU (ascending):\n")
	fmt.Fprintf(&b, "%-16s | %-8s | %-8s | %-10s | %s\n", "Class", "IoU", "SIoU", "Support", "Bar")
	b.WriteString(strings.Repeat("-", 17) + "|" + strings.Repeat("-", 10) + "|" + strings.Repeat("-", 10) + "|" + strings.Repeat("-", 12) + "|" + strings.Repeat("-", maxBarWidth+1) + "\n")

	for _, row := range rows {
		barWidth := int(row.IoU * maxBarWidth)
		bar := strings.Repeat("█", barWidth)
		if barWidth == 0 {
			bar = "▏"
		}
		fmt.Fprintf(&b, "%-16s | %.6f | %.6f | %10d | %s\n", row.Name, row.IoU, row.SIoU, row.Support, bar)
	}

	fmt.Fprintf(&b, "\nOA=%.6f  mIoU=%.6f  mSIoU=%.6f  points=%d\n", r.OverallAccuracy, r.MeanIoU, r.MeanSIoU, r.NumPoints)

	_, err := io.WriteString(w, b.String())
	return err
}

// LogSummary prints the headline numbers through the global logger.
func (r *Report) LogSummary(classNames []string) {
	log.Info().Msgf("Overall accuracy: %.4f", r.OverallAccuracy)
	log.Info().Msgf("Mean IoU: %.4f", r.MeanIoU)
	for c, v := range r.IoU {
		log.Info().Msgf("IoU %s: %.4f", className(classNames, c), v)
	}
	log.Info().Msgf("Mean SIoU: %.4f", r.MeanSIoU)
}

func className(names []string, c int) string {
	if c < len(names) && names[c] != "" {
		return names[c]
	}
	return fmt.Sprintf("class_%d", c)
}
