package cli

import (
	"fmt"
	"io"
	"strconv"

	"example.com/intensity/internal/cli/output"
	"example.com/intensity/internal/domain"
	"example.com/intensity/internal/record"
	"example.com/intensity/internal/stats"
)

const barWidth = 20

func renderRecords(w io.Writer, view *domain.RecordView) {
	if len(view.Records) == 0 {
		fmt.Fprintln(w, output.Muted("No records."))
	} else {
		tbl := output.NewTable("ID", "Date", "Time", "Intensity", "Type", "Memo")
		for _, r := range view.Records {
			tbl.AddRow(
				r.ID,
				r.Date.String(),
				string(r.TimeOfDay),
				output.Band(r.Band, fmt.Sprintf("%2d %s", r.Intensity, r.Band)),
				r.ExerciseType,
				r.Memo,
			)
		}
		fmt.Fprint(w, tbl.Render())
	}
	fmt.Fprintf(w, "%s %v\n", output.Muted("Categories:"), view.Categories)
}

func renderReport(w io.Writer, report *stats.Report, thresholds record.Thresholds) {
	fmt.Fprintln(w, output.Header(fmt.Sprintf("Statistics (%s)", report.Period)))
	fmt.Fprintf(w, "%s%s\n", output.Label("Workouts"), output.Bold(strconv.Itoa(report.TotalWorkouts)))
	fmt.Fprintf(w, "%s%s\n", output.Label("Average intensity"), output.Bold(fmt.Sprintf("%.1f", report.AverageIntensity)))
	fmt.Fprintf(w, "%s%s\n", output.Label("Max intensity"), output.Bold(strconv.Itoa(report.MaxIntensity)))
	fmt.Fprintf(w, "%s%s\n", output.Label("Total score"), output.Bold(strconv.Itoa(report.TotalIntensityScore)))
	fmt.Fprintf(w, "%s%s\n", output.Label("Consistency"), output.Bold(fmt.Sprintf("%d%%", report.Consistency)))

	fmt.Fprintln(w)
	fmt.Fprintln(w, output.Header("Last 7 days"))
	for _, p := range report.Trend {
		band := thresholds.Classify(int(p.Intensity + 0.5))
		fmt.Fprintf(w, "%s %s %s\n", p.Date, p.Label, output.IntensityBar(p.Intensity, band, barWidth))
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, output.Header("Time of day"))
	for _, c := range report.TimeOfDay {
		fmt.Fprintf(w, "%s%s\n", output.Label(string(c.TimeOfDay)), output.CountBar(c.Count, report.TotalWorkouts, barWidth))
	}

	if len(report.ExerciseTypeDistribution) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, output.Header("Exercise types"))
		for _, c := range report.ExerciseTypeDistribution {
			fmt.Fprintf(w, "%s%s\n", output.Label(c.ExerciseType), output.CountBar(c.Count, report.TotalWorkouts, barWidth))
		}
	}
}

func renderLeaderboard(w io.Writer, standings []stats.Standing) {
	tbl := output.NewTable("Rank", "User", "Weekly score")
	for _, s := range standings {
		name := s.Username
		if s.IsUser {
			name = output.Bold(name + " (you)")
		}
		tbl.AddRow(strconv.Itoa(s.Rank), name, strconv.Itoa(s.Score))
	}
	fmt.Fprint(w, tbl.Render())
}
