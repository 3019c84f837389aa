package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/rotisserie/eris"

	"github.com/sells-group/hr-monitor/internal/analysis"
	"github.com/sells-group/hr-monitor/internal/anonymize"
	"github.com/sells-group/hr-monitor/internal/export"
	"github.com/sells-group/hr-monitor/internal/model"
)

// formatTable is the CLI-only format printed to the terminal.
const formatTable = "table"

// parseOutputFormat accepts "table" plus every export format. Binary
// formats need an output path.
func parseOutputFormat(format, output string) (export.Format, bool, error) {
	if format == formatTable || format == "" {
		return "", true, nil
	}
	f, err := export.ParseFormat(format)
	if err != nil {
		return "", false, err
	}
	if (f == export.FormatPDF || f == export.FormatXLSX) && output == "" {
		return "", false, eris.Errorf("--output is required for %s", f)
	}
	return f, false, nil
}

// withOutput runs fn against the file at path, or stdout when path is empty.
func withOutput(path string, fn func(io.Writer) error) error {
	if path == "" {
		return fn(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "create %s", path)
	}
	if err := fn(f); err != nil {
		_ = f.Close()
		return err
	}
	return eris.Wrapf(f.Close(), "close %s", path)
}

// reportValidation prints blocking validation results and returns an error
// when err is one.
func reportValidation(out io.Writer, err error) error {
	var verr *analysis.ValidationError
	if !errors.As(err, &verr) {
		return err
	}
	for _, e := range verr.Result.Errors {
		_, _ = fmt.Fprintf(out, "error: %s\n", e)
	}
	printWarnings(out, verr.Result.Warnings)
	return err
}

func printWarnings(out io.Writer, warnings []string) {
	for _, w := range warnings {
		_, _ = fmt.Fprintf(out, "warning: %s\n", w)
	}
}

func formatAttrition(out io.Writer, run *analysis.AttritionRun, anon *anonymize.Anonymizer) {
	s := run.Summary
	_, _ = fmt.Fprintf(out, "Model: %s  Employees: %d  High: %d  Medium: %d  Low: %d  Median: %.1f%%  Avg OT: %.1fh\n",
		run.Metadata.Model, s.Total, s.High, s.Medium, s.Low, s.MedianProbability, s.MeanOvertime)
	_, _ = fmt.Fprintf(out, "Thresholds: Medium >= %.0f%%, High >= %.0f%%\n\n", run.Thresholds.Medium, run.Thresholds.High)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "EMPLOYEE\tPROBABILITY\tTIER\tTENURE\tOVERTIME\tPTO\tRATING")
	for _, r := range run.Displayed {
		_, _ = fmt.Fprintf(w, "%s\t%.1f%%\t%s\t%s\t%s\t%s\t%s\n",
			pseudonym(anon, r.EmployeeID), r.Probability, r.Tier,
			optional(r.Tenure), optional(r.Overtime), optional(r.PTORate), optional(r.Rating))
	}
	_ = w.Flush()

	_, _ = fmt.Fprintf(out, "\n%s\n", run.Comment.Text)
}

func formatAttendance(out io.Writer, run *analysis.AttendanceRun, anon *anonymize.Anonymizer) {
	s := run.Summary
	_, _ = fmt.Fprintf(out, "Records: %d  Anomalies: %d  Long shift: %d  Long streak: %d  Overtime z: %d\n\n",
		run.Records, s.Count, s.LongShift, s.LongStreak, s.ZScore)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "EMPLOYEE\tDATE\tHOURS\tOVERTIME\tSTREAK\tFLAGS")
	for _, a := range run.Displayed {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
			pseudonym(anon, a.EmployeeID), a.Date.Format("2006-01-02"),
			num(a.HoursWorked), num(a.OvertimeHours), a.Streak, flags(a))
	}
	_ = w.Flush()

	_, _ = fmt.Fprintf(out, "\n%s\n", run.Comment.Text)
}

func flags(a model.AnomalyRecord) string {
	var s string
	add := func(on bool, name string) {
		if !on {
			return
		}
		if s != "" {
			s += ","
		}
		s += name
	}
	add(a.LongShift, "long")
	add(a.LongStreak, "streak")
	add(a.ZScoreFlag, "z")
	return s
}

func pseudonym(a *anonymize.Anonymizer, id string) string {
	if a == nil {
		return id
	}
	return a.Pseudonym(id)
}

func optional(v *float64) string {
	if v == nil {
		return "-"
	}
	return num(*v)
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
