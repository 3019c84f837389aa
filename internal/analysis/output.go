package analysis

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"

	"github.com/sells-group/hr-monitor/internal/anonymize"
	"github.com/sells-group/hr-monitor/internal/export"
	"github.com/sells-group/hr-monitor/internal/model"
)

// WriteAttrition renders run in format f. Tables and JSON carry the
// displayed rows; the PDF covers every result. Identifiers are
// pseudonymized only in the written output when anon is set.
func (s *Service) WriteAttrition(w io.Writer, run *AttritionRun, f export.Format, anon bool) error {
	a := s.OutputAnonymizer(anon)
	switch f {
	case export.FormatCSV, export.FormatXLSX:
		return export.Write(w, export.RiskFrame(run.Displayed, a), f, export.SheetAttrition)
	case export.FormatPDF:
		return s.reports.Attrition(w, run.Results, run.Metadata, run.Thresholds, a)
	case export.FormatJSON:
		return writeJSON(w, run.Anonymized(a))
	}
	return eris.Errorf("analysis: unsupported format %q", f)
}

// WriteAttendance renders run in format f.
func (s *Service) WriteAttendance(w io.Writer, run *AttendanceRun, f export.Format, anon bool) error {
	a := s.OutputAnonymizer(anon)
	switch f {
	case export.FormatCSV, export.FormatXLSX:
		return export.Write(w, export.AnomalyFrame(run.Displayed, a), f, export.SheetAttendance)
	case export.FormatPDF:
		return s.reports.Attendance(w, run.Anomalies, a)
	case export.FormatJSON:
		return writeJSON(w, run.Anonymized(a))
	}
	return eris.Errorf("analysis: unsupported format %q", f)
}

// OutputAnonymizer returns the configured anonymizer when on is set, nil
// otherwise.
func (s *Service) OutputAnonymizer(on bool) *anonymize.Anonymizer {
	if !on {
		return nil
	}
	return s.anonymize
}

// Anonymized returns a shallow copy of r with result ids pseudonymized. A
// nil anonymizer returns r itself.
func (r *AttritionRun) Anonymized(a *anonymize.Anonymizer) *AttritionRun {
	if a == nil {
		return r
	}
	out := *r
	out.Results = pseudonymizeRisk(r.Results, a)
	out.Displayed = pseudonymizeRisk(r.Displayed, a)
	return &out
}

// Anonymized returns a shallow copy of r with anomaly ids pseudonymized.
func (r *AttendanceRun) Anonymized(a *anonymize.Anonymizer) *AttendanceRun {
	if a == nil {
		return r
	}
	out := *r
	out.Anomalies = pseudonymizeAnomalies(r.Anomalies, a)
	out.Displayed = pseudonymizeAnomalies(r.Displayed, a)
	return &out
}

// pseudonymizeRisk returns a copy of results with ids replaced. The input
// slice is never modified.
func pseudonymizeRisk(results []model.RiskResult, a *anonymize.Anonymizer) []model.RiskResult {
	if a == nil {
		return results
	}
	out := make([]model.RiskResult, len(results))
	for i, r := range results {
		r.EmployeeID = a.Pseudonym(r.EmployeeID)
		out[i] = r
	}
	return out
}

func pseudonymizeAnomalies(anomalies []model.AnomalyRecord, a *anonymize.Anonymizer) []model.AnomalyRecord {
	if a == nil {
		return anomalies
	}
	out := make([]model.AnomalyRecord, len(anomalies))
	for i, r := range anomalies {
		r.EmployeeID = a.Pseudonym(r.EmployeeID)
		out[i] = r
	}
	return out
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return eris.Wrap(err, "analysis: encode json")
	}
	return nil
}
