package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/hr-monitor/internal/analysis"
	"github.com/sells-group/hr-monitor/internal/attendance"
	"github.com/sells-group/hr-monitor/internal/export"
	"github.com/sells-group/hr-monitor/internal/mapping"
	"github.com/sells-group/hr-monitor/internal/model"
	"github.com/sells-group/hr-monitor/internal/table"
)

const headerRunID = "X-Run-ID"

func (s *Server) handleAttrition(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	format, anon, err := outputOptions(q)
	if err != nil {
		fail(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	opts, err := attritionOptions(q, s.svc.Thresholds())
	if err != nil {
		fail(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	data, name, ok := s.readUpload(w, r)
	if !ok {
		return
	}

	run, err := s.svc.Attrition(r.Context(), data, name, opts)
	if err != nil {
		s.analysisFailed(w, err)
		return
	}

	if format == export.FormatJSON {
		w.Header().Set(headerRunID, run.ID)
		success(w, "attrition scored", run.Anonymized(s.svc.OutputAnonymizer(anon)))
		return
	}
	var buf bytes.Buffer
	if err := s.svc.WriteAttrition(&buf, run, format, anon); err != nil {
		s.analysisFailed(w, err)
		return
	}
	download(w, run.ID, export.FileName(analysis.KindAttrition, format), format, buf.Bytes())
}

func (s *Server) handleAttendance(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	format, anon, err := outputOptions(q)
	if err != nil {
		fail(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	opts, err := attendanceOptions(q, s.svc.AnomalyParams())
	if err != nil {
		fail(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	data, name, ok := s.readUpload(w, r)
	if !ok {
		return
	}

	run, err := s.svc.Attendance(r.Context(), data, name, opts)
	if err != nil {
		s.analysisFailed(w, err)
		return
	}

	if format == export.FormatJSON {
		w.Header().Set(headerRunID, run.ID)
		success(w, "attendance analysed", run.Anonymized(s.svc.OutputAnonymizer(anon)))
		return
	}
	var buf bytes.Buffer
	if err := s.svc.WriteAttendance(&buf, run, format, anon); err != nil {
		s.analysisFailed(w, err)
		return
	}
	download(w, run.ID, export.FileName(analysis.KindAttendance, format), format, buf.Bytes())
}

// SuggestRequest is the body of POST /api/v1/mapping/suggest.
type SuggestRequest struct {
	Columns []string `json:"columns"`
	Domain  string   `json:"domain"`
}

// SuggestResponse maps required column names to uploaded ones.
type SuggestResponse struct {
	Domain     string            `json:"domain"`
	Mapping    map[string]string `json:"mapping"`
	Unresolved []string          `json:"unresolved"`
}

func (s *Server) handleSuggestMapping(w http.ResponseWriter, r *http.Request) {
	var req SuggestRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		fail(w, http.StatusBadRequest, CodeBadRequest, "invalid request body")
		return
	}
	if len(req.Columns) == 0 {
		fail(w, http.StatusBadRequest, CodeBadRequest, "columns is required")
		return
	}
	if req.Domain == "" {
		req.Domain = string(mapping.DomainHR)
	}
	domain, err := mapping.ParseDomain(req.Domain)
	if err != nil {
		fail(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	required := model.HRColumns
	if domain == mapping.DomainAttendance {
		required = model.AttendanceColumns
	}
	suggested := mapping.SuggestMapping(req.Columns, required, s.svc.Synonyms().For(domain))

	resp := SuggestResponse{Domain: string(domain), Mapping: suggested, Unresolved: []string{}}
	for _, c := range required {
		if _, ok := suggested[c]; !ok {
			resp.Unresolved = append(resp.Unresolved, c)
		}
	}
	success(w, "", resp)
}

// readUpload reads the multipart "file" field, enforcing the upload limit.
// It writes the error response itself and reports whether to continue.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			fail(w, http.StatusRequestEntityTooLarge, CodeTooLarge,
				fmt.Sprintf("upload exceeds %d MB", s.maxUpload>>20))
			return nil, "", false
		}
		fail(w, http.StatusBadRequest, CodeBadRequest, "expected multipart form with a file field")
		return nil, "", false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		fail(w, http.StatusBadRequest, CodeBadRequest, "file is required")
		return nil, "", false
	}
	defer file.Close() //nolint:errcheck

	data, err := io.ReadAll(file)
	if err != nil {
		fail(w, http.StatusBadRequest, CodeBadRequest, "could not read upload")
		return nil, "", false
	}
	return data, header.Filename, true
}

func (s *Server) analysisFailed(w http.ResponseWriter, err error) {
	var verr *analysis.ValidationError
	switch {
	case errors.As(err, &verr):
		validationFailed(w, verr.Result.Errors, verr.Result.Warnings)
	case errors.Is(err, table.ErrUnsupportedFormat):
		fail(w, http.StatusUnsupportedMediaType, CodeUnsupported, "legacy .xls workbooks are not supported; save as .xlsx or .csv")
	case errors.Is(err, table.ErrUnreadable):
		fail(w, http.StatusBadRequest, CodeBadRequest, "file could not be parsed as a table")
	default:
		zap.L().Error("server: analysis failed", zap.Error(err))
		fail(w, http.StatusInternalServerError, CodeInternal, "analysis failed")
	}
}

func download(w http.ResponseWriter, runID, name string, f export.Format, body []byte) {
	w.Header().Set("Content-Type", f.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set(headerRunID, runID)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		zap.L().Warn("server: write download", zap.Error(err))
	}
}

func outputOptions(q url.Values) (export.Format, bool, error) {
	format := export.FormatJSON
	if v := q.Get("format"); v != "" {
		f, err := export.ParseFormat(v)
		if err != nil {
			return "", false, err
		}
		format = f
	}
	anon, err := boolParam(q, "anonymize")
	return format, anon, err
}

func attritionOptions(q url.Values, defaults model.Thresholds) (analysis.AttritionOptions, error) {
	var opts analysis.AttritionOptions

	t := defaults
	if err := floatParam(q, "medium", &t.Medium); err != nil {
		return opts, err
	}
	if err := floatParam(q, "high", &t.High); err != nil {
		return opts, err
	}
	if t.Medium < 0 || t.Medium > 100 || t.High < 0 || t.High > 100 {
		return opts, eris.New("server: thresholds must be within 0-100")
	}
	opts.Thresholds = &t

	for _, name := range listParam(q, "tiers") {
		tier, ok := model.ParseTier(name)
		if !ok {
			return opts, eris.Errorf("server: unknown tier %q", name)
		}
		opts.Tiers = append(opts.Tiers, tier)
	}

	lenient, err := boolParam(q, "lenient")
	opts.Lenient = lenient
	return opts, err
}

func attendanceOptions(q url.Values, defaults model.AnomalyParams) (analysis.AttendanceOptions, error) {
	var opts analysis.AttendanceOptions

	p := defaults
	if err := floatParam(q, "z", &p.ZThreshold); err != nil {
		return opts, err
	}
	if err := floatParam(q, "long_hours", &p.LongHours); err != nil {
		return opts, err
	}
	if v := q.Get("streak"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return opts, eris.Errorf("server: invalid streak %q", v)
		}
		p.StreakDays = n
	}
	if p.ZThreshold <= 0 || p.LongHours <= 0 {
		return opts, eris.New("server: z and long_hours must be positive")
	}
	opts.Params = &p

	for _, name := range listParam(q, "kinds") {
		kind, ok := attendance.ParseKind(name)
		if !ok {
			return opts, eris.Errorf("server: unknown anomaly kind %q", name)
		}
		opts.Kinds = append(opts.Kinds, kind)
	}
	return opts, nil
}

func floatParam(q url.Values, key string, dst *float64) error {
	v := q.Get(key)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return eris.Errorf("server: invalid %s %q", key, v)
	}
	*dst = f
	return nil
}

func boolParam(q url.Values, key string) (bool, error) {
	v := q.Get(key)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, eris.Errorf("server: invalid %s %q", key, v)
	}
	return b, nil
}

// listParam splits comma-separated and repeated values.
func listParam(q url.Values, key string) []string {
	var out []string
	for _, v := range q[key] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
