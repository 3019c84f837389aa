// Package report renders attrition and attendance results as paginated A4
// PDF documents.
package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/rotisserie/eris"

	"github.com/sells-group/hr-monitor/internal/anonymize"
	"github.com/sells-group/hr-monitor/internal/model"
	"github.com/sells-group/hr-monitor/internal/risk"
)

// Layout constants in millimetres, measured from the bottom edge.
const (
	pageHeight = 297.0
	marginLeft = 20.0
	lineStep   = 6.0
	pageBottom = 20.0
	pageTop    = 280.0
)

// Options configures a Builder.
type Options struct {
	FontPath       string
	FontCandidates []string
	RiskRows       int
	AnomalyRows    int
	Now            func() time.Time
}

// Builder renders reports. Fonts are resolved once and reused.
type Builder struct {
	opts Options

	once sync.Once
	font font
}

// NewBuilder returns a Builder. Zero row limits default to 10 risk rows and
// 20 anomaly rows; an empty candidate list uses DefaultFontCandidates.
func NewBuilder(opts Options) *Builder {
	if opts.RiskRows <= 0 {
		opts.RiskRows = 10
	}
	if opts.AnomalyRows <= 0 {
		opts.AnomalyRows = 20
	}
	if len(opts.FontCandidates) == 0 {
		opts.FontCandidates = DefaultFontCandidates
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Builder{opts: opts}
}

func (b *Builder) resolvedFont() font {
	b.once.Do(func() {
		candidates := append([]string{b.opts.FontPath}, b.opts.FontCandidates...)
		b.font = resolveFont(candidates)
	})
	return b.font
}

// Attrition renders the risk report: model, headcount, high/medium counts
// and the top rows by probability. anon may be nil.
func (b *Builder) Attrition(w io.Writer, results []model.RiskResult, meta model.Metadata, t model.Thresholds, anon *anonymize.Anonymizer) error {
	return b.attrition(results, meta, t, anon).output(w)
}

func (b *Builder) attrition(results []model.RiskResult, meta model.Metadata, t model.Thresholds, anon *anonymize.Anonymizer) *doc {
	d := b.newDoc("離職リスクレポート")
	summary := risk.Summarize(results, t)

	d.setFont(10)
	d.text(270, "モデル: "+orNA(meta.Model))
	d.text(262, fmt.Sprintf("従業員数: %d", len(results)))
	d.text(254, fmt.Sprintf("High: %d / Medium: %d", summary.High, summary.Medium))

	d.y = 240
	d.setFont(10)
	d.line(fmt.Sprintf("上位リスク（Top %d）", b.opts.RiskRows))
	d.setFont(9)

	ranked := append([]model.RiskResult(nil), results...)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Probability > ranked[j].Probability })
	if len(ranked) > b.opts.RiskRows {
		ranked = ranked[:b.opts.RiskRows]
	}
	display := anon.Func()
	for _, r := range ranked {
		d.line(fmt.Sprintf("社員ID:%s  確率:%s%%  勤続:%s年  残業:%sh  有給:%s%%",
			display(r.EmployeeID), num(r.Probability), opt(r.Tenure), opt(r.Overtime), opt(r.PTORate)))
	}
	return d
}

// Attendance renders the anomaly report: detection count, long-shift and
// streak flag counts and the first rows in detection order. anon may be nil.
func (b *Builder) Attendance(w io.Writer, anomalies []model.AnomalyRecord, anon *anonymize.Anonymizer) error {
	return b.attendance(anomalies, anon).output(w)
}

func (b *Builder) attendance(anomalies []model.AnomalyRecord, anon *anonymize.Anonymizer) *doc {
	d := b.newDoc("勤怠異常レポート")

	var long, streak int
	for _, a := range anomalies {
		if a.LongShift {
			long++
		}
		if a.LongStreak {
			streak++
		}
	}

	d.setFont(10)
	d.text(270, fmt.Sprintf("検出件数: %d", len(anomalies)))
	d.text(262, fmt.Sprintf("長時間勤務フラグ: %d / 連続勤務フラグ: %d", long, streak))

	d.y = 248
	d.setFont(10)
	d.line(fmt.Sprintf("異常一覧（最大%d件）", b.opts.AnomalyRows))
	d.setFont(9)

	rows := anomalies
	if len(rows) > b.opts.AnomalyRows {
		rows = rows[:b.opts.AnomalyRows]
	}
	display := anon.Func()
	for _, a := range rows {
		d.line(fmt.Sprintf("%s  社員ID:%s  残業:%sh  連続:%d日",
			a.Date.Format("2006-01-02"), display(a.EmployeeID), num(a.OvertimeHours), a.Streak))
	}
	return d
}

// doc wraps an fpdf document with a bottom-up cursor.
type doc struct {
	pdf    *fpdf.Fpdf
	family string
	tr     func(string) string
	y      float64
}

func (b *Builder) newDoc(title string) *doc {
	f := b.resolvedFont()
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreator("hr-monitor", true)
	pdf.SetTitle(title, true)

	d := &doc{pdf: pdf, family: fallbackFamily, tr: func(s string) string { return s }}
	if f.data != nil {
		pdf.AddUTF8FontFromBytes(jpFamily, "", f.data)
		if pdf.Err() {
			pdf.ClearError()
		} else {
			d.family = jpFamily
		}
	}
	if d.family == fallbackFamily {
		d.tr = pdf.UnicodeTranslatorFromDescriptor("cp1252")
	}

	pdf.AddPage()
	d.setFont(14)
	d.text(285, title)
	d.setFont(9)
	d.text(pageTop, "Generated: "+b.opts.Now().Format("2006-01-02 15:04"))
	return d
}

func (d *doc) setFont(size float64) {
	d.pdf.SetFont(d.family, "", size)
}

// text draws s at height y above the bottom edge.
func (d *doc) text(y float64, s string) {
	d.pdf.Text(marginLeft, pageHeight-y, d.tr(s))
}

// line draws s at the cursor and advances it, starting a new page when the
// bottom margin is reached.
func (d *doc) line(s string) {
	d.text(d.y, s)
	d.y -= lineStep
	if d.y < pageBottom {
		size, _ := d.pdf.GetFontSize()
		d.pdf.AddPage()
		d.pdf.SetFont(d.family, "", size)
		d.y = pageTop
	}
}

func (d *doc) output(w io.Writer) error {
	if err := d.pdf.Output(w); err != nil {
		return eris.Wrap(err, "report: render pdf")
	}
	return nil
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func opt(v *float64) string {
	if v == nil {
		return "-"
	}
	return num(*v)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
