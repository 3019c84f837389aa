package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/hr-monitor/internal/analysis"
	"github.com/sells-group/hr-monitor/internal/export"
)

var (
	reportHR         string
	reportAttendance string
	reportOutDir     string
	reportAnonymize  bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Write PDF reports and CSV exports for both analyses",
	Long: "Runs the attrition and attendance analyses concurrently and writes a PDF report " +
		"and a CSV export for each into --out-dir, plus the daily overtime totals for " +
		"attendance. Either input may be omitted.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if reportHR == "" && reportAttendance == "" {
			return eris.New("at least one of --hr or --attendance is required")
		}
		svc, err := initService(nil)
		if err != nil {
			return err
		}
		written, err := runReport(cmd.Context(), svc, reportJob{
			HRPath:         reportHR,
			AttendancePath: reportAttendance,
			OutDir:         reportOutDir,
			Anonymize:      reportAnonymize,
		})
		for _, p := range written {
			fmt.Println(p)
		}
		return err
	},
}

type reportJob struct {
	HRPath         string
	AttendancePath string
	OutDir         string
	Anonymize      bool
}

// runReport analyses the two datasets in parallel and returns the paths of
// the files it wrote, attrition first.
func runReport(ctx context.Context, svc *analysis.Service, job reportJob) ([]string, error) {
	if err := os.MkdirAll(job.OutDir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "create %s", job.OutDir)
	}

	var attritionFiles, attendanceFiles []string
	g, gctx := errgroup.WithContext(ctx)

	if job.HRPath != "" {
		g.Go(func() error {
			data, err := os.ReadFile(job.HRPath)
			if err != nil {
				return eris.Wrapf(err, "read %s", job.HRPath)
			}
			run, err := svc.Attrition(gctx, data, job.HRPath, analysis.AttritionOptions{})
			if err != nil {
				return reportValidation(os.Stderr, err)
			}
			printWarnings(os.Stderr, run.Warnings)

			for _, f := range []export.Format{export.FormatPDF, export.FormatCSV} {
				path := filepath.Join(job.OutDir, export.FileName(analysis.KindAttrition, f))
				err := withOutput(path, func(w io.Writer) error {
					return svc.WriteAttrition(w, run, f, job.Anonymize)
				})
				if err != nil {
					return err
				}
				attritionFiles = append(attritionFiles, path)
			}
			return nil
		})
	}

	if job.AttendancePath != "" {
		g.Go(func() error {
			data, err := os.ReadFile(job.AttendancePath)
			if err != nil {
				return eris.Wrapf(err, "read %s", job.AttendancePath)
			}
			run, err := svc.Attendance(gctx, data, job.AttendancePath, analysis.AttendanceOptions{})
			if err != nil {
				return reportValidation(os.Stderr, err)
			}
			printWarnings(os.Stderr, run.Warnings)

			for _, f := range []export.Format{export.FormatPDF, export.FormatCSV} {
				path := filepath.Join(job.OutDir, export.FileName(analysis.KindAttendance, f))
				err := withOutput(path, func(w io.Writer) error {
					return svc.WriteAttendance(w, run, f, job.Anonymize)
				})
				if err != nil {
					return err
				}
				attendanceFiles = append(attendanceFiles, path)
			}

			path := filepath.Join(job.OutDir, export.DailyOvertimeFile)
			err = withOutput(path, func(w io.Writer) error {
				return export.Write(w, export.OverviewFrame(run.Daily), export.FormatCSV, "")
			})
			if err != nil {
				return err
			}
			attendanceFiles = append(attendanceFiles, path)
			return nil
		})
	}

	err := g.Wait()
	written := append(attritionFiles, attendanceFiles...)
	zap.L().Info("report: files written", zap.Int("files", len(written)), zap.Error(err))
	return written, err
}

func init() {
	f := reportCmd.Flags()
	f.StringVar(&reportHR, "hr", "", "HR dataset for the attrition report")
	f.StringVar(&reportAttendance, "attendance", "", "attendance dataset for the anomaly report")
	f.StringVar(&reportOutDir, "out-dir", "reports", "directory for generated files")
	f.BoolVar(&reportAnonymize, "anonymize", false, "replace employee ids with salted pseudonyms")
	rootCmd.AddCommand(reportCmd)
}
