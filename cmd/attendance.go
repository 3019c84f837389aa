package main

import (
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/hr-monitor/internal/analysis"
	"github.com/sells-group/hr-monitor/internal/attendance"
	"github.com/sells-group/hr-monitor/internal/model"
)

var (
	attendanceFile      string
	attendanceZ         float64
	attendanceLongHours float64
	attendanceStreak    int
	attendanceKinds     []string
	attendanceAnonymize bool
	attendanceFormat    string
	attendanceOutput    string
)

var attendanceCmd = &cobra.Command{
	Use:   "attendance",
	Short: "Detect attendance anomalies",
	Long: "Reads an attendance export and flags overtime z-score outliers, long shifts " +
		"and long runs of consecutive worked days.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		format, table, err := parseOutputFormat(attendanceFormat, attendanceOutput)
		if err != nil {
			return err
		}

		p := model.AnomalyParams{
			ZThreshold: cfg.Attendance.ZThreshold,
			LongHours:  cfg.Attendance.LongHours,
			StreakDays: cfg.Attendance.StreakDays,
		}
		if cmd.Flags().Changed("z") {
			p.ZThreshold = attendanceZ
		}
		if cmd.Flags().Changed("long-hours") {
			p.LongHours = attendanceLongHours
		}
		if cmd.Flags().Changed("streak") {
			p.StreakDays = attendanceStreak
		}
		if p.ZThreshold <= 0 || p.LongHours <= 0 || p.StreakDays < 1 {
			return eris.New("--z and --long-hours must be positive and --streak at least 1")
		}

		opts := analysis.AttendanceOptions{Params: &p}
		for _, name := range attendanceKinds {
			kind, ok := attendance.ParseKind(name)
			if !ok {
				return eris.Errorf("unknown anomaly kind %q (want long, streak or z)", name)
			}
			opts.Kinds = append(opts.Kinds, kind)
		}

		data, err := os.ReadFile(attendanceFile)
		if err != nil {
			return eris.Wrapf(err, "read %s", attendanceFile)
		}

		svc, err := initService(nil)
		if err != nil {
			return err
		}

		run, err := svc.Attendance(cmd.Context(), data, attendanceFile, opts)
		if err != nil {
			return reportValidation(os.Stderr, err)
		}
		printWarnings(os.Stderr, run.Warnings)

		if table {
			return withOutput(attendanceOutput, func(w io.Writer) error {
				formatAttendance(w, run, svc.OutputAnonymizer(attendanceAnonymize))
				return nil
			})
		}
		return withOutput(attendanceOutput, func(w io.Writer) error {
			return svc.WriteAttendance(w, run, format, attendanceAnonymize)
		})
	},
}

func init() {
	f := attendanceCmd.Flags()
	f.StringVarP(&attendanceFile, "file", "f", "", "attendance dataset (.csv, .xlsx)")
	f.Float64Var(&attendanceZ, "z", 2.0, "overtime z-score threshold (default from config)")
	f.Float64Var(&attendanceLongHours, "long-hours", 11, "long shift threshold in hours (default from config)")
	f.IntVar(&attendanceStreak, "streak", 12, "consecutive worked days threshold (default from config)")
	f.StringSliceVar(&attendanceKinds, "kinds", nil, "anomaly kinds to display: long, streak, z (default all)")
	f.BoolVar(&attendanceAnonymize, "anonymize", false, "replace employee ids with salted pseudonyms in output")
	f.StringVar(&attendanceFormat, "format", formatTable, "output format: table, json, csv, xlsx, pdf")
	f.StringVarP(&attendanceOutput, "output", "o", "", "output path (default stdout)")
	_ = attendanceCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(attendanceCmd)
}
