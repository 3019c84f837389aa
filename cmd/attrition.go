package main

import (
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/hr-monitor/internal/analysis"
	"github.com/sells-group/hr-monitor/internal/model"
)

var (
	attritionFile      string
	attritionMedium    float64
	attritionHigh      float64
	attritionTiers     []string
	attritionAnonymize bool
	attritionLenient   bool
	attritionFormat    string
	attritionOutput    string
)

var attritionCmd = &cobra.Command{
	Use:   "attrition",
	Short: "Score attrition risk for an HR dataset",
	Long: "Reads an HR export (CSV or .xlsx), maps and validates its columns, scores every employee " +
		"and prints or writes the results. Logistic regression is used when an attrition label is present.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		format, table, err := parseOutputFormat(attritionFormat, attritionOutput)
		if err != nil {
			return err
		}

		opts := analysis.AttritionOptions{Lenient: attritionLenient}
		t := model.Thresholds{Medium: cfg.Risk.Medium, High: cfg.Risk.High}
		if cmd.Flags().Changed("medium") {
			t.Medium = attritionMedium
		}
		if cmd.Flags().Changed("high") {
			t.High = attritionHigh
		}
		opts.Thresholds = &t
		for _, name := range attritionTiers {
			tier, ok := model.ParseTier(name)
			if !ok {
				return eris.Errorf("unknown tier %q (want high, medium or low)", name)
			}
			opts.Tiers = append(opts.Tiers, tier)
		}

		data, err := os.ReadFile(attritionFile)
		if err != nil {
			return eris.Wrapf(err, "read %s", attritionFile)
		}

		svc, err := initService(nil)
		if err != nil {
			return err
		}

		run, err := svc.Attrition(cmd.Context(), data, attritionFile, opts)
		if err != nil {
			return reportValidation(os.Stderr, err)
		}
		printWarnings(os.Stderr, run.Warnings)

		if table {
			return withOutput(attritionOutput, func(w io.Writer) error {
				formatAttrition(w, run, svc.OutputAnonymizer(attritionAnonymize))
				return nil
			})
		}
		return withOutput(attritionOutput, func(w io.Writer) error {
			return svc.WriteAttrition(w, run, format, attritionAnonymize)
		})
	},
}

func init() {
	f := attritionCmd.Flags()
	f.StringVarP(&attritionFile, "file", "f", "", "HR dataset (.csv, .xlsx)")
	f.Float64Var(&attritionMedium, "medium", 40, "medium risk threshold in percent (default from config)")
	f.Float64Var(&attritionHigh, "high", 70, "high risk threshold in percent (default from config)")
	f.StringSliceVar(&attritionTiers, "tiers", nil, "tiers to display: high, medium, low (default all)")
	f.BoolVar(&attritionAnonymize, "anonymize", false, "replace employee ids with salted pseudonyms in output")
	f.BoolVar(&attritionLenient, "lenient", false, "validate only the HR columns present")
	f.StringVar(&attritionFormat, "format", formatTable, "output format: table, json, csv, xlsx, pdf")
	f.StringVarP(&attritionOutput, "output", "o", "", "output path (default stdout)")
	_ = attritionCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(attritionCmd)
}
