package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/hr-monitor/internal/mapping"
	"github.com/sells-group/hr-monitor/internal/model"
	"github.com/sells-group/hr-monitor/internal/table"
)

var (
	mappingFile   string
	mappingDomain string
)

var mappingCmd = &cobra.Command{
	Use:   "mapping",
	Short: "Suggest how a file's columns map onto the required schema",
	RunE: func(cmd *cobra.Command, _ []string) error {
		domain, err := mapping.ParseDomain(mappingDomain)
		if err != nil {
			return err
		}

		frame, _, err := table.ReadFile(mappingFile)
		if err != nil {
			return err
		}

		synonyms, err := mapping.LoadSynonyms(cfg.Mapping.SynonymsPath)
		if err != nil {
			return err
		}

		formatMapping(os.Stdout, frame, domain, synonyms.For(domain))
		return nil
	},
}

// formatMapping prints one row per required column: present as-is, mapped
// from a source column, or missing.
func formatMapping(out io.Writer, frame *table.Frame, domain mapping.Domain, synonyms mapping.Synonyms) {
	required := model.AttendanceColumns
	if domain == mapping.DomainHR {
		required = model.HRColumns
		frame = mapping.Normalize(frame)
	}
	_, suggested := mapping.AutoMap(frame, required, synonyms)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "REQUIRED\tSOURCE\tSTATUS")
	for _, c := range required {
		switch src, ok := suggested[c]; {
		case frame.Has(c):
			_, _ = fmt.Fprintf(w, "%s\t%s\tpresent\n", c, c)
		case ok:
			_, _ = fmt.Fprintf(w, "%s\t%s\tmapped\n", c, src)
		default:
			_, _ = fmt.Fprintf(w, "%s\t-\tmissing\n", c)
		}
	}
	_ = w.Flush()
}

func init() {
	mappingCmd.Flags().StringVarP(&mappingFile, "file", "f", "", "dataset to inspect (.csv, .xlsx)")
	mappingCmd.Flags().StringVar(&mappingDomain, "domain", string(mapping.DomainHR), "schema to map onto: hr or attendance")
	_ = mappingCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(mappingCmd)
}
