package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"loanbroker/internal/emi"
	"loanbroker/internal/quote/report"
)

func newScheduleCmd() *cobra.Command {
	var (
		flags   loanFlags
		pdfPath string
		yearly  bool
	)
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Print the month-by-month amortization table",
		RunE: func(cmd *cobra.Command, _ []string) error {
			in, err := flags.validated()
			if err != nil {
				return err
			}
			res, err := emi.Compute(in)
			if err != nil {
				return err
			}
			periods, err := emi.Schedule(in)
			if err != nil {
				return err
			}

			if pdfPath != "" {
				f, err := os.Create(pdfPath)
				if err != nil {
					return fmt.Errorf("create pdf: %w", err)
				}
				if err := report.SchedulePDF(f, in, res, periods, time.Now()); err != nil {
					_ = f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return fmt.Errorf("close pdf: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d installments)\n", pdfPath, len(periods))
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', tabwriter.AlignRight)
			label := "Month"
			if yearly {
				label = "Year"
			}
			fmt.Fprintf(tw, "%s\tInstallment\tPrincipal\tInterest\tBalance\t\n", label)
			for _, row := range rows(periods, yearly) {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t\n", row.Month,
					emi.FormatAmount(row.Installment), emi.FormatAmount(row.Principal),
					emi.FormatAmount(row.Interest), emi.FormatAmount(row.Balance))
			}
			return tw.Flush()
		},
	}
	flags.bind(cmd)
	cmd.Flags().StringVar(&pdfPath, "pdf", "", "write the table to this PDF file instead of stdout")
	cmd.Flags().BoolVar(&yearly, "yearly", false, "aggregate rows per year")
	return cmd
}

// rows optionally folds monthly periods into yearly totals. Month carries the
// year number and Balance the closing balance when folded.
func rows(periods []emi.Period, yearly bool) []emi.Period {
	if !yearly {
		return periods
	}
	out := make([]emi.Period, 0, len(periods)/12+1)
	for i, p := range periods {
		if i%12 == 0 {
			out = append(out, emi.Period{Month: i/12 + 1})
		}
		y := &out[len(out)-1]
		y.Installment += p.Installment
		y.Principal += p.Principal
		y.Interest += p.Interest
		y.Balance = p.Balance
	}
	return out
}
