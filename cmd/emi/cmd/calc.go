package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"loanbroker/internal/emi"
)

func newCalcCmd() *cobra.Command {
	var (
		flags  loanFlags
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "calc",
		Short: "Compute the monthly installment, total interest and total payment",
		RunE: func(cmd *cobra.Command, _ []string) error {
			in, err := flags.validated()
			if err != nil {
				return err
			}
			calc := emi.NewCalculator(in)
			if err := calc.Err(); err != nil {
				return err
			}
			in, res := calc.Input(), calc.Result()
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(struct {
					Input   emi.Input   `json:"input"`
					Result  emi.Result  `json:"result"`
					Display emi.Rounded `json:"display"`
				}{in, res, res.Rounded()})
			}
			fmt.Fprintf(out, "Loan amount:     Rs. %s\n", emi.FormatAmount(in.Principal))
			fmt.Fprintf(out, "Interest rate:   %g%% p.a.\n", in.AnnualRatePercent)
			fmt.Fprintf(out, "Tenure:          %d years (%d months)\n", in.TenureYears, in.Periods())
			fmt.Fprintf(out, "Monthly EMI:     Rs. %s\n", emi.FormatAmount(res.Installment))
			fmt.Fprintf(out, "Total interest:  Rs. %s\n", emi.FormatAmount(res.TotalInterest))
			fmt.Fprintf(out, "Total payment:   Rs. %s\n", emi.FormatAmount(res.TotalPayment))
			return nil
		},
	}
	flags.bind(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print raw and rounded values as JSON")
	return cmd
}
