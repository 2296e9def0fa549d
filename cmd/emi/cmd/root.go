package cmd

import (
	"github.com/spf13/cobra"

	"loanbroker/internal/emi"
	"loanbroker/internal/platform/config"
)

// loanFlags are shared by calc and schedule.
type loanFlags struct {
	principal float64
	rate      float64
	tenure    int
}

func (f *loanFlags) bind(cmd *cobra.Command) {
	cmd.Flags().Float64VarP(&f.principal, "principal", "p", 0, "loan amount (required)")
	cmd.Flags().Float64VarP(&f.rate, "rate", "r", 0, "annual interest rate in percent")
	cmd.Flags().IntVarP(&f.tenure, "tenure", "t", 0, "tenure in years (required)")
	_ = cmd.MarkFlagRequired("principal")
	_ = cmd.MarkFlagRequired("tenure")
}

func (f *loanFlags) input() emi.Input {
	return emi.Input{Principal: f.principal, AnnualRatePercent: f.rate, TenureYears: f.tenure}
}

// validated checks the flags against the configured product limits.
func (f *loanFlags) validated() (emi.Input, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return emi.Input{}, err
	}
	in := f.input()
	if err := emi.Limits(cfg.Limits).Validate(in); err != nil {
		return emi.Input{}, err
	}
	return in, nil
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "emi",
		Short: "Equated monthly installment calculator",
		Long: `emi computes fixed-rate loan installments the same way the loanbroker API does.

Limits come from the same environment as the server (MAX_PRINCIPAL,
MAX_RATE_PERCENT, MAX_TENURE_YEARS, LOANBROKER_CONFIG).

Example:
  emi calc -p 2500000 -r 8.5 -t 20
  emi schedule -p 800000 -r 9.5 -t 5 --pdf schedule.pdf`,
		SilenceUsage: true,
	}
	root.AddCommand(newCalcCmd(), newScheduleCmd(), newVersionCmd())
	return root
}

// Execute runs the root command against os.Args.
func Execute() error {
	return newRootCmd().Execute()
}
