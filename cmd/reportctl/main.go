// Command reportctl renders or queues monthly timesheet reports from the shell.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"example.com/timesheet/internal/domain"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "reportctl",
		Short:        "Generate monthly timesheet reports",
		SilenceUsage: true,
	}
	root.AddCommand(newGenerateCmd(), newRequestCmd())
	return root
}

// periodFlags are shared by the subcommands.
type periodFlags struct {
	year  int
	month string
}

func (p *periodFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&p.year, "year", 0, "report year")
	cmd.Flags().StringVar(&p.month, "month", "", "report month, 1-12 or an English month name")
	_ = cmd.MarkFlagRequired("year")
	_ = cmd.MarkFlagRequired("month")
}

func (p *periodFlags) period() (domain.Period, error) {
	month, err := strconv.Atoi(p.month)
	if err != nil {
		var ok bool
		if month, ok = domain.MonthByName(p.month); !ok {
			return domain.Period{}, fmt.Errorf("%w: month %q", domain.ErrBadFormat, p.month)
		}
	}
	period := domain.Period{Year: p.year, Month: month}
	return period, period.Validate()
}
