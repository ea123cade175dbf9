package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ksInsandji/pensezy-edition/internal/db"
	"github.com/ksInsandji/pensezy-edition/internal/planning"
)

func juryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jury",
		Short: "Jury scheduling tools",
	}

	var (
		department int64
		start      string
		duration   time.Duration
		pause      time.Duration
		dailyCap   int
		rooms      []string
	)
	plan := &cobra.Command{
		Use:   "plan",
		Short: "Print the automatic jury schedule of a department without saving it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			e, err := setup(ctx)
			if err != nil {
				return err
			}
			defer e.close()

			first, err := time.ParseInLocation("2006-01-02 15:04", start, e.cfg.Location)
			if err != nil {
				return fmt.Errorf("--start: expected \"YYYY-MM-DD HH:MM\": %w", err)
			}
			p, err := planning.PreviewJurys(ctx, db.New(e.db), department, planning.JuryParams{
				Start:    first,
				Duration: duration,
				Break:    pause,
				DailyCap: dailyCap,
				Rooms:    rooms,
			})
			if err != nil {
				return err
			}
			return printPlan(p)
		},
	}
	f := plan.Flags()
	f.Int64Var(&department, "department", 0, "department id (0 = every department)")
	f.StringVar(&start, "start", "", `first slot, "YYYY-MM-DD HH:MM"`)
	f.DurationVar(&duration, "duration", time.Hour, "length of one defense")
	f.DurationVar(&pause, "break", 15*time.Minute, "gap between two defenses")
	f.IntVar(&dailyCap, "daily-cap", 4, "defenses per room per day")
	f.StringSliceVar(&rooms, "rooms", nil, "comma separated room names")
	_ = plan.MarkFlagRequired("start")
	_ = plan.MarkFlagRequired("rooms")

	cmd.AddCommand(plan)
	return cmd
}

func printPlan(p planning.JuryPlan) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tHEURE\tSALLE\tÉTUDIANT\tPRÉSIDENT\tRAPPORTEUR\tEXAMINATEUR")
	for _, pr := range p.Proposals {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			pr.Date, pr.Time, pr.Room, pr.StudentName, pr.PresidentName, pr.RapporteurName, pr.ExaminateurName)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\n%d soutenance(s) sur %d jour(s): %s\n", len(p.Proposals), len(p.Days()), strings.Join(p.Days(), ", "))
	for _, s := range p.Skipped {
		fmt.Printf("ignoré: %s (%s)\n", s.StudentName, s.Reason)
	}
	return nil
}
