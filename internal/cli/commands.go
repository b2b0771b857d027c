package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"example.com/intensity/internal/cli/output"
	"example.com/intensity/internal/domain"
	"example.com/intensity/internal/record"
)

func (a *app) logCommand() *cobra.Command {
	var (
		intensity int
		timeOfDay string
		kind      string
		memo      string
		date      string
	)
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Record a workout",
		Example: `  intensityctl log --intensity 7 --time morning --type Running
  intensityctl log --intensity 4 --time 야간 --type Yoga --memo "slow flow" --date 2025-03-09`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("intensity") {
				return errors.New("--intensity is required")
			}
			tod, err := record.ParseTimeOfDay(timeOfDay)
			if err != nil {
				return err
			}
			day := record.DateOf(a.now())
			if strings.TrimSpace(date) != "" {
				if day, err = record.ParseDate(date); err != nil {
					return err
				}
			}

			input := domain.CreateRecordInput{
				Date:         day,
				TimeOfDay:    tod,
				Intensity:    intensity,
				ExerciseType: strings.TrimSpace(kind),
				Memo:         memo,
			}
			return a.withBackend(cmd.Context(), func(ctx context.Context, b backend) error {
				rec, err := b.Log(ctx, input)
				if err != nil {
					return err
				}
				if a.flagJSON {
					return a.printJSON(cmd.OutOrStdout(), rec)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Logged %s %s on %s (%s)  id=%s\n",
					rec.ExerciseType,
					output.Band(rec.Band, fmt.Sprintf("%d/%d", rec.Intensity, record.MaxIntensity)),
					rec.Date, rec.TimeOfDay, rec.ID)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&intensity, "intensity", 0, "Intensity from 0 to 10")
	cmd.Flags().StringVar(&timeOfDay, "time", string(record.Scattered), "Time of day: morning, afternoon, night or scattered")
	cmd.Flags().StringVar(&kind, "type", "", "Exercise type")
	cmd.Flags().StringVar(&memo, "memo", "", "Optional memo")
	cmd.Flags().StringVar(&date, "date", "", "Workout date YYYY-MM-DD (default: today)")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func (a *app) recordsCommand() *cobra.Command {
	var search, category string
	cmd := &cobra.Command{
		Use:   "records",
		Short: "List records filtered by search term and category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withBackend(cmd.Context(), func(ctx context.Context, b backend) error {
				view, err := b.View(ctx, search, category)
				if err != nil {
					return err
				}
				if a.flagJSON {
					return a.printJSON(cmd.OutOrStdout(), view)
				}
				renderRecords(cmd.OutOrStdout(), view)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&search, "search", "", "Case-insensitive text matched against type and memo")
	cmd.Flags().StringVar(&category, "category", "all", "Exact exercise type, or all")
	return cmd
}

func (a *app) statsCommand() *cobra.Command {
	var period string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show intensity statistics, the 7-day trend and the time-of-day histogram",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withBackend(cmd.Context(), func(ctx context.Context, b backend) error {
				report, err := b.Report(ctx, period)
				if err != nil {
					return err
				}
				if a.flagJSON {
					return a.printJSON(cmd.OutOrStdout(), report)
				}
				renderReport(cmd.OutOrStdout(), report, record.DefaultThresholds)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&period, "period", "week", "Period: day, week, month or year")
	return cmd
}

func (a *app) deleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withBackend(cmd.Context(), func(ctx context.Context, b backend) error {
				if err := b.Delete(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
				return nil
			})
		},
	}
}

func (a *app) leaderboardCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "leaderboard",
		Short: "Rank you and your friends by weekly score (api source only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.cfg.Source != SourceAPI {
				return errors.New("leaderboard needs --source api")
			}
			if a.cfg.UserID == "" {
				return errUserRequired
			}
			standings, err := a.client().Leaderboard(cmd.Context(), a.cfg.UserID)
			if err != nil {
				return err
			}
			if a.flagJSON {
				return a.printJSON(cmd.OutOrStdout(), standings)
			}
			renderLeaderboard(cmd.OutOrStdout(), standings)
			return nil
		},
	}
}
