package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harrison/foreman/internal/history"
)

// NewHistoryCommand creates the history command group
func NewHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect past task results",
		Long:  `Inspect results of past foreman runs stored in the history database.`,
	}

	cmd.PersistentFlags().String("db", ".foreman/history.db", "Path to the history database")

	cmd.AddCommand(newHistoryListCommand())
	cmd.AddCommand(newHistoryShowCommand())

	return cmd
}

func newHistoryListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List past task results, most recent first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistoryStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			limit, _ := cmd.Flags().GetInt("limit")
			records, err := store.ListResults(context.Background(), limit)
			if err != nil {
				return fmt.Errorf("failed to list task results: %w", err)
			}

			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No task results recorded.")
				return nil
			}

			for _, rec := range records {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %s  steps=%d tests=%d/%d  %s\n",
					rec.RecordedAt.Format(time.DateTime),
					outcomeLabel(rec.Success),
					rec.TaskID,
					rec.StepCount,
					rec.TestsPassed, rec.TestsTotal,
					rec.Duration.Round(time.Second))
			}
			return nil
		},
	}

	cmd.Flags().Int("limit", 20, "Maximum number of results to show (0 = all)")
	return cmd
}

func newHistoryShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <task-id>",
		Short: "Show the most recent result for a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistoryStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			rec, err := store.GetResult(context.Background(), args[0])
			if errors.Is(err, history.ErrNotFound) {
				return fmt.Errorf("no result recorded for task %s", args[0])
			}
			if err != nil {
				return fmt.Errorf("failed to load task result: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Task:     %s\n", rec.TaskID)
			fmt.Fprintf(out, "Outcome:  %s\n", outcomeLabel(rec.Success))
			fmt.Fprintf(out, "Recorded: %s\n", rec.RecordedAt.Format(time.DateTime))
			fmt.Fprintf(out, "Steps:    %d\n", rec.StepCount)
			fmt.Fprintf(out, "Tests:    %d/%d passed\n", rec.TestsPassed, rec.TestsTotal)
			fmt.Fprintf(out, "Duration: %s\n", rec.Duration.Round(time.Second))
			if rec.Error != "" {
				fmt.Fprintf(out, "Error:    %s\n", rec.Error)
			}
			return nil
		},
	}
}

func openHistoryStore(cmd *cobra.Command) (*history.SQLiteStore, error) {
	dbPath, _ := cmd.Flags().GetString("db")
	store, err := history.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database %s: %w", dbPath, err)
	}
	return store, nil
}

func outcomeLabel(success bool) string {
	if success {
		return color.New(color.FgGreen).Sprint("ok  ")
	}
	return color.New(color.FgRed).Sprint("fail")
}
