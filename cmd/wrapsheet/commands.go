package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/berealtors/wrapsheet/internal/config"
	"github.com/berealtors/wrapsheet/internal/database"
	"github.com/berealtors/wrapsheet/internal/growthzone"
	"github.com/berealtors/wrapsheet/internal/metrics"
	"github.com/berealtors/wrapsheet/internal/models"
	"github.com/berealtors/wrapsheet/internal/report"
	"github.com/berealtors/wrapsheet/internal/tui"
	"github.com/berealtors/wrapsheet/internal/util"
)

func syncOfficesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sync-offices",
		Short: "Mirror recently changed Office MLS contacts from GrowthZone",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.cfg.GZ.APIKey == "" {
				return growthzone.ErrNoAPIKey
			}
			db, err := a.openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			client := growthzone.NewClient(a.cfg.GZ.BaseURL, a.cfg.GZ.APIKey, config.UpstreamTimeout)
			res, err := growthzone.NewSyncer(client, db, a.cfg.GZ.SyncLookback, a.logger, metrics.New()).Run(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "inserted %d, updated %d, addresses %d, phones %d\n",
				res.Inserted, res.Updated, res.AddressCount, res.PhoneCount)
			return nil
		},
	}
}

// periodFlags selects a goal period: --year picks annual goals, otherwise
// --month (default the current UTC month) picks monthly goals.
type periodFlags struct {
	month string
	year  string
	owner int64
}

func (p *periodFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&p.month, "month", "", "Month key YYYY-MM (default current month)")
	cmd.Flags().StringVar(&p.year, "year", "", "Year for annual goals")
	cmd.Flags().Int64Var(&p.owner, "owner", 0, "Only goals owned by this user id")
}

func (p periodFlags) resolve(now time.Time) (models.GoalType, string, error) {
	if p.year != "" {
		if p.month != "" {
			return "", "", errors.New("--month and --year are mutually exclusive")
		}
		if _, err := time.Parse("2006", p.year); err != nil {
			return "", "", fmt.Errorf("invalid --year %q", p.year)
		}
		return models.GoalAnnual, p.year, nil
	}
	month := p.month
	if month == "" {
		month = util.MonthKey(now)
	}
	if !util.ValidMonthKey(month) {
		return "", "", fmt.Errorf("invalid --month %q, want YYYY-MM", month)
	}
	return models.GoalMonthly, month, nil
}

func boardCmd(a *app) *cobra.Command {
	var (
		period periodFlags
		theme  string
	)
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Browse goals and their progress in the terminal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			t, key, err := period.resolve(time.Now())
			if err != nil {
				return err
			}
			if !tui.SetTheme(theme) {
				return fmt.Errorf("unknown theme %q", theme)
			}
			db, err := a.openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			model := tui.NewBoardModel(cmd.Context(), db, t, key, period.owner)
			_, err = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
			return err
		},
	}
	period.register(cmd)
	cmd.Flags().StringVar(&theme, "theme", config.DefaultBoardTheme, "Color theme (default, dracula)")
	return cmd
}

func reportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render PDF reports",
	}

	var (
		period periodFlags
		out    string
	)
	goals := &cobra.Command{
		Use:   "goals",
		Short: "Render a goal progress report",
		RunE: func(cmd *cobra.Command, _ []string) error {
			t, key, err := period.resolve(time.Now())
			if err != nil {
				return err
			}
			db, err := a.openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			if out == "" {
				out = filepath.Join(util.ReportsDir(config.AppName), fmt.Sprintf("goals-%s.pdf", key))
			}
			if err := writeGoalReport(cmd.Context(), db, t, key, period.owner, out); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	period.register(goals)
	goals.Flags().StringVarP(&out, "out", "o", "", "Output file (default in the reports directory)")
	cmd.AddCommand(goals)
	return cmd
}

func writeGoalReport(ctx context.Context, db database.Repository, t models.GoalType, period string, owner int64, path string) error {
	goals, err := db.ListGoals(ctx, t, period, owner)
	if err != nil {
		return err
	}
	subtasks := make(map[int64][]models.GoalSubtask, len(goals))
	for _, g := range goals {
		subs, err := db.ListGoalSubtasks(ctx, t, g.ID)
		if err != nil {
			return err
		}
		subtasks[g.ID] = subs
	}

	if err := util.EnsureParentDir(path); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	if err := report.GoalReport(f, period, goals, subtasks); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func exportCmd(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a JSON backup of every table",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := a.openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			if out == "" || out == "-" {
				return db.ExportJSON(cmd.Context(), cmd.OutOrStdout())
			}
			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("create backup: %w", err)
			}
			if err := db.ExportJSON(cmd.Context(), f); err != nil {
				_ = f.Close()
				return err
			}
			return f.Close()
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default stdout)")
	return cmd
}

func importCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <backup.json>",
		Short: "Restore a JSON backup written by export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open backup: %w", err)
			}
			defer f.Close()

			db, err := a.openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()
			return db.ImportJSON(cmd.Context(), f)
		},
	}
}

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Admin token helpers",
		// token hash needs no config or database
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "hash",
		Short: "Print the bcrypt hash of an admin token for ADMIN_TOKEN_HASH",
		RunE: func(cmd *cobra.Command, _ []string) error {
			secret, err := readSecret(cmd.InOrStdin(), cmd.ErrOrStderr(), "Admin token: ")
			if err != nil {
				return err
			}
			hash, err := util.HashSecret(secret)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	})
	return cmd
}

// readSecret reads a secret without echo from a terminal, or one line from
// any other reader.
func readSecret(in io.Reader, prompt io.Writer, label string) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(prompt, label)
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("read token: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read token: %w", err)
	}
	return strings.TrimSpace(line), nil
}
