package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/akozlovs/vinotes/internal/journal/citation"
	"github.com/akozlovs/vinotes/internal/journal/config"
	"github.com/akozlovs/vinotes/internal/journal/models"
	"github.com/akozlovs/vinotes/internal/journal/remote"
	"github.com/akozlovs/vinotes/internal/journal/store"
	"github.com/akozlovs/vinotes/internal/journal/syncer"
	"github.com/spf13/cobra"

	_ "modernc.org/sqlite"
)

var cfg *config.Config

func main() {
	cfg = config.LoadConfig()

	rootCmd := &cobra.Command{
		Use:   "vinotes",
		Short: "Offline-first wine journal with sync and citation matching",
	}

	rootCmd.AddCommand(addCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(showCmd())
	rootCmd.AddCommand(deleteCmd())
	rootCmd.AddCommand(syncCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(conflictsCmd())
	rootCmd.AddCommand(resolveCmd())
	rootCmd.AddCommand(similarCmd())
	rootCmd.AddCommand(dupesCmd())
	rootCmd.AddCommand(deadLettersCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

type session struct {
	store  *store.Store
	engine *syncer.Engine
}

func open(ctx context.Context) (*session, error) {
	st, err := store.Open(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open local db: %w", err)
	}
	client := remote.NewHTTPClient(cfg.ServerBaseURL)
	engine := syncer.New(st, client, nil, syncer.Options{
		SettleDelay:   cfg.SettleDelay,
		ProbeInterval: cfg.OnlineCheckInterval,
	})
	return &session{store: st, engine: engine}, nil
}

func (s *session) close() {
	_ = s.store.Close()
}

// goOnline marks the engine online when the server answers a ping, so a
// one-shot command can sync without running the background watcher.
func (s *session) goOnline(ctx context.Context) {
	client := remote.NewHTTPClient(cfg.ServerBaseURL)
	s.engine.SetOnline(ctx, client.Ping(ctx) == nil)
}

func addCmd() *cobra.Command {
	var (
		producer string
		vintage  int
		region   string
		country  string
		grapes   []string
		rating   int
		notes    string
	)

	cmd := &cobra.Command{
		Use:   "add [wine name]",
		Short: "Record a tasting (saved locally, synced later)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := open(ctx)
			if err != nil {
				return err
			}
			defer s.close()

			rec := &models.Record{
				UserID:   cfg.UserID,
				WineName: strings.Join(args, " "),
				Producer: producer,
				Vintage:  vintage,
				Region:   region,
				Country:  country,
				Grapes:   grapes,
				Rating:   rating,
				Notes:    notes,
			}

			// Warn about likely duplicates before saving.
			svc := citation.NewService(s.engine, nil)
			report, err := svc.DetectDuplicates(ctx, cfg.UserID, citation.DuplicateQuery{
				WineName: rec.WineName,
				Producer: rec.Producer,
				Vintage:  rec.Vintage,
			})
			if err == nil && len(report.ExactDuplicates) > 0 {
				fmt.Printf("note: you already have %d record(s) for this wine\n", len(report.ExactDuplicates))
			}

			saved, err := s.engine.SaveOffline(ctx, rec)
			if err != nil {
				return err
			}
			fmt.Printf("saved %s (%s)\n", saved.WineName, saved.ID[:8])
			return nil
		},
	}

	cmd.Flags().StringVar(&producer, "producer", "", "producer or winery")
	cmd.Flags().IntVar(&vintage, "vintage", 0, "vintage year")
	cmd.Flags().StringVar(&region, "region", "", "wine region")
	cmd.Flags().StringVar(&country, "country", "", "country")
	cmd.Flags().StringSliceVar(&grapes, "grapes", nil, "grape varieties")
	cmd.Flags().IntVar(&rating, "rating", 0, "rating 0-100")
	cmd.Flags().StringVar(&notes, "notes", "", "tasting notes")
	return cmd
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List local records",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := open(ctx)
			if err != nil {
				return err
			}
			defer s.close()

			recs, err := s.engine.Records(ctx, cfg.UserID)
			if err != nil {
				return err
			}
			for _, r := range recs {
				marker := " "
				if r.IsOffline {
					marker = "*"
				}
				if r.ConflictData != nil {
					marker = "!"
				}
				fmt.Printf("%s %s  %-30s %s %d\n", marker, r.ID[:8], r.WineName, r.Producer, r.Vintage)
			}
			if len(recs) > 0 {
				fmt.Println("\n* unsynced  ! conflicted")
			}
			return nil
		},
	}
}

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [id]",
		Short: "Show one record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := open(ctx)
			if err != nil {
				return err
			}
			defer s.close()

			rec, err := s.store.Record(ctx, args[0])
			if err != nil {
				return err
			}
			printRecord(&rec.Record)
			if rec.ConflictData != nil {
				fmt.Println("\n--- server version (conflicted) ---")
				printRecord(rec.ConflictData)
			}
			return nil
		},
	}
}

func printRecord(r *models.Record) {
	fmt.Printf("%s\n", r.WineName)
	if r.Producer != "" {
		fmt.Printf("  producer: %s\n", r.Producer)
	}
	if r.Vintage != 0 {
		fmt.Printf("  vintage:  %d\n", r.Vintage)
	}
	if r.Region != "" {
		fmt.Printf("  region:   %s\n", r.Region)
	}
	if len(r.Grapes) > 0 {
		fmt.Printf("  grapes:   %s\n", strings.Join(r.Grapes, ", "))
	}
	if r.Rating != 0 {
		fmt.Printf("  rating:   %d\n", r.Rating)
	}
	if r.Notes != "" {
		fmt.Printf("  notes:    %s\n", r.Notes)
	}
	for _, c := range r.Citations {
		fmt.Printf("  cited %s from %s\n", strings.Join(c.CitedFields, ","), c.SourceRecordID[:8])
	}
}

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a record (tombstoned until synced)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := open(ctx)
			if err != nil {
				return err
			}
			defer s.close()

			if err := s.engine.DeleteOffline(ctx, args[0]); err != nil {
				return err
			}
			fmt.Println("deleted")
			return nil
		},
	}
}

func syncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Push queued mutations to the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := open(ctx)
			if err != nil {
				return err
			}
			defer s.close()

			s.goOnline(ctx)
			if !s.engine.IsOnline() {
				return fmt.Errorf("server unreachable at %s", cfg.ServerBaseURL)
			}

			sum, err := s.engine.Sync(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("synced: %d ok, %d failed, %d conflicts, %d dropped\n",
				sum.Success, sum.Failed, sum.Conflicts, sum.Dropped)
			if sum.Conflicts > 0 {
				fmt.Println("run 'vinotes conflicts' to review")
			}
			return nil
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show sync status",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := open(ctx)
			if err != nil {
				return err
			}
			defer s.close()

			s.goOnline(ctx)
			pending, err := s.store.PendingCount(ctx)
			if err != nil {
				return err
			}
			last, err := s.engine.LastSyncTime(ctx)
			if err != nil {
				return err
			}

			fmt.Printf("server:  %s (online: %v)\n", cfg.ServerBaseURL, s.engine.IsOnline())
			fmt.Printf("pending: %d mutation(s)\n", pending)
			if last.IsZero() {
				fmt.Println("last sync: never")
			} else {
				fmt.Printf("last sync: %s\n", last.Format(time.RFC3339))
			}
			return nil
		},
	}
}

func conflictsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "conflicts",
		Short: "List records awaiting conflict resolution",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := open(ctx)
			if err != nil {
				return err
			}
			defer s.close()

			recs, err := s.engine.ConflictRecords(ctx)
			if err != nil {
				return err
			}
			if len(recs) == 0 {
				fmt.Println("no conflicts")
				return nil
			}
			for _, r := range recs {
				fmt.Printf("%s  local: %q  server: %q\n", r.ID[:8], r.WineName, r.ConflictData.WineName)
			}
			fmt.Println("\nresolve with 'vinotes resolve <id> --keep local|server'")
			return nil
		},
	}
}

func resolveCmd() *cobra.Command {
	var keep string

	cmd := &cobra.Command{
		Use:   "resolve [id]",
		Short: "Resolve a sync conflict",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if keep != "local" && keep != "server" {
				return fmt.Errorf("--keep must be 'local' or 'server'")
			}
			ctx := cmd.Context()
			s, err := open(ctx)
			if err != nil {
				return err
			}
			defer s.close()

			if err := s.engine.ResolveConflict(ctx, args[0], keep == "local"); err != nil {
				return err
			}
			fmt.Printf("kept %s version\n", keep)
			return nil
		},
	}

	cmd.Flags().StringVar(&keep, "keep", "", "which version to keep: local or server")
	_ = cmd.MarkFlagRequired("keep")
	return cmd
}

func similarCmd() *cobra.Command {
	var threshold float64

	cmd := &cobra.Command{
		Use:   "similar [wine name]",
		Short: "Find past entries similar to a wine, with citable fields",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := open(ctx)
			if err != nil {
				return err
			}
			defer s.close()

			draft := &models.Record{UserID: cfg.UserID, WineName: strings.Join(args, " ")}
			svc := citation.NewService(s.engine, nil)
			cands, err := svc.FindSimilarWines(ctx, draft, cfg.UserID, citation.Options{Threshold: threshold})
			if err != nil {
				return err
			}
			if len(cands) == 0 {
				fmt.Println("no similar entries")
				return nil
			}
			for _, c := range cands {
				fmt.Printf("%.2f  %s  %s %d\n", c.Confidence, c.Record.WineName, c.Record.Producer, c.Record.Vintage)
				if len(c.SuggestedFields) > 0 {
					fmt.Printf("      citable: %s\n", strings.Join(c.SuggestedFields, ", "))
				}
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&threshold, "threshold", citation.DefaultThreshold, "minimum confidence")
	return cmd
}

func dupesCmd() *cobra.Command {
	var (
		producer string
		vintage  int
	)

	cmd := &cobra.Command{
		Use:   "dupes [wine name]",
		Short: "Check whether a wine is already in the journal",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := open(ctx)
			if err != nil {
				return err
			}
			defer s.close()

			svc := citation.NewService(s.engine, nil)
			report, err := svc.DetectDuplicates(ctx, cfg.UserID, citation.DuplicateQuery{
				WineName: strings.Join(args, " "),
				Producer: producer,
				Vintage:  vintage,
			})
			if err != nil {
				return err
			}

			for _, r := range report.ExactDuplicates {
				fmt.Printf("exact: %s  %s %d\n", r.WineName, r.Producer, r.Vintage)
			}
			for _, c := range report.SimilarWines {
				fmt.Printf("close: %.2f  %s  %s %d\n", c.Confidence, c.Record.WineName, c.Record.Producer, c.Record.Vintage)
			}
			if len(report.ExactDuplicates) == 0 && len(report.SimilarWines) == 0 {
				fmt.Println("no matches")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&producer, "producer", "", "producer or winery")
	cmd.Flags().IntVar(&vintage, "vintage", 0, "vintage year")
	return cmd
}

func deadLettersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dead-letters",
		Short: "List mutations dropped after exhausting retries",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := open(ctx)
			if err != nil {
				return err
			}
			defer s.close()

			letters, err := s.engine.DeadLetters(ctx)
			if err != nil {
				return err
			}
			if len(letters) == 0 {
				fmt.Println("no dead letters")
				return nil
			}
			for _, l := range letters {
				fmt.Printf("%s %s %s  attempts=%d  %s\n",
					l.DroppedAt.Format(time.RFC3339), l.Type, l.DocumentID, l.RetryCount, l.LastError)
			}
			return nil
		},
	}
}
