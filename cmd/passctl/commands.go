package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/benjaminBrynildsen/Coffee-Pass/internal/auth"
	"github.com/benjaminBrynildsen/Coffee-Pass/internal/catalog"
	"github.com/benjaminBrynildsen/Coffee-Pass/internal/config"
	"github.com/benjaminBrynildsen/Coffee-Pass/internal/database"
	"github.com/benjaminBrynildsen/Coffee-Pass/internal/domain"
	"github.com/benjaminBrynildsen/Coffee-Pass/internal/reward"
	"github.com/benjaminBrynildsen/Coffee-Pass/internal/stats"
	"github.com/benjaminBrynildsen/Coffee-Pass/internal/trail"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// openDB is swapped in tests.
var openDB = func() (*gorm.DB, *config.Config, error) {
	cfg := config.LoadConfig()
	db, err := database.Open(cfg.DatabaseDriver, cfg.DatabasePath)
	return db, cfg, err
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "passctl",
		Short:        "Operator tasks for Coffee Pass",
		SilenceUsage: true,
	}
	root.AddCommand(newSeedCmd(), newExpireCmd(), newProgressCmd(), newStreaksCmd(), newXPCmd(), newKeysCmd())
	return root
}

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the built-in catalog (shops, trails, rewards, achievements)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, _, err := openDB()
			if err != nil {
				return err
			}
			cat, err := catalog.Default()
			if err != nil {
				return err
			}
			if err := cat.Seed(db); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d shops, %d trails, %d rewards, %d achievements\n",
				len(cat.Shops), len(cat.Trails), len(cat.Rewards), len(cat.Achievements))
			return nil
		},
	}
}

func newExpireCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "expire",
		Short: "Redeem every reveal session whose window has passed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, cfg, err := openDB()
			if err != nil {
				return err
			}
			engine := reward.NewEngine(db, nil, domain.SystemClock(), reward.Options{
				Window: cfg.RevealWindow(),
				Tick:   cfg.RevealTick(),
			})
			defer engine.Close()
			n, err := engine.ExpireDue(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "redeemed %d expired reveal sessions\n", n)
			return nil
		},
	}
}

func newProgressCmd() *cobra.Command {
	var (
		userID  uint
		trailID string
	)
	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Print a user's progress on a trail",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, _, err := openDB()
			if err != nil {
				return err
			}
			summary, err := trail.NewEngine(db, domain.SystemClock()).ProgressFor(cmd.Context(), trailID, userID)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(summary)
		},
	}
	cmd.Flags().UintVar(&userID, "user", 0, "user id")
	cmd.Flags().StringVar(&trailID, "trail", "", "trail id")
	cmd.MarkFlagRequired("user")
	cmd.MarkFlagRequired("trail")
	return cmd
}

func newStreaksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "streaks",
		Short: "Reset the streak of every user who missed a day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, _, err := openDB()
			if err != nil {
				return err
			}
			n, err := stats.NewService(db, domain.SystemClock(), stats.Options{}).ResetLapsedStreaks(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "reset %d lapsed streaks\n", n)
			return nil
		},
	}
}

func newXPCmd() *cobra.Command {
	var (
		userID uint
		delta  int
	)
	cmd := &cobra.Command{
		Use:   "xp",
		Short: "Adjust a user's xp; a negative delta never lowers the level",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, _, err := openDB()
			if err != nil {
				return err
			}
			u, err := stats.NewService(db, domain.SystemClock(), stats.Options{}).AddXP(cmd.Context(), userID, delta)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "user %d: xp %d, level %d\n", u.ID, u.XP, u.Level)
			return nil
		},
	}
	cmd.Flags().UintVar(&userID, "user", 0, "user id")
	cmd.Flags().IntVar(&delta, "delta", 0, "xp to add, negative to remove")
	cmd.MarkFlagRequired("user")
	cmd.MarkFlagRequired("delta")
	return cmd
}

func newKeysCmd() *cobra.Command {
	keys := &cobra.Command{
		Use:   "keys",
		Short: "Manage point-of-sale integration keys",
	}

	var (
		shopID   string
		provider string
		ttl      time.Duration
	)
	create := &cobra.Command{
		Use:   "create",
		Short: "Issue an integration key for a shop; the key is printed once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, _, err := openDB()
			if err != nil {
				return err
			}
			var expiresAt *time.Time
			if ttl > 0 {
				t := time.Now().Add(ttl)
				expiresAt = &t
			}
			raw, key, err := auth.CreateIntegrationKey(cmd.Context(), db, shopID, provider, expiresAt)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "key %d for shop %s (%s): %s\n", key.ID, key.ShopID, key.Provider, raw)
			return nil
		},
	}
	create.Flags().StringVar(&shopID, "shop", "", "shop id")
	create.Flags().StringVar(&provider, "provider", "", "point-of-sale provider name")
	create.Flags().DurationVar(&ttl, "ttl", 0, "key lifetime, e.g. 720h; zero never expires")
	create.MarkFlagRequired("shop")

	keys.AddCommand(create)
	return keys
}
