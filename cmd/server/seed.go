package main

import (
	"math/rand"
	"time"

	"github.com/spf13/cobra"

	"supplyline/internal/app"
	"supplyline/internal/logging"
	"supplyline/internal/store"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Populate the configured store with demo data",
	Long: "Loads the demo dataset (items, warehouses, suppliers, drivers, orders, " +
		"deliveries) into the configured store. Does nothing if inventory already exists.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		st, err := app.OpenStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		rng := rand.New(rand.NewSource(time.Now().UnixNano()))
		if err := store.Seed(ctx, st, rng); err != nil {
			return err
		}

		items, err := st.ListInventory(ctx)
		if err != nil {
			return err
		}
		logging.New("seed").Info("seed_complete", "store seeded", map[string]any{
			"driver": cfg.Database.Driver,
			"items":  len(items),
		})
		return nil
	},
}
