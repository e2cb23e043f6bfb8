package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"articlecast/app"
	"articlecast/config"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the image reuse cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show how many cached images are available for reuse",
	RunE:  cacheStatsMain,
}

var cacheSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Drop cache entries whose image files no longer exist",
	RunE:  cacheSweepMain,
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd, cacheSweepCmd)
}

func cacheStatsMain(cmd *cobra.Command, args []string) error {
	ctx, factory, err := cacheFactory()
	if err != nil {
		return err
	}
	entries, err := factory.Index().Store().Entries(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Image cache holds %d entries\n", len(entries))
	return nil
}

func cacheSweepMain(cmd *cobra.Command, args []string) error {
	ctx, factory, err := cacheFactory()
	if err != nil {
		return err
	}
	removed, err := factory.Index().ClearMissing(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Removed %d entries with missing image files\n", removed)
	return nil
}

func cacheFactory() (context.Context, *app.Factory, error) {
	settings := config.Load()
	ctx, _ := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	factory, err := app.NewFactory(ctx, settings)
	return ctx, factory, err
}
