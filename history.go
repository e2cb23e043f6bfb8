package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List completed runs recorded in Redis",
	RunE:  historyMain,
}

func historyMain(cmd *cobra.Command, args []string) error {
	ctx, factory, err := cacheFactory()
	if err != nil {
		return err
	}
	store := factory.History()
	if store == nil {
		return fmt.Errorf("history requires REDIS_ADDR to be set")
	}

	records, err := store.List(ctx)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No completed runs yet")
		return nil
	}
	for _, rec := range records {
		uploaded := " "
		if rec.Uploaded {
			uploaded = "U"
		}
		fmt.Printf("%s  [%s]  %s  $%.4f  %s\n",
			rec.CompletedAt.Format("2006-01-02 15:04"), uploaded, rec.JobID, rec.TotalCost, rec.TitleKO)
	}
	return nil
}
