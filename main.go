package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "articlecast",
	Short: "Turn an article URL into localized YouTube videos",
	Long: `articlecast runs an article through an eleven stage pipeline:
scrape, scenario, shorts cut, translation, images, speech, music,
composition, thumbnails, save and upload. Every completed stage is
checkpointed so an interrupted run resumes where it stopped.

Examples:
  articlecast run https://example.com/some-article
  articlecast run https://example.com/some-article --focus "the merger" --yes
  articlecast serve --port 8080
  articlecast watch st
  articlecast cache sweep
  articlecast history`,
}

func main() {
	rootCmd.AddCommand(runCmd, serveCmd, watchCmd, cacheCmd, historyCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
