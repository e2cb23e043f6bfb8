package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"articlecast/app"
	"articlecast/config"
	"articlecast/confirm"
	"articlecast/image"
	"articlecast/pipeline"
)

var (
	runFocus    string
	runFromStep int
	runYes      bool
	runNoReuse  bool
)

var runCmd = &cobra.Command{
	Use:   "run <url>",
	Short: "Produce videos for one article URL",
	Args:  cobra.ExactArgs(1),
	RunE:  runMain,
}

func init() {
	runCmd.Flags().StringVarP(&runFocus, "focus", "f", "", "Focus topic to emphasize in the scenario")
	runCmd.Flags().IntVar(&runFromStep, "from-step", 0, "Start at this step (0 = resume from checkpoint)")
	runCmd.Flags().BoolVarP(&runYes, "yes", "y", false, "Approve all confirmation gates without prompting")
	runCmd.Flags().BoolVar(&runNoReuse, "no-reuse", false, "Never reuse cached images, always generate")
}

func runMain(cmd *cobra.Command, args []string) error {
	settings := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	factory, err := app.NewFactory(ctx, settings)
	if err != nil {
		return err
	}

	var confirmer pipeline.Confirmer = &confirm.Terminal{In: os.Stdin, Out: os.Stdout}
	if runYes {
		confirmer = confirm.Auto{}
	}

	var reuse image.ReuseFunc
	if !runNoReuse {
		reuse = promptImageReuse
	}

	p, ledger, err := factory.NewPipeline(ctx, args[0], runFocus, app.JobOptions{
		Confirm:  confirmer,
		Progress: printProgress,
		Reuse:    reuse,
	})
	if err != nil {
		return err
	}

	err = p.Run(ctx, runFromStep)
	switch {
	case errors.Is(err, pipeline.ErrAborted):
		log.Printf("Run aborted; checkpoint kept for a later retry")
	case err != nil:
		return err
	}

	fmt.Println(ledger.Summary())
	return nil
}

// promptImageReuse asks on the terminal whether a cached image may
// stand in for a scene. Used interactively; queue and feed runs reuse
// automatically instead.
func promptImageReuse(sceneID int, prompt, existingPath string) bool {
	fmt.Printf("\nScene %d has a similar cached image: %s\n", sceneID, existingPath)
	fmt.Print("Reuse it? (y/n): ")
	var answer string
	_, _ = fmt.Scanln(&answer)
	return confirm.ParseAnswer(answer)
}

func printProgress(step, total int, desc string, pct float64) {
	if pct >= 1.0 {
		fmt.Printf("  step %d/%d done: %s\n", step, total, desc)
	}
}
