package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/robertsLando/upscaler/internal/core/domain"
	"github.com/robertsLando/upscaler/internal/core/service"
)

var (
	batchWidth    int
	batchHeight   int
	batchWidthCm  float64
	batchHeightCm float64
	batchDPI      int
)

var batchCmd = &cobra.Command{
	Use:   "batch <glob>",
	Short: "upscale all files matching a glob pattern",
	Long: `Upscales every file matching the glob pattern and writes results next to
the sources with an _upscaled suffix. A failing file is reported and
skipped; the exit status is non-zero if any file failed.

Examples:
  upscaler batch "*.jpg" -w 1920 --height 1080
  upscaler batch "images/*.png" --width-cm 20 --height-cm 15 --dpi 300`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		spec, err := batchSpec(cmd)
		if err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		runner := service.NewBatchRunner(newPipeline())

		results, err := runner.Run(ctx, args[0], spec)
		if err != nil {
			return err
		}

		failed := 0
		for _, res := range results {
			if res.Err != nil {
				failed++
			}
		}

		log.Info().Int("total", len(results)).Int("failed", failed).Msg("batch finished")

		if failed > 0 {
			return fmt.Errorf("%d of %d files failed", failed, len(results))
		}

		return nil
	},
}

// batchSpec maps only the flags the caller actually set, so the domain
// constructor can arbitrate between the two input modes.
func batchSpec(cmd *cobra.Command) (domain.SizeSpec, error) {
	var widthPx, heightPx, dpi *int
	var widthCm, heightCm *float64

	f := cmd.Flags()
	if f.Changed("width") {
		widthPx = &batchWidth
	}
	if f.Changed("height") {
		heightPx = &batchHeight
	}
	if f.Changed("width-cm") {
		widthCm = &batchWidthCm
	}
	if f.Changed("height-cm") {
		heightCm = &batchHeightCm
	}
	if f.Changed("dpi") {
		dpi = &batchDPI
	}

	return domain.ParseSizeSpec(widthPx, heightPx, widthCm, heightCm, dpi)
}

func init() {
	batchCmd.Flags().IntVarP(&batchWidth, "width", "w", 0, "target width in pixels (1-10000)")
	batchCmd.Flags().IntVar(&batchHeight, "height", 0, "target height in pixels (1-10000)")
	batchCmd.Flags().Float64Var(&batchWidthCm, "width-cm", 0, "target width in centimeters (0.1-400)")
	batchCmd.Flags().Float64Var(&batchHeightCm, "height-cm", 0, "target height in centimeters (0.1-400)")
	batchCmd.Flags().IntVar(&batchDPI, "dpi", 0, "dots per inch (10-1200), required with --width-cm/--height-cm")

	rootCmd.AddCommand(batchCmd)
}
