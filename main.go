package main

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/robertsLando/upscaler/internal/adapters/esrgan"
	"github.com/robertsLando/upscaler/internal/adapters/resizer"
	"github.com/robertsLando/upscaler/internal/core/service"
)

const defaultWeightsURL = "https://marcan.st/transf/scale2.0x_model.json"

var rootCmd = &cobra.Command{
	Use:   "upscaler",
	Short: "AI image upscaler",
	Long: `Upscales raster images with a fixed 4x super-resolution model and fits
them into an exact target size, given either in pixels or as physical
dimensions at a print resolution.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		initConfig()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetConfigName("config")
	viper.SetConfigType("toml")
	viper.AddConfigPath(".")

	viper.SetDefault("server.listen_addr", ":8080")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("model.weights_url", defaultWeightsURL)
	viper.SetDefault("model.cache_dir", defaultCacheDir())
	viper.SetDefault("model.workers", 0)

	err := viper.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			log.Fatal().Err(err).Msg("could not read config file")
		}
	}

	var logLevel zerolog.Level

	switch viper.GetString("log.level") {
	case "debug":
		logLevel = zerolog.DebugLevel
	case "warn":
		logLevel = zerolog.WarnLevel
	default:
		logLevel = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(logLevel)
}

func defaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "upscaler")
	}

	return filepath.Join(dir, "upscaler")
}

// newPipeline wires the shared model gateway and the Lanczos resizer into
// a ready pipeline. The model itself loads lazily on first use.
func newPipeline() *service.UpscalePipeline {
	gateway := esrgan.NewGateway(esrgan.Loader(
		viper.GetString("model.weights_url"),
		viper.GetString("model.cache_dir"),
		viper.GetInt("model.workers"),
	))

	return service.NewUpscalePipeline(gateway, &resizer.Lanczos{})
}
