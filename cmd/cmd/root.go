package cmd

import (
	"github.com/spf13/cobra"
)

const AppName = "gofatx"

func Execute() error {
	rootCmd := &cobra.Command{
		Use:   AppName,
		Short: AppName + " - FATX filesystem engine for Xbox/Xbox 360 storage",
	}

	rootCmd.PersistentFlags().Int64("partition-start", 0, "byte offset of the FATX partition on the backing device/image (0 = auto)")
	rootCmd.PersistentFlags().Bool("raw-device", false, "treat the backing path as a raw block device rather than an image file")
	rootCmd.PersistentFlags().Bool("read-only", false, "open the volume read-only")
	rootCmd.PersistentFlags().Bool("strict-corruption", false, "abort operations on any corruption signal instead of best-effort continuation")
	rootCmd.PersistentFlags().String("log-level", "INFO", "log level: DEBUG, INFO, WARN, ERROR")

	rootCmd.AddCommand(DefineInfoCommand())
	rootCmd.AddCommand(DefineMountCommand())

	return rootCmd.Execute()
}
