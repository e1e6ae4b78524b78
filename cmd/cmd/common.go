package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/gofatx/gofatx/internal/logger"
	"github.com/gofatx/gofatx/pkg/fatx"
)

// openVolumeFromFlags opens imagePath per the persistent flags shared by
// every subcommand that touches a volume.
func openVolumeFromFlags(cmd *cobra.Command, imagePath string) (*fatx.Volume, *logger.Logger, error) {
	partitionStart, _ := cmd.Flags().GetInt64("partition-start")
	rawDevice, _ := cmd.Flags().GetBool("raw-device")
	readOnly, _ := cmd.Flags().GetBool("read-only")
	strict, _ := cmd.Flags().GetBool("strict-corruption")
	levelStr, _ := cmd.Flags().GetString("log-level")

	log := logger.New(os.Stderr, logger.ParseLevel(levelStr))

	vol, err := fatx.Open(imagePath, fatx.Options{
		PartitionStart:   partitionStart,
		RawDevice:        rawDevice,
		ReadOnly:         readOnly,
		StrictCorruption: strict,
		Logger:           log,
	})
	if err != nil {
		return nil, nil, err
	}
	return vol, log, nil
}
