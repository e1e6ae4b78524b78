package cmd

import (
	"github.com/spf13/cobra"

	"github.com/gofatx/gofatx/internal/fuse"
)

func DefineMountCommand() *cobra.Command {
	return &cobra.Command{
		Use:          "mount <image_path> <mountpoint>",
		Short:        "Mount a FATX volume read-write via FUSE",
		Args:         cobra.ExactArgs(2),
		SilenceUsage: true,
		RunE:         runMount,
	}
}

func runMount(cmd *cobra.Command, args []string) error {
	vol, log, err := openVolumeFromFlags(cmd, args[0])
	if err != nil {
		return err
	}
	defer vol.Close()

	return fuse.Mount(args[1], vol, log)
}
