package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func DefineInfoCommand() *cobra.Command {
	return &cobra.Command{
		Use:          "info <image_path>",
		Short:        "Print the layout and cluster usage of a FATX volume",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE:         runInfo,
	}
}

func runInfo(cmd *cobra.Command, args []string) error {
	vol, _, err := openVolumeFromFlags(cmd, args[0])
	if err != nil {
		return err
	}
	defer vol.Close()

	info := vol.Info()
	byteOrder := "little-endian"
	if info.BigEndian {
		byteOrder = "big-endian"
	}

	fmt.Printf("volume id:         0x%x\n", info.VolumeID)
	fmt.Printf("partition start:   0x%x\n", info.PartitionStart)
	fmt.Printf("byte order:        %s\n", byteOrder)
	fmt.Printf("FAT start:         0x%x\n", info.FATStart)
	fmt.Printf("FAT entry width:   %d bytes\n", info.EntryWidth)
	fmt.Printf("FAT region size:   0x%x\n", info.FATRegionSize)
	fmt.Printf("FAT entry count:   %d\n", info.EntryCount)
	fmt.Printf("root dir offset:   0x%x\n", info.RootDirOffset)
	fmt.Printf("volume end:        0x%x\n", info.VolumeEnd)
	fmt.Printf("data region size:  0x%x\n", info.DataSize)
	fmt.Printf("read-only:         %v\n", info.ReadOnly)
	fmt.Printf("free clusters:     %d\n", info.FreeClusters)
	fmt.Printf("used clusters:     %d\n", info.UsedClusters)
	fmt.Printf("bad clusters:      %d\n", info.BadClusters)
	return nil
}
