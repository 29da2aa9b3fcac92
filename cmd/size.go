package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/LilHomer/pytube/request"
	"github.com/LilHomer/pytube/utils"
)

var sizeSequential bool

var sizeCmd = &cobra.Command{
	Use:   "size [URL]",
	Short: "Resolve the total byte length of a resource without downloading it",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		utils.InitLogger(debug)
		resolver := request.NewResolver(newClient())
		var size int64
		var err error
		if sizeSequential {
			size, err = resolver.SeqFilesize(args[0])
		} else {
			size, err = resolver.Filesize(args[0])
		}
		if err != nil {
			utils.PrintError(fmt.Sprintf("Size resolution failed: %v", err))
			os.Exit(1)
		}
		utils.PrintInfo(fmt.Sprintf("%s (%d bytes)", utils.FormatBytes(uint64(size)), size))
	},
}

func init() {
	sizeCmd.Flags().BoolVar(&sizeSequential, "seq", false, "Treat the URL as a sequential (sq-segmented) resource")
	rootCmd.AddCommand(sizeCmd)
}
