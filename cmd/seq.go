package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/LilHomer/pytube/utils"
)

var seqCmd = &cobra.Command{
	Use:   "seq [URL]",
	Short: "Download a resource delivered as numbered sq segments",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		utils.InitLogger(debug)
		if err := runSingle(args[0], true); err != nil {
			utils.PrintError(fmt.Sprintf("Download failed: %v", err))
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(seqCmd)
}
