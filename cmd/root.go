package cmd

import (
	"fmt"
	u "net/url"
	"os"
	"path"
	"time"

	"github.com/spf13/cobra"

	"github.com/LilHomer/pytube/internal/batch"
	"github.com/LilHomer/pytube/internal/download"
	"github.com/LilHomer/pytube/request"
	"github.com/LilHomer/pytube/utils"
)

var (
	output      string
	timeout     time.Duration
	maxRetries  int
	userAgent   string
	proxyURL    string
	headers     []string
	urlListFile string
	numWorkers  int
	debug       bool
)

var Version = "dev"

var rootCmd = &cobra.Command{
	Use:     "pullstream [URL]",
	Short:   "Pullstream fetches large media resources in bounded byte ranges",
	Version: Version,
	Args:    cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		utils.InitLogger(debug)
		if len(args) == 0 && urlListFile == "" {
			utils.PrintError("No URL or URL list provided")
			os.Exit(1)
		}
		if urlListFile != "" && len(args) > 0 {
			utils.PrintError("Cannot specify url argument and --urllist together, choose one")
			os.Exit(1)
		}
		if len(args) > 0 {
			if err := runSingle(args[0], false); err != nil {
				utils.PrintError(fmt.Sprintf("Download failed: %v", err))
				os.Exit(1)
			}
			return
		}
		entries, err := utils.ReadDownloadList(urlListFile)
		if err != nil {
			utils.PrintError(fmt.Sprintf("Failed to read URL list file: %v", err))
			os.Exit(1)
		}
		jobs := make([]batch.Job, 0, len(entries))
		for _, entry := range entries {
			jobs = append(jobs, batch.NewJob(entry, maxRetries))
		}
		if err := batch.Run(jobs, numWorkers, newClient()); err != nil {
			utils.PrintError("Encountered failed operation(s)")
			os.Exit(1)
		}
		utils.PrintSuccess("All downloads completed")
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newClient() *request.Client {
	return request.NewClient(request.ClientConfig{
		Timeout:   timeout,
		UserAgent: userAgent,
		ProxyURL:  proxyURL,
		Headers:   utils.ParseHeaderArgs(headers),
	})
}

// runSingle downloads one URL with a progress bar on stdout.
func runSingle(url string, sequential bool) error {
	client := newClient()
	outputPath := output
	if outputPath == "" {
		outputPath = inferOutputPath(url)
	}
	if _, err := os.Stat(outputPath); err == nil {
		outputPath = utils.RenewOutputPath(outputPath)
	}

	// A HEAD for the total is cheap for plain resources; sequential
	// sizing would download segment 0 twice, so the bar runs without
	// a total there.
	var total int64
	if !sequential {
		if size, err := request.NewResolver(client).Filesize(url); err == nil {
			total = size
		}
	}
	// Leave room for the percentage and delimiters around the bar.
	barWidth := min(utils.GetTerminalWidth()-20, 60)
	start := time.Now()
	err := download.Run(download.Config{
		URL:        url,
		OutputPath: outputPath,
		Sequential: sequential,
		MaxRetries: maxRetries,
		Progress: func(downloaded int64) {
			fmt.Printf("\r%s", utils.ProgressBar(downloaded, total, barWidth))
		},
	}, client)
	fmt.Println()
	if err != nil {
		return err
	}
	elapsed := time.Since(start).Seconds()
	if info, statErr := os.Stat(outputPath); statErr == nil {
		utils.PrintSuccess(fmt.Sprintf("%s %s (%s, %s)", utils.StyleSymbols["pass"], outputPath,
			utils.FormatBytes(uint64(info.Size())), utils.FormatSpeed(info.Size(), elapsed)))
	}
	return nil
}

// inferOutputPath derives a local file name from the URL path.
func inferOutputPath(url string) string {
	parsed, err := u.Parse(url)
	if err != nil || path.Base(parsed.Path) == "/" || path.Base(parsed.Path) == "." {
		return "download.bin"
	}
	return path.Base(parsed.Path)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "", "Output file path (inferred from URL if not provided)")
	rootCmd.PersistentFlags().DurationVarP(&timeout, "timeout", "t", 60*time.Second, "Per-request timeout (eg. 5s, 10m)")
	rootCmd.PersistentFlags().IntVarP(&maxRetries, "retries", "r", 0, "Extra attempts per chunk after a transient failure")
	rootCmd.PersistentFlags().StringVarP(&userAgent, "user-agent", "a", "", "User agent (randomized from a browser pool if not provided)")
	rootCmd.PersistentFlags().StringVarP(&proxyURL, "proxy", "p", "", "HTTP/HTTPS proxy URL")
	rootCmd.PersistentFlags().StringArrayVarP(&headers, "header", "H", []string{}, "Custom headers (like 'Authorization: Basic dXNlcjpwYXNz'); can be specified multiple times")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	rootCmd.Flags().StringVarP(&urlListFile, "urllist", "l", "", "Path to YAML file containing URLs and output paths")
	rootCmd.Flags().IntVarP(&numWorkers, "workers", "w", 1, "Number of list entries to download in parallel")
}
