package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	multichecksum "github.com/Eliorco/Multichecksum/internal/walk"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	version = "0.1.0"

	// outputFs receives --output files.
	outputFs afero.Fs = afero.NewOsFs()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "multichecksum [options] <path>",
	Short: "Compute a checksum for every file under a directory",
	Long: `multichecksum walks a directory tree and computes a content checksum for
every regular file, either sequentially or with a bounded number of concurrent
workers. Files are indexed deepest-first: a directory's own files are numbered
only after everything beneath it.`,
	Version:      version,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		return runChecksum(ctx, cmd, args[0])
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default is $HOME/.multichecksum.yaml)")

	// Flags
	flags := rootCmd.PersistentFlags()
	flags.String("mode", string(multichecksum.ModeConcurrent), "Traversal mode (sequential|concurrent)")
	flags.IntP("workers", "w", 0, "Number of concurrent workers (0 = number of CPUs)")
	flags.StringP("algorithm", "a", string(multichecksum.DefaultAlgorithm), "Digest algorithm ("+strings.Join(multichecksum.Algorithms(), "|")+")")
	flags.Bool("sort", false, "Sort directory entries by name for reproducible indices")
	flags.Bool("overlap", false, "Expand sibling directories concurrently (concurrent mode)")
	flags.String("error-mode", "continue", "Unreadable directory handling (continue|stop)")
	flags.String("format", "json", "Output format (json|text)")
	flags.StringP("output", "o", "", "Write the report to this file instead of stdout")
	flags.BoolP("verbose", "v", false, "Enable verbose logging")
	flags.Bool("silent", false, "Disable all logging except errors")
	flags.Bool("progress", false, "Show progress updates on stderr")

	// Bind flags to viper
	for _, name := range []string{
		"mode", "workers", "algorithm", "sort", "overlap", "error-mode",
		"format", "output", "verbose", "silent", "progress",
	} {
		viper.BindPFlag(name, flags.Lookup(name))
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			// Search config in home directory with name ".multichecksum" (without extension).
			viper.AddConfigPath(home)
			viper.SetConfigType("yaml")
			viper.SetConfigName(".multichecksum")
		}
	}

	viper.SetEnvPrefix("MULTICHECKSUM")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// walkerFromConfig builds the walker selected by the current configuration.
func walkerFromConfig(progress io.Writer) (multichecksum.Walker, error) {
	opts := multichecksum.Options{
		Concurrency:     viper.GetInt("workers"),
		Algorithm:       multichecksum.Algorithm(strings.ToLower(viper.GetString("algorithm"))),
		SortEntries:     viper.GetBool("sort"),
		OverlapSiblings: viper.GetBool("overlap"),
	}

	// Set error handling mode
	switch errorMode := viper.GetString("error-mode"); errorMode {
	case "continue":
		opts.ErrorHandling = multichecksum.ErrorHandlingContinue
	case "stop":
		opts.ErrorHandling = multichecksum.ErrorHandlingStop
	default:
		return nil, fmt.Errorf("invalid error-mode: %s", errorMode)
	}

	// Set log level
	if viper.GetBool("verbose") {
		opts.LogLevel = multichecksum.LogLevelDebug
	} else if viper.GetBool("silent") {
		opts.LogLevel = multichecksum.LogLevelError
	} else {
		opts.LogLevel = multichecksum.LogLevelInfo
	}

	// Set progress function if requested
	if viper.GetBool("progress") {
		opts.Progress = func(stats multichecksum.Stats) {
			fmt.Fprintf(progress, "\rDigested: %d files, %d dirs, %d errors, %.1f files/s",
				stats.FilesDigested, stats.DirsListed, stats.ErrorCount, stats.FilesPerSec)
		}
	}

	return multichecksum.NewWalker(multichecksum.Mode(viper.GetString("mode")), opts)
}

// render writes report in the configured format.
func render(w io.Writer, report *multichecksum.RunReport) error {
	switch format := viper.GetString("format"); format {
	case "json":
		return report.WriteJSON(w)
	case "text":
		return report.WriteText(w)
	default:
		return fmt.Errorf("invalid format: %s", format)
	}
}

func runChecksum(ctx context.Context, cmd *cobra.Command, root string) error {
	walker, err := walkerFromConfig(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	report, err := walker.Walk(ctx, root)
	if viper.GetBool("progress") {
		fmt.Fprintln(cmd.ErrOrStderr())
	}
	if err != nil {
		return err
	}

	output := viper.GetString("output")
	if output == "" {
		return render(cmd.OutOrStdout(), report)
	}

	f, err := outputFs.Create(output)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	if err := render(f, report); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
