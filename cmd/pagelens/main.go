// Package main provides the pagelens binary entry point.
// Pagelens answers natural-language questions over a corpus of scanned
// financial documents by fusing text retrieval with visual validation
// of the source page images.
package main

import (
	"fmt"
	"os"
	"runtime"

	// Register LLM providers via init()
	_ "github.com/c360studio/pagelens/llm/providers"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "pagelens"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	// Missing .env is fine; explicit env always wins.
	_ = godotenv.Load()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		configPath string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Question answering over scanned financial documents",
		Long: `Pagelens answers natural-language questions over a corpus of scanned
financial documents.

It fuses lexical and vector retrieval over enriched text chunks with
visual validation of the actual source page images, then synthesizes
both evidence streams into one citation-backed answer.`,
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(askCmd(&configPath, &logLevel))
	cmd.AddCommand(serveCmd(&configPath, &logLevel))
	cmd.AddCommand(ingestCmd(&configPath, &logLevel))
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})

	return cmd
}
