package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

type flags struct {
	config   string
	blocks   string
	logLevel string
}

func rootCommand() *cobra.Command {
	f := &flags{}

	root := &cobra.Command{
		Use:           "vaultstate",
		Short:         "Live vault views over a demo chain",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&f.config, "config", "", "config file (yaml, json or toml)")
	root.PersistentFlags().StringVar(&f.blocks, "blocks", "", "block source: ticker, redis, kafka or manual")
	root.PersistentFlags().StringVar(&f.logLevel, "log-level", "", "log level, overrides log.level")

	root.AddCommand(watchCommand(f), uiCommand(f))
	return root
}

func main() {
	if err := rootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
