package main

import (
	"fmt"
	"os"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"

	"github.com/DrmagicE/pushstore/cmd/pushctl/command"
)

var Version = "unknown"

var (
	rootCmd = &cobra.Command{
		Use:          "pushctl",
		Long:         "pushctl inspects and exercises the message persistence of a broker",
		Version:      Version,
		SilenceUsage: true,
	}
)

func must(err error) {
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	d, err := homedir.Dir()
	must(err)
	rootCmd.PersistentFlags().StringVarP(&command.ConfigFile, "config", "c", d+"/pushstore.yml", "The configuration file path")

	rootCmd.AddCommand(command.NewCheckCmd())
	rootCmd.AddCommand(command.NewQueueCmd())
	rootCmd.AddCommand(command.NewRetainedCmd())
	rootCmd.AddCommand(command.NewInflightCmd())
	rootCmd.AddCommand(command.NewBenchCmd())
	rootCmd.AddCommand(command.NewServeCmd())
}

func main() {
	must(rootCmd.Execute())
}
