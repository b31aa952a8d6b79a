package main

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "ledgerctl",
	Short:        "Operate the wallet ledger from the command line",
	SilenceUsage: true,
}
