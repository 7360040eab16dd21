package main

import (
	"os"

	cmd "github.com/mosaicnetworks/attest/cmd/attest/commands"
)

func main() {
	rootCmd := cmd.RootCmd

	rootCmd.AddCommand(
		cmd.NewRunCmd(),
		cmd.NewKeygenCmd(),
		cmd.NewSignCmd(),
		cmd.NewRecoverCmd(),
		cmd.NewTxCmd(),
		cmd.VersionCmd)

	//Do not print usage when error occurs
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
