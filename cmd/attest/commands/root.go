package commands

import (
	"github.com/spf13/cobra"
)

var (
	_config = NewDefaultCLIConfig()
)

//RootCmd is the root command for attest
var RootCmd = &cobra.Command{
	Use:              "attest",
	Short:            "signed-message registry with weighted voting",
	TraverseChildren: true,
}
