package commands

import (
	"github.com/mosaicnetworks/reactor/src/config"
	"github.com/spf13/cobra"
)

var (
	_config = config.NewDefaultConfig()
)

//RootCmd is the root command for the reactor node
var RootCmd = &cobra.Command{
	Use:              "reactor",
	Short:            "reactor node",
	TraverseChildren: true,
}
