// Package veracmder
package veracmder

import (
	"github.com/spf13/cobra"

	versioncmder "github.com/papercomputeco/vera/cmd/version"
	askcmder "github.com/papercomputeco/vera/cmd/vera/ask"
	configcmder "github.com/papercomputeco/vera/cmd/vera/config"
	initcmder "github.com/papercomputeco/vera/cmd/vera/init"
	replaycmder "github.com/papercomputeco/vera/cmd/vera/replay"
	servecmder "github.com/papercomputeco/vera/cmd/vera/serve"
)

const veraLongDesc string = `Vera streams answers to clinical questions.

Ask a question and watch the answer arrive, with guideline and drug
references collected into collapsible sections:
  vera ask "first-line therapy for type 2 diabetes"
  vera ask                  Start the interactive UI
  vera replay --last        Replay the latest recorded stream
  vera serve                Run a local fixture stream server`

const veraShortDesc string = "Vera - streaming clinical Q&A"

func NewVeraCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "vera",
		Short:        veraShortDesc,
		Long:         veraLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to the .vera/ config directory")

	// Add subcommands
	cmd.AddCommand(askcmder.NewAskCmd())
	cmd.AddCommand(replaycmder.NewReplayCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
