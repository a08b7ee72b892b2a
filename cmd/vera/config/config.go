// Package configcmder provides the config command for managing persistent
// vera configuration stored in the .vera/ directory.
package configcmder

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/vera/pkg/cliui"
	"github.com/papercomputeco/vera/pkg/config"
)

const configLongDesc string = `Manage persistent vera configuration.

Configuration is stored as config.toml in the .vera/ directory and provides
default values for command flags. CLI flags and VERA_* environment variables
always take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  client.endpoint, client.frame_interval, client.timeout, client.read_size,
  render.format, render.style, render.word_wrap,
  events.provider, events.brokers, events.topic,
  fixture.listen, fixture.fragment_size, fixture.delay

Use subcommands to get, set, or list configuration values:
  vera config set <key> <value>    Set a configuration value
  vera config get <key>            Get a configuration value
  vera config list                 List all configuration values

Examples:
  vera config set client.endpoint http://localhost:8090/api/stream
  vera config set render.format markdown
  vera config get client.endpoint
  vera config list`

const configShortDesc string = "Manage persistent vera configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

// printTarget reports which config file a subcommand reads.
func printTarget(w io.Writer, cfger *config.Configer) {
	if target := cfger.GetTarget(); target != "" {
		fmt.Fprintf(w, "\n  %s %s\n\n",
			cliui.KeyStyle.Render("Config file:"),
			cliui.DimStyle.Render(target),
		)
		return
	}
	fmt.Fprintf(w, "\n  %s\n\n", cliui.DimStyle.Render("No config file found. Using defaults."))
}

func completeKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}
