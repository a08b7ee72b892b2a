// Package initcmder provides the init command for initializing a local .vera
// directory in the current working directory.
package initcmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/vera/pkg/cliui"
	"github.com/papercomputeco/vera/pkg/config"
)

const (
	dirName    = ".vera"
	configName = "config.toml"

	// remoteTimeout bounds fetching a preset from a URL.
	remoteTimeout = 10 * time.Second
)

type initCommander struct {
	preset string
	out    io.Writer
}

const initLongDesc string = `Initialize a new .vera/ directory in the current working directory.

Creates a local .vera/ directory that takes precedence over the default
~/.vera/ directory for configuration and stream recordings, and writes a
config.toml with default values unless one already exists.

Use --preset to start from a named preset or from a config.toml served at
a URL. A preset always overwrites the existing config.toml.

Presets:
  local     Point at a fixture server started with "vera serve"
  hosted    Point at the public stream endpoint

Examples:
  vera init
  vera init --preset local
  vera init --preset https://example.com/vera/config.toml`

const initShortDesc string = "Initialize a local .vera/ directory"

func NewInitCmd() *cobra.Command {
	cmder := &initCommander{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.out = cmd.OutOrStdout()
			return cmder.run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&cmder.preset, "preset", "", "Preset name ("+strings.Join(config.ValidPresetNames(), ", ")+") or URL of a config.toml")
	_ = cmd.RegisterFlagCompletionFunc("preset", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return config.ValidPresetNames(), cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func (c *initCommander) run(ctx context.Context) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	dir := filepath.Join(cwd, dirName)

	info, err := os.Stat(dir)
	existed := err == nil && info.IsDir()
	if !existed {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating .vera directory: %w", err)
		}
	}

	path := filepath.Join(dir, configName)

	switch {
	case c.preset != "":
		data, err := c.presetTOML(ctx)
		if err != nil {
			return err
		}
		if err := os.WriteFile(path, data, 0o600); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

	default:
		if _, err := os.Stat(path); err == nil {
			break
		} else if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("reading config: %w", err)
		}

		cfger, err := config.NewConfiger(dir)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if err := cfger.SaveConfig(config.NewDefaultConfig()); err != nil {
			return err
		}
	}

	if existed {
		fmt.Fprintf(c.out, "  %s Already initialized: %s\n", cliui.SuccessMark, cliui.DimStyle.Render(dir))
	} else {
		fmt.Fprintf(c.out, "  %s Initialized .vera directory: %s\n", cliui.SuccessMark, cliui.DimStyle.Render(dir))
	}
	if c.preset != "" {
		fmt.Fprintf(c.out, "  %s Applied preset %s\n", cliui.SuccessMark, cliui.ValueStyle.Render(c.preset))
	}

	return nil
}

// presetTOML returns the config.toml contents for the configured preset.
func (c *initCommander) presetTOML(ctx context.Context) ([]byte, error) {
	if strings.HasPrefix(c.preset, "http://") || strings.HasPrefix(c.preset, "https://") {
		return fetchRemoteConfig(ctx, c.preset)
	}

	cfg, err := config.PresetConfig(c.preset)
	if err != nil {
		return nil, err
	}
	return config.EncodeConfigTOML(cfg)
}

// fetchRemoteConfig downloads a config.toml and validates that it parses.
func fetchRemoteConfig(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, remoteTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching remote config: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}

	if _, err := config.ParseConfigTOML(data); err != nil {
		return nil, err
	}

	return data, nil
}
