// Package replaycmder provides the replay command, which runs a recorded
// stream through the same pipeline as a live answer.
package replaycmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/papercomputeco/vera/pkg/cliui"
	"github.com/papercomputeco/vera/pkg/client"
	"github.com/papercomputeco/vera/pkg/config"
	"github.com/papercomputeco/vera/pkg/dotdir"
	"github.com/papercomputeco/vera/pkg/logger"
	"github.com/papercomputeco/vera/pkg/render"
	"github.com/papercomputeco/vera/pkg/transport"
)

type replayCommander struct {
	fragmentSize  uint
	delay         string
	frameInterval string
	format        string
	style         string
	wordWrap      uint
	events        string
	brokers       string
	topic         string

	last      bool
	list      bool
	follow    bool
	debug     bool
	configDir string

	out    io.Writer
	errOut io.Writer
	logger *slog.Logger
}

var replayFlags = []string{
	config.FlagFragmentSize,
	config.FlagDelay,
	config.FlagFrameInterval,
	config.FlagFormat,
	config.FlagStyle,
	config.FlagWordWrap,
	config.FlagEvents,
	config.FlagBrokers,
	config.FlagTopic,
}

const replayLongDesc string = `Replay a recorded stream.

Feeds a raw stream recording (made with "vera ask --record", or any
captured event-stream body) through the same line splitting, parsing and
section extraction as a live answer, then writes the final document.

The file is read in fragments of --fragment-size bytes with --delay
between them, so a recording can be replayed at any chunking to check
that the result does not depend on where reads are cut. With --follow,
replay keeps reading as the file grows until it is removed or renamed,
or until interrupted.

Examples:
  vera replay --list
  vera replay --last
  vera replay --fragment-size 1 --delay 0s answer.sse
  vera replay --follow capture.sse`

const replayShortDesc string = "Replay a recorded stream"

func NewReplayCmd() *cobra.Command {
	cmder := &replayCommander{}

	cmd := &cobra.Command{
		Use:   "replay [file]",
		Short: replayShortDesc,
		Long:  replayLongDesc,
		Args:  cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, config.Flags, replayFlags)

			cmder.fragmentSize = v.GetUint("fixture.fragment_size")
			cmder.delay = v.GetString("fixture.delay")
			cmder.frameInterval = v.GetString("client.frame_interval")
			cmder.format = v.GetString("render.format")
			cmder.style = v.GetString("render.style")
			cmder.wordWrap = v.GetUint("render.word_wrap")
			cmder.events = v.GetString("events.provider")
			cmder.brokers = v.GetString("events.brokers")
			cmder.topic = v.GetString("events.topic")
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			cmder.out = cmd.OutOrStdout()
			cmder.errOut = cmd.ErrOrStderr()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var path string
			if len(args) == 1 {
				path = args[0]
			}
			return cmder.run(ctx, path)
		},
	}

	config.AddUintFlag(cmd, config.Flags, config.FlagFragmentSize, &cmder.fragmentSize)
	config.AddStringFlag(cmd, config.Flags, config.FlagDelay, &cmder.delay)
	config.AddStringFlag(cmd, config.Flags, config.FlagFrameInterval, &cmder.frameInterval)
	config.AddStringFlag(cmd, config.Flags, config.FlagFormat, &cmder.format)
	config.AddStringFlag(cmd, config.Flags, config.FlagStyle, &cmder.style)
	config.AddUintFlag(cmd, config.Flags, config.FlagWordWrap, &cmder.wordWrap)
	config.AddStringFlag(cmd, config.Flags, config.FlagEvents, &cmder.events)
	config.AddStringFlag(cmd, config.Flags, config.FlagBrokers, &cmder.brokers)
	config.AddStringFlag(cmd, config.Flags, config.FlagTopic, &cmder.topic)

	cmd.Flags().BoolVar(&cmder.last, "last", false, "Replay the most recent recording")
	cmd.Flags().BoolVar(&cmder.list, "list", false, "List recordings instead of replaying")
	cmd.Flags().BoolVar(&cmder.follow, "follow", false, "Keep reading as the file grows")

	return cmd
}

func (c *replayCommander) run(ctx context.Context, path string) error {
	if c.logger == nil {
		c.logger = logger.New(
			logger.WithDebug(c.debug),
			logger.WithSource(c.debug),
			logger.WithPretty(true),
			logger.WithWriter(c.errOut),
		)
	}

	if c.list {
		return c.runList()
	}

	path, err := c.resolvePath(path)
	if err != nil {
		return err
	}

	delay, err := time.ParseDuration(c.delay)
	if err != nil {
		return fmt.Errorf("invalid delay %q: %w", c.delay, err)
	}
	frameInterval, err := time.ParseDuration(c.frameInterval)
	if err != nil {
		return fmt.Errorf("invalid frame interval %q: %w", c.frameInterval, err)
	}

	r, err := render.New(c.format, render.Options{Style: c.style, WordWrap: int(c.wordWrap)})
	if err != nil {
		return err
	}

	publisher, err := client.NewPublisher(config.EventsConfig{
		Provider: c.events,
		Brokers:  c.brokers,
		Topic:    c.topic,
	}, c.logger)
	if err != nil {
		return err
	}

	cl := client.New(client.Config{
		Transport: transport.NewFile(transport.FileConfig{
			FragmentSize: int(c.fragmentSize),
			Delay:        delay,
			Follow:       c.follow,
			Logger:       c.logger,
		}),
		FrameInterval: frameInterval,
		Publisher:     publisher,
		Endpoint:      "file://" + path,
		Logger:        c.logger,
	})
	defer func() {
		if err := cl.Close(); err != nil {
			c.logger.Warn("closing event publisher", "error", err)
		}
	}()

	_, err = cl.Print(ctx, path, r, c.out, c.errOut, isTerminal(c.errOut))
	return err
}

// resolvePath picks the recording to replay.
func (c *replayCommander) resolvePath(path string) (string, error) {
	switch {
	case c.last && path != "":
		return "", errors.New("--last cannot be combined with a file argument")
	case c.last:
		return dotdir.NewManager().LatestRecording(c.configDir)
	case path == "":
		return "", errors.New("a recording file or --last is required")
	}
	return filepath.Abs(path)
}

func (c *replayCommander) runList() error {
	paths, err := dotdir.NewManager().ListRecordings(c.configDir)
	if err != nil {
		return err
	}

	if len(paths) == 0 {
		fmt.Fprintf(c.out, "  %s\n", cliui.DimStyle.Render("No recordings found. Record one with vera ask --record."))
		return nil
	}

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return fmt.Errorf("reading recording: %w", err)
		}
		fmt.Fprintf(c.out, "  %s  %s\n",
			cliui.KeyStyle.Render(filepath.Base(p)),
			cliui.DimStyle.Render(fmt.Sprintf("%d bytes", info.Size())),
		)
	}
	return nil
}

func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
