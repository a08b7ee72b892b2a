// Package askcmder provides the ask command, which streams the answer to a
// clinical question either once to stdout or inside an interactive UI.
package askcmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/papercomputeco/vera/pkg/client"
	"github.com/papercomputeco/vera/pkg/config"
	"github.com/papercomputeco/vera/pkg/dotdir"
	"github.com/papercomputeco/vera/pkg/logger"
	"github.com/papercomputeco/vera/pkg/render"
	"github.com/papercomputeco/vera/pkg/session"
	"github.com/papercomputeco/vera/pkg/transport"
)

type askCommander struct {
	endpoint      string
	frameInterval string
	timeout       string
	readSize      uint
	format        string
	style         string
	wordWrap      uint
	events        string
	brokers       string
	topic         string

	record      bool
	logFile     string
	interactive bool
	debug       bool
	configDir   string

	in     io.Reader
	out    io.Writer
	errOut io.Writer
	logger *slog.Logger
}

var askFlags = []string{
	config.FlagEndpoint,
	config.FlagFrameInterval,
	config.FlagTimeout,
	config.FlagReadSize,
	config.FlagFormat,
	config.FlagStyle,
	config.FlagWordWrap,
	config.FlagEvents,
	config.FlagBrokers,
	config.FlagTopic,
}

const askLongDesc string = `Ask a clinical question and stream the answer.

With a question, the answer is streamed once and the final document is
written to stdout in the configured format; progress and a one-line
summary go to stderr. Without a question, vera opens an interactive UI
when attached to a terminal, or reads the question from stdin otherwise.

Guideline and drug references found in the answer are collected into
sections that follow the prose.

Interactive keys:
  enter     Ask the typed question
  esc       Stop the answer in flight
  tab       Switch between the input and the answer
  1-9       Expand or collapse a section
  ctrl+c    Quit

Examples:
  vera ask "first-line therapy for type 2 diabetes"
  vera ask --format markdown "metformin renal dosing" > answer.md
  vera ask --record "A1c target for older adults"
  echo "statin intensity after MI" | vera ask --format json
  vera ask`

const askShortDesc string = "Ask a clinical question"

func NewAskCmd() *cobra.Command {
	cmder := &askCommander{}

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: askShortDesc,
		Long:  askLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, config.Flags, askFlags)

			cmder.endpoint = v.GetString("client.endpoint")
			cmder.frameInterval = v.GetString("client.frame_interval")
			cmder.timeout = v.GetString("client.timeout")
			cmder.readSize = v.GetUint("client.read_size")
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

			cmder.in = cmd.InOrStdin()
			cmder.out = cmd.OutOrStdout()
			cmder.errOut = cmd.ErrOrStderr()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return cmder.run(ctx, strings.TrimSpace(strings.Join(args, " ")))
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagEndpoint, &cmder.endpoint)
	config.AddStringFlag(cmd, config.Flags, config.FlagFrameInterval, &cmder.frameInterval)
	config.AddStringFlag(cmd, config.Flags, config.FlagTimeout, &cmder.timeout)
	config.AddUintFlag(cmd, config.Flags, config.FlagReadSize, &cmder.readSize)
	config.AddStringFlag(cmd, config.Flags, config.FlagFormat, &cmder.format)
	config.AddStringFlag(cmd, config.Flags, config.FlagStyle, &cmder.style)
	config.AddUintFlag(cmd, config.Flags, config.FlagWordWrap, &cmder.wordWrap)
	config.AddStringFlag(cmd, config.Flags, config.FlagEvents, &cmder.events)
	config.AddStringFlag(cmd, config.Flags, config.FlagBrokers, &cmder.brokers)
	config.AddStringFlag(cmd, config.Flags, config.FlagTopic, &cmder.topic)

	cmd.Flags().BoolVar(&cmder.record, "record", false, "Record the raw stream under .vera/recordings for vera replay")
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also write JSON logs to this file")
	cmd.Flags().BoolVarP(&cmder.interactive, "interactive", "i", false, "Open the interactive UI even when a question is given")

	return cmd
}

func (c *askCommander) run(ctx context.Context, query string) error {
	tui := c.interactive || (query == "" && isTerminal(c.in) && isTerminal(c.out))

	if !tui && query == "" {
		data, err := io.ReadAll(c.in)
		if err != nil {
			return fmt.Errorf("reading question from stdin: %w", err)
		}
		query = strings.TrimSpace(string(data))
		if query == "" {
			return errors.New("no question given")
		}
	}

	if tui && c.record {
		return errors.New("--record is not supported in interactive mode")
	}

	closeLog, err := c.setupLogger(tui)
	if err != nil {
		return err
	}
	defer closeLog()

	frameInterval, err := time.ParseDuration(c.frameInterval)
	if err != nil {
		return fmt.Errorf("invalid frame interval %q: %w", c.frameInterval, err)
	}
	timeout, err := time.ParseDuration(c.timeout)
	if err != nil {
		return fmt.Errorf("invalid timeout %q: %w", c.timeout, err)
	}

	// Fail fast on a bad endpoint rather than on the first question.
	if _, err := session.EndpointTarget(c.endpoint)("probe"); err != nil {
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

	var recorder io.Writer
	if c.record {
		f, err := dotdir.NewManager().CreateRecording(c.configDir, uuid.NewString(), time.Now())
		if err != nil {
			return err
		}
		defer f.Close()
		recorder = f
		c.logger.Info("recording stream", "path", f.Name())
	}

	cl := client.New(client.Config{
		Transport: transport.NewHTTP(transport.HTTPConfig{
			HeaderTimeout: timeout,
			ReadSize:      int(c.readSize),
			Recorder:      recorder,
			Logger:        c.logger,
		}),
		TargetFunc:    session.EndpointTarget(c.endpoint),
		FrameInterval: frameInterval,
		Publisher:     publisher,
		Endpoint:      c.endpoint,
		Logger:        c.logger,
	})
	defer func() {
		if err := cl.Close(); err != nil {
			c.logger.Warn("closing event publisher", "error", err)
		}
	}()

	if tui {
		return runTUI(ctx, cl, query, render.Options{Style: c.style})
	}

	r, err := render.New(c.format, render.Options{Style: c.style, WordWrap: int(c.wordWrap)})
	if err != nil {
		return err
	}

	_, err = cl.Print(ctx, query, r, c.out, c.errOut, isTerminal(c.errOut))
	return err
}

// setupLogger builds the command logger. Pretty logs go to stderr unless
// the interactive UI owns the screen; --log-file adds a JSON sink.
func (c *askCommander) setupLogger(tui bool) (func(), error) {
	if c.logger != nil {
		return func() {}, nil
	}

	console := logger.Nop()
	if !tui {
		console = logger.New(
			logger.WithDebug(c.debug),
			logger.WithSource(c.debug),
			logger.WithPretty(true),
			logger.WithWriter(c.errOut),
		)
	}

	if c.logFile == "" {
		c.logger = console
		return func() {}, nil
	}

	f, err := os.OpenFile(c.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}

	c.logger = logger.Multi(console, logger.New(
		logger.WithDebug(true),
		logger.WithSource(c.debug),
		logger.WithJSON(true),
		logger.WithWriter(f),
	))
	return func() { _ = f.Close() }, nil
}

// isTerminal reports whether v is a file attached to a terminal.
func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
