// Package servecmder provides the serve command, which runs the local fixture
// stream server.
package servecmder

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/papercomputeco/vera/fixture"
	"github.com/papercomputeco/vera/pkg/config"
	"github.com/papercomputeco/vera/pkg/logger"
)

type serveCommander struct {
	listen       string
	fragmentSize uint
	delay        string
	debug        bool

	logger *slog.Logger
}

var serveFlags = []string{
	config.FlagFixtureListen,
	config.FlagFragmentSize,
	config.FlagDelay,
}

const serveLongDesc string = `Run the local fixture stream server.

The fixture server answers GET /api/stream?prompt=<question> with a
scripted clinical answer as an event stream. The body is written in small
fragments that split lines, JSON objects, tags and multi-byte characters,
so clients can be exercised against hostile chunking without the hosted
endpoint.

Query parameters:
  shape=stream|legacy|mixed   Wire shape of markdown events (default mixed)
  fail=1                      Emit a malformed line halfway through
  status=<code>               Fail the request with the given HTTP status

Examples:
  vera serve
  vera serve --listen :9000 --fragment-size 3 --delay 50ms
  vera ask --endpoint http://localhost:8090/api/stream "A1c target?"`

const serveShortDesc string = "Run the local fixture stream server"

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, config.Flags, serveFlags)

			cmder.listen = v.GetString("fixture.listen")
			cmder.fragmentSize = v.GetUint("fixture.fragment_size")
			cmder.delay = v.GetString("fixture.delay")
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return cmder.run(ctx)
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagFixtureListen, &cmder.listen)
	config.AddUintFlag(cmd, config.Flags, config.FlagFragmentSize, &cmder.fragmentSize)
	config.AddStringFlag(cmd, config.Flags, config.FlagDelay, &cmder.delay)

	return cmd
}

func (c *serveCommander) run(ctx context.Context) error {
	if c.logger == nil {
		c.logger = logger.New(logger.WithDebug(c.debug), logger.WithSource(c.debug), logger.WithPretty(true))
	}

	delay, err := time.ParseDuration(c.delay)
	if err != nil {
		return fmt.Errorf("invalid delay %q: %w", c.delay, err)
	}

	listener, err := net.Listen("tcp", c.listen)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", c.listen, err)
	}

	srv := fixture.New(fixture.Config{
		ListenAddr:   c.listen,
		FragmentSize: int(c.fragmentSize),
		Delay:        delay,
		Logger:       c.logger,
	})

	c.logger.Info("serving fixture stream",
		"url", fmt.Sprintf("http://%s%s", listener.Addr(), fixture.StreamPath),
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.RunWithListener(listener); err != nil {
			return fmt.Errorf("fixture server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		c.logger.Info("shutting down fixture server")
		return srv.Close()
	})

	return g.Wait()
}
