package askcmder

import (
	"bytes"
	"context"
	"net"
	"os"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/vera/fixture"
	"github.com/papercomputeco/vera/pkg/dotdir"
	"github.com/papercomputeco/vera/pkg/logger"
)

// startFixture runs a fixture server for the current test and returns its
// stream endpoint.
func startFixture() string {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	Expect(err).NotTo(HaveOccurred())

	srv := fixture.New(fixture.Config{FragmentSize: 6})
	go func() {
		_ = srv.RunWithListener(listener)
	}()
	DeferCleanup(srv.Close)

	return "http://" + listener.Addr().String() + fixture.StreamPath
}

var _ = Describe("NewAskCmd", func() {
	It("registers the client, render and event flags", func() {
		cmd := NewAskCmd()
		Expect(cmd.Use).To(Equal("ask [question]"))

		for _, name := range []string{
			"endpoint", "frame-interval", "timeout", "read-size",
			"format", "style", "word-wrap",
			"events", "brokers", "topic",
			"record", "log-file", "interactive",
		} {
			Expect(cmd.Flags().Lookup(name)).NotTo(BeNil(), name)
		}

		Expect(cmd.Flags().Lookup("endpoint").Shorthand).To(Equal("e"))
		Expect(cmd.Flags().Lookup("format").Shorthand).To(Equal("f"))
		Expect(cmd.Flags().Lookup("interactive").Shorthand).To(Equal("i"))
	})

	It("streams an answer end to end through cobra and viper", func() {
		GinkgoT().Setenv("HOME", GinkgoT().TempDir())
		endpoint := startFixture()

		var out, errOut bytes.Buffer
		cmd := NewAskCmd()
		cmd.Flags().Bool("debug", false, "")
		cmd.SetOut(&out)
		cmd.SetErr(&errOut)
		cmd.SetIn(strings.NewReader(""))
		cmd.SetArgs([]string{"--endpoint", endpoint, "-f", "json", "--frame-interval", "1ms", "metformin", "dosing"})

		Expect(cmd.Execute()).To(Succeed())
		Expect(out.String()).To(ContainSubstring(`"is_streaming": false`))
		Expect(out.String()).To(ContainSubstring("Metformin"))
		Expect(errOut.String()).To(ContainSubstring("done in"))
	})
})

var _ = Describe("askCommander.run", func() {
	var (
		endpoint string
		out      *bytes.Buffer
		errOut   *bytes.Buffer
		cmder    *askCommander
	)

	BeforeEach(func() {
		endpoint = startFixture()
		out = &bytes.Buffer{}
		errOut = &bytes.Buffer{}
		cmder = &askCommander{
			endpoint:      endpoint,
			frameInterval: "1ms",
			timeout:       "5s",
			readSize:      64,
			format:        "markdown",
			style:         "notty",
			wordWrap:      80,
			events:        "nop",
			configDir:     GinkgoT().TempDir(),
			in:            strings.NewReader(""),
			out:           out,
			errOut:        errOut,
			logger:        logger.Nop(),
		}
	})

	It("writes the final answer to stdout and the summary to stderr", func() {
		Expect(cmder.run(context.Background(), "A1c target")).To(Succeed())

		Expect(out.String()).To(ContainSubstring("## Guideline · ADA Standards of Care 2024"))
		Expect(out.String()).To(ContainSubstring("## Drug · Metformin"))
		Expect(out.String()).To(ContainSubstring("_Search: "))
		Expect(errOut.String()).To(ContainSubstring("3 sections"))
	})

	It("reads the question from stdin when none is given", func() {
		cmder.in = strings.NewReader("  statin intensity\n")
		Expect(cmder.run(context.Background(), "")).To(Succeed())
		Expect(out.String()).To(ContainSubstring("Summary"))
	})

	It("fails when no question is given at all", func() {
		Expect(cmder.run(context.Background(), "")).To(MatchError("no question given"))
	})

	It("renders the partial answer and fails on a malformed stream", func() {
		cmder.endpoint = endpoint + "?fail=1"
		err := cmder.run(context.Background(), "A1c target")
		Expect(err).To(MatchError(ContainSubstring("session failed")))
		Expect(out.String()).To(ContainSubstring("**Error:**"))
	})

	It("fails on an HTTP error status", func() {
		cmder.endpoint = endpoint + "?status=503"
		Expect(cmder.run(context.Background(), "A1c target")).To(MatchError(ContainSubstring("HTTP 503")))
	})

	It("records the raw stream for replay", func() {
		cmder.record = true
		Expect(cmder.run(context.Background(), "renal dosing")).To(Succeed())

		path, err := dotdir.NewManager().LatestRecording(cmder.configDir)
		Expect(err).NotTo(HaveOccurred())
		data, err := os.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(Equal(fixture.Script("renal dosing", fixture.ScriptOptions{Shape: fixture.ShapeMixed})))
	})

	It("refuses to record in interactive mode", func() {
		cmder.record = true
		cmder.interactive = true
		Expect(cmder.run(context.Background(), "")).To(MatchError(ContainSubstring("interactive")))
	})

	DescribeTable("rejects invalid settings",
		func(mutate func(*askCommander), message string) {
			mutate(cmder)
			Expect(cmder.run(context.Background(), "dose")).To(MatchError(ContainSubstring(message)))
		},
		Entry("frame interval", func(c *askCommander) { c.frameInterval = "often" }, "invalid frame interval"),
		Entry("timeout", func(c *askCommander) { c.timeout = "never" }, "invalid timeout"),
		Entry("endpoint", func(c *askCommander) { c.endpoint = "/api/stream" }, "not an absolute URL"),
		Entry("format", func(c *askCommander) { c.format = "pdf" }, "pdf"),
		Entry("events provider", func(c *askCommander) { c.events = "nats" }, "unknown events provider"),
	)

	It("also writes JSON logs to --log-file", func() {
		cmder.logger = nil
		cmder.debug = true
		cmder.logFile = GinkgoT().TempDir() + "/vera.log"

		Expect(cmder.run(context.Background(), "A1c target")).To(Succeed())

		data, err := os.ReadFile(cmder.logFile)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(ContainSubstring(`"msg":"session started"`))
		Expect(string(data)).To(ContainSubstring(`"source":`))
		Expect(errOut.String()).To(ContainSubstring("session started"))
	})

	It("leaves caller locations out of the log file without --debug", func() {
		cmder.logger = nil
		cmder.debug = false
		cmder.logFile = GinkgoT().TempDir() + "/vera.log"

		Expect(cmder.run(context.Background(), "A1c target")).To(Succeed())

		data, err := os.ReadFile(cmder.logFile)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(ContainSubstring(`"msg":"session started"`))
		Expect(string(data)).NotTo(ContainSubstring(`"source":`))
	})
})
