package initcmder_test

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	initcmder "github.com/papercomputeco/vera/cmd/vera/init"
	"github.com/papercomputeco/vera/pkg/config"
)

var _ = Describe("NewInitCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := initcmder.NewInitCmd()
		Expect(cmd.Use).To(Equal("init"))
	})

	It("rejects any arguments", func() {
		cmd := initcmder.NewInitCmd()
		Expect(cmd.Args(cmd, []string{})).To(Succeed())
		Expect(cmd.Args(cmd, []string{"extra"})).NotTo(Succeed())
	})

	It("has a --preset flag", func() {
		cmd := initcmder.NewInitCmd()
		f := cmd.Flags().Lookup("preset")
		Expect(f).NotTo(BeNil())
		Expect(f.DefValue).To(Equal(""))
	})
})

var _ = Describe("Init command execution", func() {
	var (
		tmpDir string
		out    *bytes.Buffer
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		origDir, err := os.Getwd()
		Expect(err).NotTo(HaveOccurred())
		Expect(os.Chdir(tmpDir)).To(Succeed())
		DeferCleanup(func() { _ = os.Chdir(origDir) })
		out = &bytes.Buffer{}
	})

	execute := func(args ...string) error {
		cmd := initcmder.NewInitCmd()
		cmd.SetOut(out)
		cmd.SetArgs(args)
		return cmd.Execute()
	}

	It("creates a .vera directory with a default config.toml", func() {
		Expect(execute()).To(Succeed())

		info, err := os.Stat(filepath.Join(tmpDir, ".vera"))
		Expect(err).NotTo(HaveOccurred())
		Expect(info.IsDir()).To(BeTrue())

		cfg := loadConfig(tmpDir)
		Expect(cfg.Version).To(Equal(config.CurrentV))
		Expect(cfg.Client.Endpoint).To(Equal(config.NewDefaultConfig().Client.Endpoint))
		Expect(cfg.Render.Format).To(Equal("terminal"))
		Expect(out.String()).To(ContainSubstring("Initialized .vera directory"))
	})

	It("does not overwrite an existing config when already initialized", func() {
		dir := filepath.Join(tmpDir, ".vera")
		Expect(os.MkdirAll(dir, 0o755)).To(Succeed())
		existing := "[client]\nendpoint = \"http://example.test/stream\"\n"
		Expect(os.WriteFile(filepath.Join(dir, "config.toml"), []byte(existing), 0o600)).To(Succeed())

		Expect(execute()).To(Succeed())

		data, err := os.ReadFile(filepath.Join(dir, "config.toml"))
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(Equal(existing))
		Expect(out.String()).To(ContainSubstring("Already initialized"))
	})

	Describe("--preset", func() {
		It("writes the local preset", func() {
			Expect(execute("--preset", "local")).To(Succeed())

			cfg := loadConfig(tmpDir)
			Expect(cfg.Client.Endpoint).To(Equal("http://localhost:8090/api/stream"))
			Expect(cfg.Client.Timeout).To(Equal("5s"))
		})

		It("overwrites the config on re-init", func() {
			Expect(execute("--preset", "local")).To(Succeed())
			Expect(execute("--preset", "hosted")).To(Succeed())

			cfg := loadConfig(tmpDir)
			Expect(cfg.Client.Endpoint).To(Equal(config.NewDefaultConfig().Client.Endpoint))
		})

		It("rejects unknown preset names", func() {
			err := execute("--preset", "staging")
			Expect(err).To(MatchError(ContainSubstring("unknown preset")))
		})

		It("fetches a remote config.toml", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				fmt.Fprint(w, "[render]\nformat = \"html\"\n")
			}))
			DeferCleanup(server.Close)

			Expect(execute("--preset", server.URL)).To(Succeed())
			Expect(loadConfig(tmpDir).Render.Format).To(Equal("html"))
		})

		It("fails on a non-200 response", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			}))
			DeferCleanup(server.Close)

			Expect(execute("--preset", server.URL)).To(MatchError(ContainSubstring("HTTP 404")))
		})

		It("fails on invalid TOML", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				fmt.Fprint(w, "this is not valid toml [[[")
			}))
			DeferCleanup(server.Close)

			Expect(execute("--preset", server.URL)).To(MatchError(ContainSubstring("parsing")))
		})

		It("fails on an unreachable URL", func() {
			Expect(execute("--preset", "http://127.0.0.1:1")).To(MatchError(ContainSubstring("fetching remote config")))
		})
	})
})

// loadConfig reads and parses the config.toml from the .vera directory
// within baseDir.
func loadConfig(baseDir string) *config.Config {
	data, err := os.ReadFile(filepath.Join(baseDir, ".vera", "config.toml"))
	ExpectWithOffset(1, err).NotTo(HaveOccurred())

	cfg := &config.Config{}
	ExpectWithOffset(1, toml.Unmarshal(data, cfg)).To(Succeed())
	return cfg
}
