package veracmder_test

import (
	"bytes"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	veracmder "github.com/papercomputeco/vera/cmd/vera"
)

var _ = Describe("NewVeraCmd", func() {
	It("wires every subcommand", func() {
		cmd := veracmder.NewVeraCmd()
		names := make([]string, 0, len(cmd.Commands()))
		for _, sub := range cmd.Commands() {
			names = append(names, sub.Name())
		}
		Expect(names).To(ContainElements("ask", "replay", "serve", "config", "init", "version"))
	})

	It("has global debug and config-dir flags", func() {
		cmd := veracmder.NewVeraCmd()
		Expect(cmd.PersistentFlags().Lookup("debug").Shorthand).To(Equal("d"))
		Expect(cmd.PersistentFlags().Lookup("config-dir")).NotTo(BeNil())
	})

	It("passes --config-dir through to subcommands", func() {
		dir := GinkgoT().TempDir()

		var out bytes.Buffer
		cmd := veracmder.NewVeraCmd()
		cmd.SetOut(&out)
		cmd.SetArgs([]string{"--config-dir", dir, "config", "set", "render.format", "html"})
		Expect(cmd.Execute()).To(Succeed())

		data, err := os.ReadFile(filepath.Join(dir, "config.toml"))
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(ContainSubstring(`format = "html"`))
	})

	It("replays a recording listed under --config-dir", func() {
		dir := GinkgoT().TempDir()

		var out bytes.Buffer
		cmd := veracmder.NewVeraCmd()
		cmd.SetOut(&out)
		cmd.SetArgs([]string{"--config-dir", dir, "replay", "--list"})
		Expect(cmd.Execute()).To(Succeed())
		Expect(out.String()).To(ContainSubstring("No recordings found"))
	})
})
