package dotdir_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/vera/pkg/dotdir"
)

var _ = Describe("dotdir.Manager recordings", func() {
	var (
		dir string
		m   *dotdir.Manager
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		m = dotdir.NewManager()
	})

	It("reports when nothing was recorded", func() {
		paths, err := m.ListRecordings(dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(paths).To(BeEmpty())

		_, err = m.LatestRecording(dir)
		Expect(err).To(MatchError("no recordings found"))
	})

	It("creates recordings named by start time and session id", func() {
		at := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
		f, err := m.CreateRecording(dir, "abc", at)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(f.Close)

		Expect(filepath.Base(f.Name())).To(Equal("20250304T050607Z-abc.sse"))
		Expect(filepath.Dir(f.Name())).To(Equal(filepath.Join(dir, "recordings")))
	})

	It("refuses to overwrite an existing recording", func() {
		at := time.Now()
		f, err := m.CreateRecording(dir, "same", at)
		Expect(err).NotTo(HaveOccurred())
		Expect(f.Close()).To(Succeed())

		_, err = m.CreateRecording(dir, "same", at)
		Expect(err).To(HaveOccurred())
	})

	It("lists recordings oldest first and ignores other files", func() {
		base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		for i, id := range []string{"b", "a", "c"} {
			f, err := m.CreateRecording(dir, id, base.Add(time.Duration(i)*time.Minute))
			Expect(err).NotTo(HaveOccurred())
			Expect(f.Close()).To(Succeed())
		}
		Expect(os.WriteFile(filepath.Join(dir, "recordings", "notes.txt"), nil, 0o600)).To(Succeed())

		paths, err := m.ListRecordings(dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(paths).To(HaveLen(3))
		Expect(filepath.Base(paths[0])).To(HaveSuffix("-b.sse"))

		latest, err := m.LatestRecording(dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(filepath.Base(latest)).To(HaveSuffix("-c.sse"))
	})
})
