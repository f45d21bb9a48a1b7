package signal

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Trace", func() {
	var (
		s   *Signal
		buf *strings.Builder
	)

	BeforeEach(func() {
		s = New("Input", 2, 2)
		buf = new(strings.Builder)
	})

	It("should list the unread payloads visible at the cycle", func() {
		t := newToken(7)
		t.AddCookie(2)
		t.SetColor(3)
		t.SetInfo("fetch")

		s.Write(0, t)
		s.Write(0, "raw")

		Expect(s.TraceSignal(buf, 2)).To(Succeed())
		Expect(buf.String()).To(Equal("\t7:2;3;\"fetch\"\n\t0;0;\"raw\"\n"))
	})

	It("should skip payloads that were already read", func() {
		s.Write(0, "A")
		s.Write(0, "B")
		s.Read(2)

		Expect(s.TraceSignal(buf, 2)).To(Succeed())
		Expect(buf.String()).To(Equal("\t0;0;\"B\"\n"))
	})

	It("should write nothing for cycles without payloads", func() {
		s.Write(0, "A")

		Expect(s.TraceSignal(buf, 1)).To(Succeed())
		Expect(s.TraceSignal(buf, 3)).To(Succeed())
		Expect(buf.String()).To(BeEmpty())
	})

	It("should dump an undefined signal", func() {
		u := New("Output", 4, 0)

		u.Dump(buf)

		Expect(buf.String()).To(ContainSubstring("Signal undefined"))
		Expect(buf.String()).To(ContainSubstring("Bandwidth: 4"))
		Expect(buf.String()).To(ContainSubstring("Max. Latency: 0"))
	})

	It("should dump the storage content", func() {
		s.Write(0, "A")

		s.Dump(buf)

		out := buf.String()
		Expect(out).To(ContainSubstring("Signal Input"))
		Expect(out).To(ContainSubstring("Capacity: 4"))
		Expect(out).To(ContainSubstring("slot 2 (cycle 2): 1 pending"))
		Expect(out).To(ContainSubstring("0;0;\"A\""))
		Expect(out).To(ContainSubstring("Pending reads: 1"))
	})
})
