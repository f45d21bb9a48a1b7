package signal

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Ring", func() {
	DescribeTable("capacity is the smallest power of two above the latency",
		func(latency uint32, capacity int) {
			Expect(capacityFor(latency)).To(Equal(capacity))
		},
		Entry("latency 1", uint32(1), 2),
		Entry("latency 2", uint32(2), 4),
		Entry("latency 3", uint32(3), 4),
		Entry("latency 4", uint32(4), 8),
		Entry("latency 7", uint32(7), 8),
		Entry("latency 8", uint32(8), 16),
		Entry("latency 511", uint32(511), 512),
	)

	It("should address slots by masking the cycle", func() {
		r := newRing(4, 2)

		Expect(r.capacity()).To(Equal(4))
		Expect(r.at(1)).To(BeIdenticalTo(r.at(5)))
		Expect(r.at(3)).To(BeIdenticalTo(r.at(1023)))
		Expect(r.at(0)).NotTo(BeIdenticalTo(r.at(1)))
	})

	It("should reject capacities that are not powers of two", func() {
		Expect(func() { newRing(3, 1) }).To(Panic())
		Expect(func() { newRing(0, 1) }).To(Panic())
	})

	It("should pop in FIFO order and reset when drained", func() {
		r := newRing(2, 2)
		sl := r.at(1)
		sl.cycle = 1
		sl.push("A")
		sl.push("B")

		Expect(sl.pending()).To(Equal(2))
		Expect(sl.pop()).To(Equal("A"))
		Expect(sl.unread()).To(Equal([]Payload{"B"}))
		Expect(sl.pop()).To(Equal("B"))
		Expect(sl.pending()).To(Equal(0))
		Expect(sl.items).To(BeEmpty())
		Expect(sl.head).To(Equal(0))
	})
})
