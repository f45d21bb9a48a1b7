package signal

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Object", func() {
	It("should push and pop cookies", func() {
		o := &Object{}

		o.AddCookie(1)
		o.AddCookie(2)
		Expect(o.Cookies()).To(Equal([]uint32{1, 2}))

		o.SetCookie(5)
		Expect(o.Cookies()).To(Equal([]uint32{1, 5}))

		o.RemoveCookie()
		o.RemoveCookie()
		Expect(o.Cookies()).To(BeEmpty())
		Expect(func() { o.RemoveCookie() }).To(Panic())
	})

	It("should set a cookie on an empty stack", func() {
		o := &Object{}

		o.SetCookie(9)

		Expect(o.Cookies()).To(Equal([]uint32{9}))
	})

	It("should limit the number of cookies", func() {
		o := &Object{}
		for i := 0; i < MaxCookies; i++ {
			o.AddCookie(uint32(i))
		}

		Expect(func() { o.AddCookie(100) }).To(Panic())
	})

	It("should copy the parent cookies", func() {
		parent := &Object{}
		parent.AddCookie(3)
		parent.AddCookie(4)

		child := &Object{}
		child.AddCookie(99)
		child.CopyParentCookies(parent)
		child.AddCookie(1)

		Expect(child.Cookies()).To(Equal([]uint32{3, 4, 1}))
		Expect(parent.Cookies()).To(Equal([]uint32{3, 4}))
	})
})

var _ = Describe("FormatPayload", func() {
	It("should format traceable payloads", func() {
		o := &Object{}
		o.AddCookie(12)
		o.AddCookie(3)
		o.SetColor(5)

		Expect(FormatPayload(o)).To(Equal("12:3;5"))

		o.SetInfo("say \"hi\"\nbye")
		Expect(FormatPayload(o)).To(Equal("12:3;5;\"say 'hi' bye\""))
	})

	It("should format payloads without cookies", func() {
		Expect(FormatPayload(&Object{})).To(Equal("0;0"))
	})

	It("should format plain values", func() {
		Expect(FormatPayload(42)).To(Equal("0;0;\"42\""))
	})
})
