package queueing

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/attila/sim/hooking"
)

var _ = Describe("BufferImpl", func() {
	var (
		mockCtrl *gomock.Controller
		buf      Buffer
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		buf = MakeBufferBuilder().
			WithCapacity(2).
			Build("Buf")
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should allow push and pop", func() {
		Expect(buf.Name()).To(Equal("Buf"))
		Expect(buf.Capacity()).To(Equal(2))
		Expect(buf.CanPush()).To(BeTrue())

		buf.Push(1)
		Expect(buf.CanPush()).To(BeTrue())
		Expect(buf.Size()).To(Equal(1))

		buf.Push(2)
		Expect(buf.CanPush()).To(BeFalse())
		Expect(buf.Size()).To(Equal(2))
		Expect(func() {
			buf.Push(3)
		}).To(Panic())

		Expect(buf.Peek()).To(Equal(1))
		Expect(buf.Pop()).To(Equal(1))
		Expect(buf.Size()).To(Equal(1))
		Expect(buf.Peek()).To(Equal(2))
		Expect(buf.Pop()).To(Equal(2))
		Expect(buf.Size()).To(Equal(0))
		Expect(buf.Peek()).To(BeNil())
		Expect(buf.Pop()).To(BeNil())
	})

	It("should clear", func() {
		buf.Push(1)
		buf.Push(2)

		buf.Clear()

		Expect(buf.Size()).To(Equal(0))
		Expect(buf.CanPush()).To(BeTrue())
	})

	It("should invoke hooks on push and pop", func() {
		hook := NewMockHook(mockCtrl)
		buf.AcceptHook(hook)

		gomock.InOrder(
			hook.EXPECT().Func(hooking.HookCtx{
				Domain: buf,
				Pos:    HookPosBufPush,
				Item:   7,
			}),
			hook.EXPECT().Func(hooking.HookCtx{
				Domain: buf,
				Pos:    HookPosBufPop,
				Item:   7,
			}),
		)

		buf.Push(7)
		buf.Pop()
	})

	It("should reject non-positive capacity", func() {
		Expect(func() { NewBuffer("Buf", 0) }).To(Panic())
	})
})
