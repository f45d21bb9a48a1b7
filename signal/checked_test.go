//go:build !attila_nocheck

package signal

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/attila/sim/hooking"
)

var _ = Describe("Signal with checks", func() {
	var (
		mockCtrl *gomock.Controller
		hook     *MockHook
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		hook = NewMockHook(mockCtrl)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	Context("when misused", func() {
		var s *Signal

		BeforeEach(func() {
			s = New("Input", 1, 3)
		})

		It("should panic on latency 0", func() {
			Expect(func() { s.WriteWithLatency(0, "A", 0) }).To(Panic())
		})

		It("should panic on latency above the maximum", func() {
			Expect(func() { s.WriteWithLatency(0, "A", 4) }).To(Panic())
		})

		It("should panic on nil payloads", func() {
			Expect(func() { s.Write(0, nil) }).To(Panic())
		})

		It("should panic when going back in time", func() {
			s.Write(10, "A")

			Expect(func() { s.Read(9) }).To(Panic())
			Expect(func() { s.Write(9, "B") }).To(Panic())
		})

		It("should panic when data is set after the signal was used", func() {
			s.Write(0, "A")

			Expect(func() {
				s.SetData([]Payload{"B"}, 0)
			}).To(Panic())
		})
	})

	It("should detect the data loss as soon as the cycle passes", func() {
		var lossCtx hooking.HookCtx

		s := New("Input", 1, 1)
		s.AcceptHook(hook)
		hook.EXPECT().
			Func(gomock.Any()).
			Do(func(ctx hooking.HookCtx) {
				if ctx.Pos == HookPosDataLoss {
					lossCtx = ctx
				}
			}).
			AnyTimes()

		s.Write(0, "A")
		_, ok := s.Read(2)

		Expect(ok).To(BeFalse())
		Expect(s.Pending()).To(BeZero())
		Expect(s.Stats().LostPayloads).To(Equal(uint64(1)))
		Expect(lossCtx.Pos).To(BeIdenticalTo(HookPosDataLoss))
		Expect(lossCtx.Item).To(Equal([]Payload{"A"}))
		Expect(lossCtx.Detail).To(Equal(Event{
			Signal:    "Input",
			Cycle:     2,
			VisibleAt: 1,
			Count:     1,
		}))
	})
})
