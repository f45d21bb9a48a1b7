//go:build attila_nocheck

package signal

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/attila/sim/hooking"
)

var _ = Describe("Signal without checks", func() {
	var (
		mockCtrl  *gomock.Controller
		hook      *MockHook
		positions []*hooking.HookPos
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		hook = NewMockHook(mockCtrl)
		positions = nil
		hook.EXPECT().
			Func(gomock.Any()).
			Do(func(ctx hooking.HookCtx) {
				positions = append(positions, ctx.Pos)
			}).
			AnyTimes()
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should only count a loss when the stale slot is reused", func() {
		s := New("Input", 1, 1)
		s.AcceptHook(hook)

		Expect(s.Write(0, "A")).To(BeTrue())

		_, ok := s.Read(2)
		Expect(ok).To(BeFalse())
		Expect(s.Stats().LostPayloads).To(BeZero())
		Expect(s.Pending()).To(Equal(1))

		Expect(s.Write(2, "B")).To(BeTrue())
		Expect(s.Stats().LostPayloads).To(Equal(uint64(1)))
		Expect(s.Pending()).To(Equal(1))

		p, ok := s.Read(3)
		Expect(ok).To(BeTrue())
		Expect(p).To(Equal("B"))

		Expect(positions).To(Equal([]*hooking.HookPos{
			HookPosSignalWrite,
			HookPosSignalWrite,
			HookPosSignalRead,
		}))
	})

	It("should not panic on misuse", func() {
		s := New("Input", 1, 3)

		Expect(s.Write(10, "A")).To(BeTrue())
		Expect(func() { s.Read(9) }).NotTo(Panic())
		Expect(func() { s.SetData([]Payload{"B"}, 20) }).NotTo(Panic())
	})
})
