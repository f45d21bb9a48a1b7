package monitoring

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/attila/binder"
	"github.com/sarchlab/attila/signal"
	"github.com/sarchlab/attila/sim"
	"github.com/sarchlab/attila/sim/queueing"
)

type sampleBox struct {
	name   string
	out    *signal.Signal
	queue  queueing.Buffer
	unused queueing.Buffer
	count  int
}

func (b *sampleBox) Name() string {
	return b.name
}

func (b *sampleBox) Tick(cycle uint64) bool {
	b.count++
	return b.out.Write(cycle, b.count)
}

var _ = Describe("Monitor", func() {
	var (
		m      *Monitor
		bnd    *binder.Binder
		engine *sim.Engine
		box    *sampleBox
	)

	get := func(url string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, url, nil)
		m.router().ServeHTTP(rec, req)

		return rec
	}

	BeforeEach(func() {
		bnd = binder.New()
		engine = sim.NewEngine(bnd)

		box = &sampleBox{
			name:  "Box",
			out:   bnd.RegisterSignal("Box.Out", binder.ModeWrite, 1, 2),
			queue: queueing.NewBuffer("Box.Queue", 4),
		}
		bnd.RegisterSignal("Box.Out", binder.ModeRead, 0, 0)
		bnd.RegisterSignal("Floating", binder.ModeRead, 0, 0)
		engine.RegisterBox(box)

		m = NewMonitor()
		m.RegisterEngine(engine)
	})

	It("should register the buffers of the boxes", func() {
		Expect(m.buffers).To(HaveLen(1))
		Expect(m.buffers[0].Name()).To(Equal("Box.Queue"))
	})

	It("should report the current cycle", func() {
		Expect(engine.Step()).To(Succeed())

		rec := get("/api/now")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(Equal(`{"now":1,"paused":false}`))
	})

	It("should pause and continue the engine", func() {
		get("/api/pause")
		Expect(engine.IsPaused()).To(BeTrue())

		get("/api/continue")
		Expect(engine.IsPaused()).To(BeFalse())
	})

	It("should list the boxes", func() {
		rec := get("/api/list_boxes")

		Expect(rec.Body.String()).To(Equal(`["Box"]`))
	})

	It("should return 404 for unknown boxes", func() {
		rec := get("/api/box/Nothing")

		Expect(rec.Code).To(Equal(http.StatusNotFound))
	})

	It("should list the signals", func() {
		Expect(engine.Step()).To(Succeed())

		rec := get("/api/signals")

		var rsp []signalRsp
		Expect(json.Unmarshal(rec.Body.Bytes(), &rsp)).To(Succeed())
		Expect(rsp).To(HaveLen(2))
		Expect(rsp[0]).To(Equal(signalRsp{
			ID:        0,
			Name:      "Box.Out",
			State:     "RW binding",
			Bandwidth: 1,
			Latency:   2,
			Pending:   1,
			Writes:    1,
		}))
		Expect(rsp[1].Name).To(Equal("Floating"))
		Expect(rsp[1].State).To(Equal("R binding"))
	})

	It("should serialize a signal", func() {
		rec := get("/api/signal/Box.Out")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.Len()).To(BeNumerically(">", 0))
	})

	It("should return 404 for unknown signals", func() {
		rec := get("/api/signal/Nothing")

		Expect(rec.Code).To(Equal(http.StatusNotFound))
	})

	It("should list the unbound signals", func() {
		rec := get("/api/unbound")

		Expect(rec.Body.String()).To(Equal(`["Floating"]`))
	})

	Context("with several buffers", func() {
		BeforeEach(func() {
			small := queueing.NewBuffer("Small", 2)
			small.Push(1)
			small.Push(2)

			large := queueing.NewBuffer("Large", 10)
			for i := 0; i < 3; i++ {
				large.Push(i)
			}

			m.RegisterBuffer(small)
			m.RegisterBuffer(large)
		})

		It("should sort the buffers by percent", func() {
			buffers := m.sortAndSelectBuffers("percent", 0, 0)

			Expect(buffers).To(HaveLen(3))
			Expect(buffers[0].Name()).To(Equal("Small"))
			Expect(buffers[1].Name()).To(Equal("Large"))
			Expect(buffers[2].Name()).To(Equal("Box.Queue"))
		})

		It("should sort the buffers by level", func() {
			buffers := m.sortAndSelectBuffers("level", 1, 0)

			Expect(buffers).To(HaveLen(1))
			Expect(buffers[0].Name()).To(Equal("Large"))
		})

		It("should handle offsets beyond the list", func() {
			Expect(m.sortAndSelectBuffers("level", 2, 10)).To(BeEmpty())
		})

		It("should serve the hang detector", func() {
			rec := get("/api/hangdetector/buffers?sort=level&limit=1")

			Expect(rec.Body.String()).To(Equal(
				`[{"buffer":"Large","level":3,"cap":10}]`))
		})

		It("should reject unknown sort methods", func() {
			rec := get("/api/hangdetector/buffers?sort=name")

			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})
	})

	It("should track cycles with a progress bar", func() {
		bar := m.TrackCycles("Run", 3)

		for i := 0; i < 3; i++ {
			Expect(engine.Step()).To(Succeed())
		}

		Expect(bar.Finished).To(Equal(uint64(3)))

		rec := get("/api/progress")
		Expect(rec.Body.String()).To(ContainSubstring(`"name":"Run"`))

		m.CompleteProgressBar(bar)
		Expect(m.progressBars).To(BeEmpty())
	})

	It("should track payloads from an entry to an exit signal", func() {
		entry := bnd.RegisterSignal("Entry", binder.ModeWrite, 2, 1)
		exit := bnd.RegisterSignal("Exit", binder.ModeWrite, 1, 1)

		bar := m.TrackFlow("Tokens", 2, entry, exit)

		Expect(entry.Write(0, "A")).To(BeTrue())
		Expect(entry.Write(0, "B")).To(BeTrue())
		Expect(bar.InProgress).To(Equal(uint64(2)))

		Expect(exit.Write(0, "A")).To(BeTrue())
		_, ok := exit.Read(1)
		Expect(ok).To(BeTrue())

		Expect(bar.InProgress).To(Equal(uint64(1)))
		Expect(bar.Finished).To(Equal(uint64(1)))
	})

	It("should track a flow through a single signal", func() {
		through := bnd.RegisterSignal("Through", binder.ModeWrite, 1, 1)

		bar := m.TrackFlow("Tokens", 1, through, through)

		Expect(through.Write(0, "A")).To(BeTrue())
		_, ok := through.Read(1)
		Expect(ok).To(BeTrue())

		Expect(bar.InProgress).To(BeZero())
		Expect(bar.Finished).To(Equal(uint64(1)))
	})

	It("should not go below zero payloads in progress", func() {
		bar := m.CreateProgressBar("Preloaded", 2)

		bar.MoveInProgressToFinished(2)

		Expect(bar.InProgress).To(BeZero())
		Expect(bar.Finished).To(Equal(uint64(2)))
	})
})
