package monitoring

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"reflect"
	"runtime/pprof"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
	"unsafe"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/rs/xid"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/sarchlab/attila/monitoring/web"
	"github.com/sarchlab/attila/sim"
	"github.com/sarchlab/attila/sim/queueing"
)

// Monitor can turn a simulation into a server and allows external monitoring
// controlling of the simulation.
type Monitor struct {
	engine     *sim.Engine
	buffers    []queueing.Buffer
	portNumber int
	url        string

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// RegisterEngine registers the engine that is used in the simulation. The
// buffers of the boxes that the engine already holds are registered too.
func (m *Monitor) RegisterEngine(e *sim.Engine) {
	m.engine = e

	for _, b := range e.Boxes() {
		m.registerBoxBuffers(b)
	}
}

// RegisterBuffer registers a buffer to be watched by the hang detector.
func (m *Monitor) RegisterBuffer(b queueing.Buffer) {
	m.buffers = append(m.buffers, b)
}

func (m *Monitor) registerBoxBuffers(box sim.Box) {
	v := reflect.ValueOf(box)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		return
	}

	v = v.Elem()
	bufferType := reflect.TypeOf((*queueing.Buffer)(nil)).Elem()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		if field.Type() != bufferType || field.IsNil() {
			continue
		}

		fieldRef := reflect.NewAt(
			field.Type(),
			unsafe.Pointer(field.UnsafeAddr()),
		).Elem().Interface().(queueing.Buffer)
		m.buffers = append(m.buffers, fieldRef)
	}
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		ID:        xid.New().String(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar to be shown on the webpage.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

func (m *Monitor) router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/pause", m.pauseEngine)
	r.HandleFunc("/api/continue", m.continueEngine)
	r.HandleFunc("/api/now", m.now)
	r.HandleFunc("/api/list_boxes", m.listBoxes)
	r.HandleFunc("/api/box/{name}", m.listBoxDetails)
	r.HandleFunc("/api/field/{json}", m.listFieldValue)
	r.HandleFunc("/api/signals", m.listSignals)
	r.HandleFunc("/api/signal/{name}", m.listSignalDetails)
	r.HandleFunc("/api/unbound", m.listUnboundSignals)
	r.HandleFunc("/api/hangdetector/buffers", m.hangDetectorBuffers)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)

	page, err := web.Handler()
	dieOnErr(err)
	r.PathPrefix("/").Handler(page)

	return r
}

// StartServer starts the monitor as a web server with a custom port if wanted.
func (m *Monitor) StartServer() {
	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)

	m.url = fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)

	fmt.Fprintf(os.Stderr, "Monitoring simulation with %s\n", m.url)

	r := m.router()

	go func() {
		err := http.Serve(listener, r)
		dieOnErr(err)
	}()
}

// URL returns the address of the server, or an empty string if the server
// has not started.
func (m *Monitor) URL() string {
	return m.url
}

// OpenBrowser opens the monitoring page in the default browser.
func (m *Monitor) OpenBrowser() error {
	if m.url == "" {
		return errors.New("monitoring server not started")
	}

	return browser.OpenURL(m.url)
}

func (m *Monitor) pauseEngine(w http.ResponseWriter, _ *http.Request) {
	m.engine.Pause()
	_, err := w.Write(nil)
	dieOnErr(err)
}

func (m *Monitor) continueEngine(w http.ResponseWriter, _ *http.Request) {
	m.engine.Continue()
	_, err := w.Write(nil)
	dieOnErr(err)
}

func (m *Monitor) now(w http.ResponseWriter, _ *http.Request) {
	fmt.Fprintf(w, "{\"now\":%d,\"paused\":%t}",
		m.engine.CurrentCycle(), m.engine.IsPaused())
}

func (m *Monitor) listBoxes(w http.ResponseWriter, _ *http.Request) {
	names := []string{}
	for _, b := range m.engine.Boxes() {
		names = append(names, b.Name())
	}

	writeJSON(w, names)
}

func (m *Monitor) listBoxDetails(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	box := m.findBoxOr404(w, name)
	if box == nil {
		return
	}

	m.engine.Inspect(func() {
		serializer := goseth.NewSerializer()
		serializer.SetRoot(box)
		serializer.SetMaxDepth(1)
		err := serializer.Serialize(w)
		dieOnErr(err)
	})
}

type fieldReq struct {
	BoxName   string `json:"box_name,omitempty"`
	FieldName string `json:"field_name,omitempty"`
}

func (m *Monitor) listFieldValue(w http.ResponseWriter, r *http.Request) {
	jsonString := mux.Vars(r)["json"]
	req := fieldReq{}

	err := json.Unmarshal([]byte(jsonString), &req)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)

		return
	}

	fields := strings.Split(req.FieldName, ".")

	box := m.findBoxOr404(w, req.BoxName)
	if box == nil {
		return
	}

	m.engine.Inspect(func() {
		serializer := goseth.NewSerializer()
		serializer.SetRoot(box)
		serializer.SetMaxDepth(1)

		err = serializer.SetEntryPoint(fields)
		dieOnErr(err)

		err = serializer.Serialize(w)
		dieOnErr(err)
	})
}

type signalRsp struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	State      string `json:"state"`
	Bandwidth  uint32 `json:"bandwidth"`
	Latency    uint32 `json:"latency"`
	Pending    int    `json:"pending"`
	Writes     uint64 `json:"writes"`
	Reads      uint64 `json:"reads"`
	Rejected   uint64 `json:"rejected"`
	Lost       uint64 `json:"lost"`
	LastActive uint64 `json:"last_active"`
}

func (m *Monitor) listSignals(w http.ResponseWriter, _ *http.Request) {
	b := m.engine.Binder()
	rsp := []signalRsp{}

	m.engine.Inspect(func() {
		for i, s := range b.Signals() {
			stats := s.Stats()
			rsp = append(rsp, signalRsp{
				ID:         i,
				Name:       s.Name(),
				State:      b.BindingState(s.Name()).String(),
				Bandwidth:  s.Bandwidth(),
				Latency:    s.Latency(),
				Pending:    s.Pending(),
				Writes:     stats.Writes,
				Reads:      stats.Reads,
				Rejected:   stats.RejectedWrites,
				Lost:       stats.LostPayloads,
				LastActive: stats.LastActivityCycle,
			})
		}
	})

	writeJSON(w, rsp)
}

func (m *Monitor) listSignalDetails(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	s := m.engine.Binder().GetSignal(name)
	if s == nil {
		w.WriteHeader(http.StatusNotFound)
		_, err := w.Write([]byte("Signal not found"))
		dieOnErr(err)

		return
	}

	m.engine.Inspect(func() {
		serializer := goseth.NewSerializer()
		serializer.SetRoot(s)
		serializer.SetMaxDepth(2)
		err := serializer.Serialize(w)
		dieOnErr(err)
	})
}

func (m *Monitor) listUnboundSignals(w http.ResponseWriter, _ *http.Request) {
	names := m.engine.Binder().UnboundSignals()
	if names == nil {
		names = []string{}
	}

	writeJSON(w, names)
}

func (m *Monitor) hangDetectorBuffers(w http.ResponseWriter, r *http.Request) {
	sortMethod, limit, offset, err := m.buffersParseParams(r, w)
	if err != nil {
		w.WriteHeader(400)
		fmt.Fprintf(w, "Error: %s", err)

		return
	}

	m.engine.Inspect(func() {
		sortedBuffers := m.sortAndSelectBuffers(sortMethod, limit, offset)

		fmt.Fprintf(w, "[")

		for i, b := range sortedBuffers {
			if i > 0 {
				fmt.Fprint(w, ",")
			}

			fmt.Fprintf(w, "{\"buffer\":\"%s\",\"level\":%d,\"cap\":%d}",
				b.Name(), b.Size(), b.Capacity())
		}

		fmt.Fprint(w, "]")
	})
}

func (*Monitor) buffersParseParams(
	r *http.Request,
	_ http.ResponseWriter,
) (sort string, limit, offset int, err error) {
	sortMethod := r.URL.Query().Get("sort")
	if sortMethod == "" {
		sortMethod = "percent"
	}

	if sortMethod != "level" && sortMethod != "percent" {
		errStr := fmt.Sprintf(
			"Invalid sort method: %s. Allowed values are `level` and `percent`",
			sortMethod)

		return "", 0, 0, errors.New(errStr)
	}

	limitStr := r.URL.Query().Get("limit")
	if limitStr == "" {
		limitStr = "0"
	}

	limitNumber, err := strconv.Atoi(limitStr)
	if err != nil {
		return sortMethod, 0, 0, err
	}

	offsetStr := r.URL.Query().Get("offset")
	if offsetStr == "" {
		offsetStr = "0"
	}

	offsetNumber, err := strconv.Atoi(offsetStr)
	if err != nil {
		return sortMethod, limitNumber, 0, err
	}

	if limitNumber < 0 || offsetNumber < 0 {
		return sortMethod, 0, 0, errors.New("limit and offset must not be negative")
	}

	return sortMethod, limitNumber, offsetNumber, nil
}

func bufferPercent(b queueing.Buffer) float64 {
	return float64(b.Size()) / float64(b.Capacity())
}

// sortAndSelectBuffers returns limit buffers starting from offset. A limit
// of 0 selects all the remaining buffers.
func (m *Monitor) sortAndSelectBuffers(
	sortMethod string,
	limit, offset int,
) []queueing.Buffer {
	sortedBuffers := make([]queueing.Buffer, len(m.buffers))
	copy(sortedBuffers, m.buffers)

	switch sortMethod {
	case "level":
		sort.SliceStable(sortedBuffers, func(i, j int) bool {
			sizeI := sortedBuffers[i].Size()
			sizeJ := sortedBuffers[j].Size()

			if sizeI != sizeJ {
				return sizeI > sizeJ
			}

			return bufferPercent(sortedBuffers[i]) >
				bufferPercent(sortedBuffers[j])
		})
	case "percent":
		sort.SliceStable(sortedBuffers, func(i, j int) bool {
			percentI := bufferPercent(sortedBuffers[i])
			percentJ := bufferPercent(sortedBuffers[j])

			if percentI != percentJ {
				return percentI > percentJ
			}

			return sortedBuffers[i].Size() > sortedBuffers[j].Size()
		})
	default:
		panic("Invalid sort method " + sortMethod)
	}

	if offset > len(sortedBuffers) {
		offset = len(sortedBuffers)
	}

	end := len(sortedBuffers)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}

	return sortedBuffers[offset:end]
}

func (m *Monitor) findBoxOr404(
	w http.ResponseWriter,
	name string,
) sim.Box {
	var box sim.Box

	for _, b := range m.engine.Boxes() {
		if b.Name() == name {
			box = b
		}
	}

	if box == nil {
		w.WriteHeader(http.StatusNotFound)
		_, err := w.Write([]byte("Box not found"))
		dieOnErr(err)
	}

	return box
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	writeJSON(w, m.progressBars)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()
	process, err := process.NewProcess(int32(pid))
	dieOnErr(err)

	cpuPercent, err := process.CPUPercent()
	dieOnErr(err)

	memorySize, err := process.MemoryInfo()
	dieOnErr(err)

	rsp := resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	}

	writeJSON(w, rsp)
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	dieOnErr(err)

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	writeJSON(w, prof)
}

func writeJSON(w http.ResponseWriter, v any) {
	bytes, err := json.Marshal(v)
	dieOnErr(err)

	w.Header().Set("Content-Type", "application/json")
	_, err = w.Write(bytes)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
