package tracing

import (
	"bufio"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const (
	traceVersionLine = "Signal Trace File v. 1.0"
	traceTitleLine   = "Signal Name\t\t\tSignal ID.\tBandwidth\tLatency"
	traceEndLine     = "End of Trace"
)

// TracedSignal describes a signal listed in the header of a signal trace.
type TracedSignal struct {
	ID        int
	Name      string
	Bandwidth uint32
	Latency   uint32
}

// TracedPayload is a payload line of a signal trace.
type TracedPayload struct {
	Cookies []uint32
	Color   uint32
	Info    string
}

// SignalTrace is the content of a signal trace file.
type SignalTrace struct {
	Signals []TracedSignal

	// Truncated is set if the trace has no footer. The last cycle of a
	// truncated trace may be incomplete and is dropped.
	Truncated bool

	cycles   []uint64
	payloads map[uint64]map[int][]TracedPayload
}

// IsSignalTrace returns true if r starts with the version line of a signal
// trace.
func IsSignalTrace(r io.Reader) bool {
	scanner := bufio.NewScanner(r)
	if !scanner.Scan() {
		return false
	}

	return scanner.Text() == traceVersionLine
}

type traceParser struct {
	trace   *SignalTrace
	lineNum int

	inCycles   bool
	ended      bool
	hasCycle   bool
	cycle      uint64
	hasSignal  bool
	signalID   int
	signalByID map[int]bool
}

// ReadSignalTrace parses a signal trace.
func ReadSignalTrace(r io.Reader) (*SignalTrace, error) {
	p := &traceParser{
		trace: &SignalTrace{
			payloads: make(map[uint64]map[int][]TracedPayload),
		},
		signalByID: make(map[int]bool),
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, errors.Wrap(err, "read signal trace")
		}

		return nil, errors.New("empty signal trace")
	}

	p.lineNum = 1
	if scanner.Text() != traceVersionLine {
		return nil, errors.Errorf("not a signal trace, first line is %q",
			scanner.Text())
	}

	for scanner.Scan() {
		p.lineNum++

		err := p.parseLine(scanner.Text())
		if err != nil {
			return nil, err
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "read signal trace")
	}

	if !p.ended {
		p.dropLastCycle()
	}

	return p.trace, nil
}

func (p *traceParser) parseLine(line string) error {
	switch {
	case p.ended:
		if strings.TrimSpace(line) != "" {
			return p.errorf("content after the end of the trace")
		}

		return nil
	case line == "":
		return nil
	case line == traceEndLine:
		p.ended = true
		return nil
	case strings.HasPrefix(line, "\t") && p.inCycles:
		return p.parsePayload(line[1:])
	case strings.HasPrefix(line, "C "):
		return p.parseCycle(line)
	case strings.HasPrefix(line, "S ") && p.inCycles:
		return p.parseSignalMarker(line)
	case line == traceTitleLine && !p.inCycles:
		return nil
	case !p.inCycles:
		return p.parseSignal(line)
	}

	return p.errorf("unexpected line %q", line)
}

func (p *traceParser) parseSignal(line string) error {
	fields := strings.FieldsFunc(line, func(r rune) bool { return r == '\t' })
	if len(fields) != 4 {
		return p.errorf("malformed signal line %q", line)
	}

	id, err := strconv.Atoi(fields[1])
	if err != nil {
		return p.wrap(err, "signal id")
	}

	bandwidth, err := strconv.ParseUint(fields[2], 10, 32)
	if err != nil {
		return p.wrap(err, "signal bandwidth")
	}

	latency, err := strconv.ParseUint(fields[3], 10, 32)
	if err != nil {
		return p.wrap(err, "signal latency")
	}

	if p.signalByID[id] {
		return p.errorf("signal id %d listed twice", id)
	}

	p.signalByID[id] = true
	p.trace.Signals = append(p.trace.Signals, TracedSignal{
		ID:        id,
		Name:      fields[0],
		Bandwidth: uint32(bandwidth),
		Latency:   uint32(latency),
	})

	return nil
}

func (p *traceParser) parseCycle(line string) error {
	cycle, err := strconv.ParseUint(strings.TrimPrefix(line, "C "), 10, 64)
	if err != nil {
		return p.wrap(err, "cycle")
	}

	if p.hasCycle && cycle <= p.cycle {
		return p.errorf("cycle %d after cycle %d", cycle, p.cycle)
	}

	p.inCycles = true
	p.hasCycle = true
	p.hasSignal = false
	p.cycle = cycle
	p.trace.cycles = append(p.trace.cycles, cycle)

	return nil
}

func (p *traceParser) parseSignalMarker(line string) error {
	idStr := strings.TrimSuffix(strings.TrimPrefix(line, "S "), ":")

	id, err := strconv.Atoi(idStr)
	if err != nil {
		return p.wrap(err, "signal marker")
	}

	if !p.signalByID[id] {
		return p.errorf("unknown signal id %d", id)
	}

	p.hasSignal = true
	p.signalID = id

	return nil
}

func (p *traceParser) parsePayload(line string) error {
	if !p.hasSignal {
		return p.errorf("payload outside of a signal")
	}

	payload, err := ParsePayloadLine(line)
	if err != nil {
		return p.wrap(err, "payload")
	}

	bySignal, found := p.trace.payloads[p.cycle]
	if !found {
		bySignal = make(map[int][]TracedPayload)
		p.trace.payloads[p.cycle] = bySignal
	}

	bySignal[p.signalID] = append(bySignal[p.signalID], payload)

	return nil
}

func (p *traceParser) dropLastCycle() {
	p.trace.Truncated = true

	n := len(p.trace.cycles)
	if n == 0 {
		return
	}

	last := p.trace.cycles[n-1]
	p.trace.cycles = p.trace.cycles[:n-1]
	delete(p.trace.payloads, last)
}

func (p *traceParser) errorf(format string, args ...any) error {
	return errors.Errorf("signal trace line %d: "+format,
		append([]any{p.lineNum}, args...)...)
}

func (p *traceParser) wrap(err error, what string) error {
	return errors.Wrapf(err, "signal trace line %d: %s", p.lineNum, what)
}

// ParsePayloadLine parses a payload as written in a signal trace, without
// the leading tab.
func ParsePayloadLine(line string) (TracedPayload, error) {
	payload := TracedPayload{}

	cookieStr, rest, found := strings.Cut(line, ";")
	if !found {
		return payload, errors.Errorf("missing color in %q", line)
	}

	for _, c := range strings.Split(cookieStr, ":") {
		cookie, err := strconv.ParseUint(c, 10, 32)
		if err != nil {
			return payload, errors.Wrapf(err, "cookie in %q", line)
		}

		payload.Cookies = append(payload.Cookies, uint32(cookie))
	}

	colorStr, info, hasInfo := strings.Cut(rest, ";")

	color, err := strconv.ParseUint(colorStr, 10, 32)
	if err != nil {
		return payload, errors.Wrapf(err, "color in %q", line)
	}

	payload.Color = uint32(color)

	if hasInfo {
		if len(info) < 2 || info[0] != '"' || info[len(info)-1] != '"' {
			return payload, errors.Errorf("info is not quoted in %q", line)
		}

		payload.Info = info[1 : len(info)-1]
	}

	return payload, nil
}

// Cycles returns the traced cycles in increasing order.
func (t *SignalTrace) Cycles() []uint64 {
	return append([]uint64(nil), t.cycles...)
}

// CycleRange returns the first and the last traced cycle. It returns false
// if the trace has no cycle.
func (t *SignalTrace) CycleRange() (first, last uint64, ok bool) {
	if len(t.cycles) == 0 {
		return 0, 0, false
	}

	return t.cycles[0], t.cycles[len(t.cycles)-1], true
}

// SignalByName returns the signal with the given name.
func (t *SignalTrace) SignalByName(name string) (TracedSignal, bool) {
	for _, s := range t.Signals {
		if s.Name == name {
			return s, true
		}
	}

	return TracedSignal{}, false
}

// PayloadsAt returns the payloads that the signal holds at the cycle.
func (t *SignalTrace) PayloadsAt(signalID int, cycle uint64) []TracedPayload {
	return t.payloads[cycle][signalID]
}

// PayloadCount returns the number of payloads traced for the signal over all
// the cycles.
func (t *SignalTrace) PayloadCount(signalID int) int {
	n := 0
	for _, bySignal := range t.payloads {
		n += len(bySignal[signalID])
	}

	return n
}

// BusiestCycles returns up to n cycles with the most payloads, busiest
// first. A negative n returns no cycle. Ties are broken by the earlier cycle.
func (t *SignalTrace) BusiestCycles(n int) []uint64 {
	type cycleLoad struct {
		cycle uint64
		load  int
	}

	loads := make([]cycleLoad, 0, len(t.payloads))
	for cycle, bySignal := range t.payloads {
		load := 0
		for _, payloads := range bySignal {
			load += len(payloads)
		}

		loads = append(loads, cycleLoad{cycle: cycle, load: load})
	}

	sort.Slice(loads, func(i, j int) bool {
		if loads[i].load != loads[j].load {
			return loads[i].load > loads[j].load
		}

		return loads[i].cycle < loads[j].cycle
	})

	n = max(0, min(n, len(loads)))

	cycles := make([]uint64, 0, n)
	for _, l := range loads[:n] {
		cycles = append(cycles, l.cycle)
	}

	return cycles
}
