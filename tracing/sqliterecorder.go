package tracing

import (
	"database/sql"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/structs"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/attila/signal"
	"github.com/sarchlab/attila/sim/hooking"
)

// The kinds of signal events that the SQLiteRecorder stores.
const (
	EventKindWrite    = "write"
	EventKindRead     = "read"
	EventKindDataLoss = "data_loss"
)

// SignalEntry is a row of the signal table.
type SignalEntry struct {
	ID        int
	Name      string
	Bandwidth uint32
	Latency   uint32
}

// SignalEventEntry is a row of the signal_event table.
type SignalEventEntry struct {
	ID        string
	Signal    string
	Kind      string
	Cycle     uint64
	VisibleAt uint64
	Cookies   string
	Info      string
}

// SQLiteRecorder is a hook that stores signal events in a SQLite database.
type SQLiteRecorder struct {
	*sql.DB
	signalStatement *sql.Stmt
	eventStatement  *sql.Stmt

	dbName           string
	signalsToWrite   []SignalEntry
	eventsToWrite    []SignalEventEntry
	batchSize        int
	numEventsWritten int
}

// NewSQLiteRecorder creates a recorder that writes into path.sqlite3. If
// path is empty, a unique name is generated. Buffered events are flushed
// when the program exits through atexit.
func NewSQLiteRecorder(path string) *SQLiteRecorder {
	r := &SQLiteRecorder{
		dbName:    path,
		batchSize: 100000,
	}

	atexit.Register(func() { r.Flush() })

	return r
}

// NewSQLiteRecorderWithDB creates a recorder that writes into an existing
// database.
func NewSQLiteRecorderWithDB(db *sql.DB) *SQLiteRecorder {
	r := &SQLiteRecorder{
		DB:        db,
		batchSize: 100000,
	}

	atexit.Register(func() { r.Flush() })

	return r
}

// WithBatchSize sets the number of events buffered before they are written.
func (r *SQLiteRecorder) WithBatchSize(n int) *SQLiteRecorder {
	if n <= 0 {
		panic("batch size must be positive")
	}

	r.batchSize = n

	return r
}

// FileName returns the name of the database file, or an empty string if the
// recorder writes into a database it did not create.
func (r *SQLiteRecorder) FileName() string {
	if r.dbName == "" {
		return ""
	}

	return r.dbName + ".sqlite3"
}

// Init opens the database and creates the tables.
func (r *SQLiteRecorder) Init() {
	if r.DB == nil {
		r.createDatabase()
	}

	r.createTables()
	r.prepareStatements()
}

func (r *SQLiteRecorder) createDatabase() {
	if r.dbName == "" {
		r.dbName = "attila_signals_" + xid.New().String()
	}

	filename := r.FileName()

	_, err := os.Stat(filename)
	if err == nil {
		panic(fmt.Errorf("file %s already exists", filename))
	}

	fmt.Fprintf(os.Stderr, "Signal events are recorded in %s\n", filename)

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		panic(err)
	}

	r.DB = db
}

func (r *SQLiteRecorder) createTables() {
	r.mustExecute(createTableSQL("signal", SignalEntry{}))
	r.mustExecute(createTableSQL("signal_event", SignalEventEntry{}))

	r.mustExecute(`
		CREATE INDEX signal_event_signal_index
			ON signal_event (Signal);
	`)

	r.mustExecute(`
		CREATE INDEX signal_event_cycle_index
			ON signal_event (Cycle);
	`)
}

func createTableSQL(tableName string, sampleEntry any) string {
	fields := strings.Join(structs.Names(sampleEntry), ", \n\t")

	return `CREATE TABLE ` + tableName +
		` (` + "\n\t" + fields + "\n" + `);`
}

func insertSQL(tableName string, sampleEntry any) string {
	n := len(structs.Names(sampleEntry))
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", n), ", ")

	return `INSERT INTO ` + tableName + ` VALUES (` + placeholders + `)`
}

func (r *SQLiteRecorder) prepareStatements() {
	stmt, err := r.Prepare(insertSQL("signal", SignalEntry{}))
	if err != nil {
		panic(err)
	}

	r.signalStatement = stmt

	stmt, err = r.Prepare(insertSQL("signal_event", SignalEventEntry{}))
	if err != nil {
		panic(err)
	}

	r.eventStatement = stmt
}

// RecordSignals stores the description of the signals. The ID of a signal
// is its position in the list, matching the IDs of the text signal trace.
func (r *SQLiteRecorder) RecordSignals(signals []*signal.Signal) {
	for i, s := range signals {
		r.signalsToWrite = append(r.signalsToWrite, SignalEntry{
			ID:        i,
			Name:      s.Name(),
			Bandwidth: s.Bandwidth(),
			Latency:   s.Latency(),
		})
	}
}

// Func records the signal events that it receives.
func (r *SQLiteRecorder) Func(ctx hooking.HookCtx) {
	evt, ok := ctx.Detail.(signal.Event)
	if !ok {
		return
	}

	switch ctx.Pos {
	case signal.HookPosSignalWrite:
		r.addEvent(EventKindWrite, evt, ctx.Item)
	case signal.HookPosSignalRead:
		r.addEvent(EventKindRead, evt, ctx.Item)
	case signal.HookPosDataLoss:
		lost, _ := ctx.Item.([]signal.Payload)
		for _, p := range lost {
			r.addEvent(EventKindDataLoss, evt, p)
		}
	}
}

func (r *SQLiteRecorder) addEvent(kind string, evt signal.Event, p any) {
	cookies, info := describePayload(p)

	r.eventsToWrite = append(r.eventsToWrite, SignalEventEntry{
		ID:        xid.New().String(),
		Signal:    evt.Signal,
		Kind:      kind,
		Cycle:     evt.Cycle,
		VisibleAt: evt.VisibleAt,
		Cookies:   cookies,
		Info:      info,
	})

	if len(r.eventsToWrite) >= r.batchSize {
		r.Flush()
	}
}

func describePayload(p any) (cookies, info string) {
	t, ok := p.(signal.Traceable)
	if !ok {
		return "", fmt.Sprint(p)
	}

	ids := make([]string, 0, len(t.Cookies()))
	for _, c := range t.Cookies() {
		ids = append(ids, fmt.Sprint(c))
	}

	return strings.Join(ids, ":"), t.Info()
}

// NumEventsWritten returns the number of events stored in the database.
func (r *SQLiteRecorder) NumEventsWritten() int {
	return r.numEventsWritten
}

// Flush writes all the buffered entries to the database.
func (r *SQLiteRecorder) Flush() {
	if r.eventStatement == nil {
		return
	}

	if len(r.signalsToWrite) == 0 && len(r.eventsToWrite) == 0 {
		return
	}

	r.mustExecute("BEGIN TRANSACTION")
	defer r.mustExecute("COMMIT TRANSACTION")

	for _, s := range r.signalsToWrite {
		_, err := r.signalStatement.Exec(structs.Values(s)...)
		if err != nil {
			panic(err)
		}
	}

	for _, e := range r.eventsToWrite {
		_, err := r.eventStatement.Exec(structs.Values(e)...)
		if err != nil {
			panic(err)
		}
	}

	r.numEventsWritten += len(r.eventsToWrite)
	r.signalsToWrite = nil
	r.eventsToWrite = nil
}

func (r *SQLiteRecorder) mustExecute(query string) sql.Result {
	res, err := r.Exec(query)
	if err != nil {
		fmt.Printf("Failed to execute: %s\n", query)
		panic(err)
	}

	return res
}
