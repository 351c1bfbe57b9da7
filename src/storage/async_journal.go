package storage

import (
	"context"
	"sync"
	"time"

	"github.com/sourcegraph/conc"

	"flashbook-monitor/src/helpers"
	"flashbook-monitor/src/interfaces"
	"flashbook-monitor/src/logger"
	"flashbook-monitor/src/metrics"
	"flashbook-monitor/src/models"
)

const (
	defaultFlushInterval = 2 * time.Second
	defaultBatchSize     = 200
	cleanupInterval      = 6 * time.Hour
)

type journalRecord struct {
	sessionID string
	trade     *models.MTradeEvent
	stats     *models.MExchangeStats
	command   string
	body      []byte
	at        time.Time
}

// -----------------------------------------------------------------------------
// AsyncJournal queues rows and writes them in batches from one goroutine, so
// callers on the event loop never wait on disk. Rows are dropped, and counted,
// when the queue is full.
// -----------------------------------------------------------------------------

type AsyncJournal struct {
	Journal      interfaces.IJournal
	ErrorHandler *helpers.ErrorHandler
	Logger       *logger.Logger

	queue         chan journalRecord
	flushInterval time.Duration
	batchSize     int

	mu        sync.RWMutex
	sessionID string

	stop chan struct{}
	once sync.Once
	wg   conc.WaitGroup
}

// -----------------------------------------------------------------------------

func NewAsyncJournal(journal interfaces.IJournal, cfg *models.MConfig, log *logger.Logger) *AsyncJournal {
	if log == nil {
		log = logger.NewLogger(nil, "Journal")
	}
	interval := defaultFlushInterval
	if cfg.Storage.FlushIntervalSeconds > 0 {
		interval = time.Duration(cfg.Storage.FlushIntervalSeconds) * time.Second
	}
	batch := defaultBatchSize
	if cfg.Storage.BatchSize > 0 {
		batch = cfg.Storage.BatchSize
	}

	return &AsyncJournal{
		Journal:       journal,
		ErrorHandler:  helpers.NewErrorHandler(log),
		Logger:        log,
		queue:         make(chan journalRecord, batch*8),
		flushInterval: interval,
		batchSize:     batch,
		stop:          make(chan struct{}),
	}
}

// -----------------------------------------------------------------------------
// IJournalWriter
// -----------------------------------------------------------------------------

func (a *AsyncJournal) SetSession(sessionID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sessionID = sessionID
}

func (a *AsyncJournal) RecordTrade(trade models.MTradeEvent) {
	a.enqueue(journalRecord{trade: &trade})
}

func (a *AsyncJournal) RecordStats(stats models.MExchangeStats) {
	a.enqueue(journalRecord{stats: &stats})
}

func (a *AsyncJournal) RecordCommand(name string, body []byte) {
	a.enqueue(journalRecord{command: name, body: append([]byte(nil), body...), at: time.Now()})
}

// -----------------------------------------------------------------------------

func (a *AsyncJournal) enqueue(rec journalRecord) {
	a.mu.RLock()
	rec.sessionID = a.sessionID
	a.mu.RUnlock()

	select {
	case a.queue <- rec:
	default:
		metrics.JournalDroppedTotal.Inc()
	}
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Start runs the writer until ctx is done or Stop is called.
func (a *AsyncJournal) Start(ctx context.Context) {
	a.wg.Go(func() { a.run(ctx) })
}

// Stop flushes what is queued and waits for the writer to exit.
func (a *AsyncJournal) Stop() {
	a.once.Do(func() { close(a.stop) })
	a.wg.Wait()
}

// -----------------------------------------------------------------------------

func (a *AsyncJournal) run(ctx context.Context) {
	flush := time.NewTicker(a.flushInterval)
	defer flush.Stop()
	cleanup := time.NewTicker(cleanupInterval)
	defer cleanup.Stop()

	batch := make([]journalRecord, 0, a.batchSize)
	for {
		select {
		case rec := <-a.queue:
			batch = append(batch, rec)
			if len(batch) >= a.batchSize {
				batch = a.write(batch)
			}

		case <-flush.C:
			batch = a.write(batch)

		case <-cleanup.C:
			a.ErrorHandler.Handle(a.Journal.CleanupOldData(context.Background()), "journal cleanup")

		case <-ctx.Done():
			a.drain(batch)
			return

		case <-a.stop:
			a.drain(batch)
			return
		}
	}
}

// drain writes the pending batch and whatever is left in the queue.
func (a *AsyncJournal) drain(batch []journalRecord) {
	for {
		select {
		case rec := <-a.queue:
			batch = append(batch, rec)
		default:
			a.write(batch)
			return
		}
	}
}

// -----------------------------------------------------------------------------

// write persists a batch and returns it emptied for reuse.
func (a *AsyncJournal) write(batch []journalRecord) []journalRecord {
	if len(batch) == 0 {
		return batch
	}
	ctx := context.Background()

	// trades are grouped per session to use the bulk insert
	trades := make(map[string][]models.MTradeEvent)
	var order []string
	for _, rec := range batch {
		switch {
		case rec.trade != nil:
			if _, ok := trades[rec.sessionID]; !ok {
				order = append(order, rec.sessionID)
			}
			trades[rec.sessionID] = append(trades[rec.sessionID], *rec.trade)
		case rec.stats != nil:
			a.ErrorHandler.Handle(a.Journal.SaveExchangeStats(ctx, rec.sessionID, *rec.stats), "journal stats")
		case rec.command != "":
			a.ErrorHandler.Handle(a.Journal.SaveCommand(ctx, rec.sessionID, rec.command, rec.body, rec.at), "journal command")
		}
	}
	for _, session := range order {
		a.ErrorHandler.Handle(a.Journal.SaveTradesBulk(ctx, session, trades[session]), "journal trades")
	}

	clear(batch)
	return batch[:0]
}
