package state

import (
	"sort"
	"sync"

	"flashbook-monitor/src/analysis/core"
	"flashbook-monitor/src/models"
)

// -----------------------------------------------------------------------------
// EntityStateStore is the local replica of agent records and the latest
// exchange-wide values. Writes come from the event loop only; any goroutine may
// read snapshots.
// -----------------------------------------------------------------------------

type EntityStateStore struct {
	agents map[string]*models.MAgentRecord
	bbo    map[string]models.MBBOUpdate
	books  map[string]models.MBookSnapshot
	stats  *models.MExchangeStats
	paused bool
	mu     sync.RWMutex
}

// -----------------------------------------------------------------------------

func NewEntityStateStore() *EntityStateStore {
	return &EntityStateStore{
		agents: make(map[string]*models.MAgentRecord),
		bbo:    make(map[string]models.MBBOUpdate),
		books:  make(map[string]models.MBookSnapshot),
	}
}

// -----------------------------------------------------------------------------
// Agents
// -----------------------------------------------------------------------------

// ApplyDelta merges the fields present in delta into the record for id,
// creating an empty record first when id is new. Returns the merged snapshot.
func (s *EntityStateStore) ApplyDelta(id string, delta models.MAgentDelta) models.MAgentRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.ensure(id)
	delta.ApplyTo(rec)
	return rec.Clone()
}

// -----------------------------------------------------------------------------

// Get returns a copy of the record for id.
func (s *EntityStateStore) Get(id string) (models.MAgentRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.agents[id]
	if !ok {
		return models.MAgentRecord{}, false
	}
	return rec.Clone(), true
}

// -----------------------------------------------------------------------------

// Snapshot returns copies of every record ordered by roster number, then id.
func (s *EntityStateStore) Snapshot() []models.MAgentRecord {
	s.mu.RLock()
	out := make([]models.MAgentRecord, 0, len(s.agents))
	for _, rec := range s.agents {
		out = append(out, rec.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		oi, oj := models.AgentOrdinal(out[i].ID), models.AgentOrdinal(out[j].ID)
		if oi != oj {
			return oi < oj
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// -----------------------------------------------------------------------------

func (s *EntityStateStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.agents)
}

// -----------------------------------------------------------------------------

// Seed creates Agent_1..Agent_n from the roster, walking symbols and templates
// in declaration order. Existing ids are left untouched. Returns the ids created.
func (s *EntityStateStore) Seed(roster []models.MRosterEntry) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var created []string
	n := 0
	for _, entry := range roster {
		for _, tpl := range entry.Agents {
			n++
			id := models.AgentID(n)
			if _, ok := s.agents[id]; ok {
				continue
			}
			s.agents[id] = &models.MAgentRecord{
				ID:         id,
				Symbol:     entry.Symbol,
				Strategy:   tpl.Strategy,
				RiskFactor: tpl.RiskFactor,
				Bankroll:   tpl.Bankroll,
				OpenOrders: []models.MOpenOrder{},
				IsActive:   true,
			}
			created = append(created, id)
		}
	}
	return created
}

// -----------------------------------------------------------------------------
// Optimistic writes. Each returns false when id is unknown.
// -----------------------------------------------------------------------------

func (s *EntityStateStore) SetActive(id string, active bool) bool {
	return s.mutate(id, func(r *models.MAgentRecord) { r.IsActive = active })
}

func (s *EntityStateStore) SetStrategy(id, strategy string) bool {
	return s.mutate(id, func(r *models.MAgentRecord) { r.Strategy = strategy })
}

func (s *EntityStateStore) SetRiskFactor(id string, risk float64) bool {
	return s.mutate(id, func(r *models.MAgentRecord) { r.RiskFactor = risk })
}

func (s *EntityStateStore) SetBankroll(id string, bankroll float64) bool {
	return s.mutate(id, func(r *models.MAgentRecord) { r.Bankroll = bankroll })
}

// -----------------------------------------------------------------------------

func (s *EntityStateStore) mutate(id string, fn func(*models.MAgentRecord)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.agents[id]
	if !ok {
		return false
	}
	fn(rec)
	return true
}

// -----------------------------------------------------------------------------

// ensure must be called with the write lock held.
func (s *EntityStateStore) ensure(id string) *models.MAgentRecord {
	rec, ok := s.agents[id]
	if !ok {
		rec = &models.MAgentRecord{ID: id, OpenOrders: []models.MOpenOrder{}}
		s.agents[id] = rec
	}
	return rec
}

// -----------------------------------------------------------------------------
// Pause flag. Purely local; the server never reports it.
// -----------------------------------------------------------------------------

func (s *EntityStateStore) Paused() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.paused
}

func (s *EntityStateStore) SetPaused(paused bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = paused
}

// -----------------------------------------------------------------------------
// Exchange-wide latest values
// -----------------------------------------------------------------------------

func (s *EntityStateStore) SetStats(stats models.MExchangeStats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats = &stats
}

func (s *EntityStateStore) Stats() (models.MExchangeStats, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.stats == nil {
		return models.MExchangeStats{}, false
	}
	return *s.stats, true
}

// -----------------------------------------------------------------------------

func (s *EntityStateStore) SetBBO(bbo models.MBBOUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bbo[bbo.Symbol] = bbo
}

// SetBook replaces all levels of the symbol's book.
func (s *EntityStateStore) SetBook(book models.MBookSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	book.Bids = append([]models.MBookLevel(nil), book.Bids...)
	book.Asks = append([]models.MBookLevel(nil), book.Asks...)
	s.books[book.Symbol] = book
}

// -----------------------------------------------------------------------------

// Market returns the latest quote and book for symbol. ok is false when
// neither has been seen.
func (s *EntityStateStore) Market(symbol string) (models.MMarketView, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	view := models.MMarketView{Symbol: symbol}
	if bbo, ok := s.bbo[symbol]; ok {
		view.BBO = &bbo
		bid, ask := priceOf(bbo.BidPrice), priceOf(bbo.AskPrice)
		view.Mid = core.CalculateMid(bid, ask)
		view.Spread = core.CalculateSpread(bid, ask)
	}
	if book, ok := s.books[symbol]; ok {
		book.Bids = append([]models.MBookLevel(nil), book.Bids...)
		book.Asks = append([]models.MBookLevel(nil), book.Asks...)
		view.Book = &book
	}
	return view, view.BBO != nil || view.Book != nil
}

func priceOf(n *models.Number) *float64 {
	if n == nil {
		return nil
	}
	f := n.Float()
	return &f
}
