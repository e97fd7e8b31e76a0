// Package board keeps a dashboard's view of open orders consistent while it
// receives both periodic full pulls and pushed single-order events.
package board

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/foodboard/api/internal/enum"
)

var (
	ErrMalformedBatch = errors.New("malformed order batch")
	ErrMalformedEvent = errors.New("malformed order event")
)

// Card is one order on the board. Raw holds the full snapshot as received.
type Card struct {
	ID        int64
	Status    string
	CreatedAt time.Time
	Raw       json.RawMessage
}

// Board is an immutable view: newest first, id descending on ties.
type Board struct {
	Cards  []Card
	Counts map[string]int
}

func (b *Board) index(id int64) int {
	for i, c := range b.Cards {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// Printer receives orders created after the dashboard started.
type Printer interface {
	Print(c Card) error
}

type cardHeader struct {
	ID        int64     `json:"id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

func decodeCard(raw json.RawMessage) (Card, error) {
	var h cardHeader
	if err := json.Unmarshal(raw, &h); err != nil {
		return Card{}, err
	}
	if h.ID <= 0 {
		return Card{}, fmt.Errorf("missing order id")
	}
	return Card{ID: h.ID, Status: h.Status, CreatedAt: h.CreatedAt, Raw: raw}, nil
}

// before reports whether a sorts ahead of b.
func before(a, b Card) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

func countStatuses(cards []Card) map[string]int {
	counts := make(map[string]int, len(enum.OrderStatuses))
	for _, s := range enum.OrderStatuses {
		counts[s] = 0
	}
	for _, c := range cards {
		counts[c.Status]++
	}
	return counts
}

// Reconciler merges pulled batches and pushed events into one Board.
// Writers are serialized; readers always see a complete Board.
type Reconciler struct {
	mu      sync.Mutex
	board   atomic.Pointer[Board]
	seeded  bool
	handled map[int64]struct{}

	autoPrint atomic.Bool
	printer   Printer
	logger    *slog.Logger
}

func NewReconciler(printer Printer, autoPrint bool, logger *slog.Logger) *Reconciler {
	r := &Reconciler{
		handled: make(map[int64]struct{}),
		printer: printer,
		logger:  logger.With("component", "board"),
	}
	r.autoPrint.Store(autoPrint)
	r.board.Store(&Board{Counts: countStatuses(nil)})
	return r
}

// Board returns the current board. Callers must not modify it.
func (r *Reconciler) Board() *Board {
	return r.board.Load()
}

func (r *Reconciler) SetAutoPrint(on bool) {
	r.autoPrint.Store(on)
}

// ApplySnapshot replaces the board with a pulled batch. Duplicate ids keep the
// entry with the latest created_at (the later entry on ties). A batch that is
// not a list is rejected and the previous board kept.
func (r *Reconciler) ApplySnapshot(data []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		r.logger.Warn("discarding malformed batch", "error", err)
		return fmt.Errorf("%w: %v", ErrMalformedBatch, err)
	}
	if raws == nil {
		r.logger.Warn("discarding malformed batch", "error", "not a list")
		return fmt.Errorf("%w: not a list", ErrMalformedBatch)
	}

	byID := make(map[int64]int, len(raws))
	cards := make([]Card, 0, len(raws))
	for i, raw := range raws {
		c, err := decodeCard(raw)
		if err != nil {
			r.logger.Warn("skipping malformed order in batch", "index", i, "error", err)
			continue
		}
		if j, ok := byID[c.ID]; ok {
			if !c.CreatedAt.Before(cards[j].CreatedAt) {
				cards[j] = c
			}
			continue
		}
		byID[c.ID] = len(cards)
		cards = append(cards, c)
	}
	sort.Slice(cards, func(i, j int) bool { return before(cards[i], cards[j]) })

	r.mu.Lock()
	prev := r.board.Load()
	var added []Card
	for _, c := range cards {
		if prev.index(c.ID) < 0 {
			added = append(added, c)
		}
	}
	r.board.Store(&Board{Cards: cards, Counts: countStatuses(cards)})

	var toPrint []Card
	if !r.seeded {
		// Orders present at startup were already handled by someone else.
		r.seeded = true
		for _, c := range cards {
			r.handled[c.ID] = struct{}{}
		}
	} else {
		toPrint = r.claim(added)
	}
	r.mu.Unlock()

	r.print(toPrint)
	return nil
}

// ApplyEvent applies one pushed stream event. Unknown and liveness events are
// ignored; a malformed event returns an error and leaves the board untouched.
func (r *Reconciler) ApplyEvent(data []byte) error {
	var ev struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &ev); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	switch ev.Type {
	case enum.EventOrderCreated, enum.EventOrderStatusChanged,
		enum.EventOrderItemsChanged, enum.EventOrderAddressChanged:
		c, err := decodeCard(ev.Payload)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrMalformedEvent, ev.Type, err)
		}
		r.upsert(c, ev.Type == enum.EventOrderCreated)
		return nil

	case enum.EventOrderDeleted:
		var p struct {
			ID int64 `json:"id"`
		}
		if err := json.Unmarshal(ev.Payload, &p); err != nil || p.ID <= 0 {
			return fmt.Errorf("%w: %s", ErrMalformedEvent, ev.Type)
		}
		r.remove(p.ID)
		return nil

	default:
		return nil
	}
}

// upsert replaces a card in place when its position cannot change, and
// otherwise reinserts it at its sorted position. A created order is new even
// before the first pull lands, so it is claimed then and the seed skips it.
func (r *Reconciler) upsert(c Card, created bool) {
	r.mu.Lock()
	prev := r.board.Load()
	i := prev.index(c.ID)

	var cards []Card
	switch {
	case i >= 0 && prev.Cards[i].CreatedAt.Equal(c.CreatedAt):
		cards = append([]Card(nil), prev.Cards...)
		cards[i] = c
	default:
		cards = make([]Card, 0, len(prev.Cards)+1)
		for _, existing := range prev.Cards {
			if existing.ID != c.ID {
				cards = append(cards, existing)
			}
		}
		at := sort.Search(len(cards), func(k int) bool { return before(c, cards[k]) })
		cards = append(cards, Card{})
		copy(cards[at+1:], cards[at:])
		cards[at] = c
	}
	r.board.Store(&Board{Cards: cards, Counts: countStatuses(cards)})

	var toPrint []Card
	if i < 0 && (r.seeded || created) {
		toPrint = r.claim([]Card{c})
	}
	r.mu.Unlock()

	r.print(toPrint)
}

func (r *Reconciler) remove(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.board.Load()
	i := prev.index(id)
	if i < 0 {
		return
	}
	cards := make([]Card, 0, len(prev.Cards)-1)
	cards = append(cards, prev.Cards[:i]...)
	cards = append(cards, prev.Cards[i+1:]...)
	r.board.Store(&Board{Cards: cards, Counts: countStatuses(cards)})
}

// claim marks cards as handled and returns those that should print now.
// Caller holds r.mu.
func (r *Reconciler) claim(cards []Card) []Card {
	var out []Card
	for _, c := range cards {
		if _, done := r.handled[c.ID]; done {
			continue
		}
		r.handled[c.ID] = struct{}{}
		if r.autoPrint.Load() && r.printer != nil {
			out = append(out, c)
		}
	}
	return out
}

func (r *Reconciler) print(cards []Card) {
	for _, c := range cards {
		if err := r.printer.Print(c); err != nil {
			r.logger.Warn("auto print failed", "order_id", c.ID, "error", err)
		}
	}
}
