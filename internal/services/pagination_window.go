package services

import (
	"sync"

	domain "github.com/trailaccess/trailguide/internal/domain"
)

const defaultBatchSize = 6

// Batch is one incremental reveal. IsFirst marks the batch starting at offset zero, which
// replaces displayed content; later batches append to it.
type Batch struct {
	Items     []domain.TrailGuide
	IsFirst   bool
	Displayed int
	Total     int
}

// PaginationWindow reveals a result list in fixed-size batches.
type PaginationWindow struct {
	mu        sync.Mutex
	batchSize int
	base      []domain.TrailGuide
	displayed int
}

// NewPaginationWindow constructs an empty window. Non-positive sizes use the default of 6.
func NewPaginationWindow(batchSize int) *PaginationWindow {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &PaginationWindow{batchSize: batchSize}
}

// Reset replaces the underlying list and rewinds to the start.
func (w *PaginationWindow) Reset(base []domain.TrailGuide) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.base = base
	w.displayed = 0
}

// NextBatch reveals up to batchSize further items. Once everything is displayed it returns
// an empty batch and leaves the window unchanged.
func (w *PaginationWindow) NextBatch() Batch {
	w.mu.Lock()
	defer w.mu.Unlock()

	start := w.displayed
	end := min(start+w.batchSize, len(w.base))
	items := make([]domain.TrailGuide, 0, end-start)
	for _, record := range w.base[start:end] {
		items = append(items, record.Clone())
	}
	w.displayed = end
	return Batch{
		Items:     items,
		IsFirst:   start == 0,
		Displayed: w.displayed,
		Total:     len(w.base),
	}
}

// DisplayedCount returns how many items have been revealed.
func (w *PaginationWindow) DisplayedCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.displayed
}

// Remaining returns how many items are still hidden.
func (w *PaginationWindow) Remaining() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.base) - w.displayed
}

// Len returns the size of the underlying list.
func (w *PaginationWindow) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.base)
}

// BatchSize returns the configured batch size.
func (w *PaginationWindow) BatchSize() int {
	return w.batchSize
}

// UpdateItem applies fn to the listed record with id so later batches reflect local
// mutations such as likes.
func (w *PaginationWindow) UpdateItem(id string, fn func(*domain.TrailGuide)) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i := range w.base {
		if w.base[i].ID == id {
			fn(&w.base[i])
			return true
		}
	}
	return false
}
