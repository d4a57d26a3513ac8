package channel

// Buffer stores items put into a channel until a taker claims them. All
// implementations are used under the owning channel's lock and need no
// locking of their own.
type Buffer interface {
	// Put stores an item. It reports false when the item was rejected
	// because the buffer is full.
	Put(item any) bool

	// Take removes and returns the delivery-ordered next item.
	Take() (any, bool)

	// Len returns the number of stored items.
	Len() int
}

// Unbounded returns a FIFO buffer without a capacity limit.
func Unbounded() Buffer { return &fifo{limit: 0} }

// Fixed returns a FIFO buffer that rejects new items once it holds n.
func Fixed(n int) Buffer { return &fifo{limit: n} }

// Sliding returns a latest-wins buffer of capacity n: when full, the oldest
// item is discarded to admit the new one. Sliding(1) keeps only the most
// recent item, which is the shape throttling needs.
func Sliding(n int) Buffer { return &sliding{limit: n} }

// Replacing returns a replace-pending buffer of capacity n: a new item
// overwrites the most recently stored one when full. Replacing(1) keeps a
// single pending item that each new arrival supersedes, which is the shape
// debouncing needs.
func Replacing(n int) Buffer { return &replacing{limit: n} }

type fifo struct {
	items []any
	limit int
}

func (b *fifo) Put(item any) bool {
	if b.limit > 0 && len(b.items) >= b.limit {
		return false
	}
	b.items = append(b.items, item)
	return true
}

func (b *fifo) Take() (any, bool) {
	if len(b.items) == 0 {
		return nil, false
	}
	item := b.items[0]
	b.items = b.items[1:]
	return item, true
}

func (b *fifo) Len() int { return len(b.items) }

type sliding struct {
	items []any
	limit int
}

func (b *sliding) Put(item any) bool {
	if b.limit > 0 && len(b.items) >= b.limit {
		b.items = b.items[1:]
	}
	b.items = append(b.items, item)
	return true
}

func (b *sliding) Take() (any, bool) {
	if len(b.items) == 0 {
		return nil, false
	}
	item := b.items[0]
	b.items = b.items[1:]
	return item, true
}

func (b *sliding) Len() int { return len(b.items) }

type replacing struct {
	items []any
	limit int
}

func (b *replacing) Put(item any) bool {
	if b.limit > 0 && len(b.items) >= b.limit {
		b.items[len(b.items)-1] = item
		return true
	}
	b.items = append(b.items, item)
	return true
}

func (b *replacing) Take() (any, bool) {
	if len(b.items) == 0 {
		return nil, false
	}
	item := b.items[0]
	b.items = b.items[1:]
	return item, true
}

func (b *replacing) Len() int { return len(b.items) }
