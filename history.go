package vtline

const DefaultHistoryCapacity = 100

// History is a bounded, ordered list of accepted lines with a browsing
// cursor. When full, the oldest entry is evicted to make room.
type History struct {
	entries  []string
	capacity int
	// cursor == len(entries) means "not browsing".
	cursor int
}

func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &History{
		entries:  make([]string, 0, capacity),
		capacity: capacity,
	}
}

func (h *History) Add(line string) {
	if len(h.entries) >= h.capacity {
		copy(h.entries, h.entries[1:])
		h.entries = h.entries[:len(h.entries)-1]
	}
	h.entries = append(h.entries, line)
	h.ResetCursor()
}

// Entries returns a copy of the history, oldest first.
func (h *History) Entries() []string {
	return append([]string(nil), h.entries...)
}

func (h *History) Len() int {
	return len(h.entries)
}

func (h *History) Capacity() int {
	return h.capacity
}

func (h *History) Last() (string, bool) {
	if len(h.entries) == 0 {
		return "", false
	}
	return h.entries[len(h.entries)-1], true
}

func (h *History) Browsing() bool {
	return h.cursor < len(h.entries)
}

func (h *History) ResetCursor() {
	h.cursor = len(h.entries)
}

// Navigate moves the browsing cursor one entry back in time (direction < 0)
// or forward (direction > 0) and returns the line to show. Moving is clamped
// at the oldest entry; moving past the newest entry stops browsing and
// yields an empty line. The boolean reports whether the cursor moved.
func (h *History) Navigate(direction int) (string, bool) {
	switch {
	case direction < 0:
		if h.cursor == 0 {
			if len(h.entries) == 0 {
				return "", false
			}
			return h.entries[0], false
		}
		h.cursor--
		return h.entries[h.cursor], true
	case direction > 0:
		if !h.Browsing() {
			return "", false
		}
		h.cursor++
		if !h.Browsing() {
			return "", true
		}
		return h.entries[h.cursor], true
	}
	return "", false
}
