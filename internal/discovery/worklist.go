package discovery

// Worklist is the append-only sequence of methods awaiting extraction, read
// through a cursor. Items pushed while the cursor advances are picked up by
// the same loop.
type Worklist struct {
	items  []*AnalyzedMethod
	cursor int
}

// NewWorklist creates an empty worklist.
func NewWorklist() *Worklist {
	return &Worklist{}
}

// Push appends a method.
func (w *Worklist) Push(m *AnalyzedMethod) {
	w.items = append(w.items, m)
}

// Next returns the item under the cursor and advances it.
func (w *Worklist) Next() (*AnalyzedMethod, bool) {
	if w.cursor >= len(w.items) {
		return nil, false
	}
	m := w.items[w.cursor]
	w.cursor++
	return m, true
}

// Len returns the number of items ever pushed.
func (w *Worklist) Len() int { return len(w.items) }

// Pending returns the number of items not yet read.
func (w *Worklist) Pending() int { return len(w.items) - w.cursor }
