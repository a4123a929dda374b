package domain

// LogIndex is a sparse in-memory index of log entries keyed by (habit, date).
// It is not safe for concurrent mutation; owners guard it themselves.
type LogIndex struct {
	entries map[string]*LogEntry
}

func NewLogIndex(logs []*LogEntry) *LogIndex {
	idx := &LogIndex{entries: make(map[string]*LogEntry, len(logs))}
	for _, e := range logs {
		idx.Put(e)
	}
	return idx
}

func LogKey(habitID string, date Date) string {
	return habitID + "|" + date.String()
}

func (x *LogIndex) Get(habitID string, date Date) (*LogEntry, bool) {
	e, ok := x.entries[LogKey(habitID, date)]
	return e, ok
}

// Status satisfies the read-only lookup used by analytics.
func (x *LogIndex) Status(habitID string, date Date) (Status, bool) {
	e, ok := x.entries[LogKey(habitID, date)]
	if !ok {
		return "", false
	}
	return e.Status, true
}

// Put replaces any entry for the same (habit, date).
func (x *LogIndex) Put(e *LogEntry) {
	if e == nil {
		return
	}
	x.entries[LogKey(e.HabitID, e.Date)] = e
}

func (x *LogIndex) Delete(habitID string, date Date) {
	delete(x.entries, LogKey(habitID, date))
}

func (x *LogIndex) Len() int { return len(x.entries) }

func (x *LogIndex) Entries() []*LogEntry {
	out := make([]*LogEntry, 0, len(x.entries))
	for _, e := range x.entries {
		out = append(out, e)
	}
	SortLogs(out)
	return out
}

// Clone copies the index and its entries so the copy can be handed to
// readers while the owner keeps mutating the original.
func (x *LogIndex) Clone() *LogIndex {
	c := &LogIndex{entries: make(map[string]*LogEntry, len(x.entries))}
	for k, e := range x.entries {
		c.entries[k] = e.Clone()
	}
	return c
}
