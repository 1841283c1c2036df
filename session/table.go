package session

// Table is the append-only, nullable-entry session table indexed by
// LocalSessionNum. Disconnected slots remain nil forever; session numbers
// are never reused (see DESIGN.md's Open Question notes on reclamation).
//
// Only the creator thread mutates a Table; this type performs no internal
// locking, matching §5's "only the creator mutates" rule for the session
// table.
type Table struct {
	entries []*Session
	maxLen  int
}

// NewTable constructs an empty Table bounded by maxSessions.
func NewTable(maxSessions int) *Table {
	return &Table{maxLen: maxSessions}
}

// Len reports the total number of slots ever appended, including buried
// (nil) ones.
func (t *Table) Len() int {
	return len(t.entries)
}

// Full reports whether the table has reached its configured cap.
func (t *Table) Full() bool {
	return len(t.entries) >= t.maxLen
}

// Append adds s to the table and sets s.LocalSessionNum to its index,
// returning that index. Callers must check Full() first.
func (t *Table) Append(s *Session) uint16 {
	num := uint16(len(t.entries))
	t.entries = append(t.entries, s)
	s.LocalSessionNum = num
	return num
}

// Get returns the session at num, or (nil, false) if num is out of range or
// was buried.
func (t *Table) Get(num uint16) (*Session, bool) {
	if int(num) >= len(t.entries) {
		return nil, false
	}
	s := t.entries[num]
	return s, s != nil
}

// Bury nils out the entry at num. It is a no-op if already nil or out of
// range.
func (t *Table) Bury(num uint16) {
	if int(num) >= len(t.entries) {
		return
	}
	t.entries[num] = nil
}

// CountActive returns the number of non-nil entries.
func (t *Table) CountActive() int {
	n := 0
	for _, s := range t.entries {
		if s != nil {
			n++
		}
	}
	return n
}

// FindClientSessionTo returns the client session already targeting
// (hostname, endpointID), if any. Used by CreateSession to reject duplicate
// client sessions to the same remote endpoint.
func (t *Table) FindClientSessionTo(hostname string, endpointID uint8) (*Session, bool) {
	for _, s := range t.entries {
		if s == nil || !s.IsClient() {
			continue
		}
		if s.Server.Hostname == hostname && s.Server.EndpointID == endpointID {
			return s, true
		}
	}
	return nil, false
}
