package bowlog

// Remapper resolves logical sectors through the entries discovered so far.
// Entries discovered later shadow earlier ones.
type Remapper struct {
	sectorSize uint64
	entries    []LogEntry
}

// NewRemapper creates an empty remapper for the given sector size.
func NewRemapper(sectorSize int) *Remapper {
	return &Remapper{sectorSize: uint64(sectorSize)}
}

// Resolve returns the physical sector currently holding the content of
// sector.
func (r *Remapper) Resolve(sector uint64) uint64 {
	for i := len(r.entries) - 1; i >= 0; i-- {
		le := r.entries[i]
		if sector >= le.Source && sector-le.Source < uint64(le.Size)/r.sectorSize {
			return le.Dest + (sector - le.Source)
		}
	}
	return sector
}

// Add makes entry visible to future resolutions.
func (r *Remapper) Add(entry LogEntry) {
	r.entries = append(r.entries, entry)
}

// Reset forgets every discovered entry.
func (r *Remapper) Reset() {
	r.entries = r.entries[:0]
}

// Len returns the number of discovered entries.
func (r *Remapper) Len() int {
	return len(r.entries)
}

// Entries returns a copy of the discovered entries in discovery order.
func (r *Remapper) Entries() []LogEntry {
	out := make([]LogEntry, len(r.entries))
	copy(out, r.entries)
	return out
}
