// Package history keeps the append-only log of submitted input lines and a
// recall cursor over it.
package history

// Buffer is an append-only log of raw input strings with a movable cursor.
//
// Invariant: 0 <= cursor <= len(entries); cursor == len(entries) is the
// one-past-the-end sentinel meaning "no entry recalled".
//
// A Buffer is owned by a single session and is not safe for concurrent use.
type Buffer struct {
	entries []string
	cursor  int
}

// New returns an empty Buffer.
func New() *Buffer {
	return &Buffer{}
}

// Push appends text and resets the cursor to one past the end.
//
// Postcondition: Len() grows by one; Cursor() == Len().
func (b *Buffer) Push(text string) {
	b.entries = append(b.entries, text)
	b.cursor = len(b.entries)
}

// Prev moves the cursor one entry back, clamped at the first entry.
//
// Postcondition: Returns the entry under the cursor, or ("", false) if the
// buffer is empty.
func (b *Buffer) Prev() (string, bool) {
	return b.move(-1)
}

// Next moves the cursor one entry forward, clamped at the sentinel.
//
// Postcondition: Returns the entry under the cursor, or ("", false) if the
// buffer is empty or the cursor reached the sentinel.
func (b *Buffer) Next() (string, bool) {
	return b.move(1)
}

func (b *Buffer) move(delta int) (string, bool) {
	b.cursor = min(max(b.cursor+delta, 0), len(b.entries))
	if b.cursor == len(b.entries) {
		return "", false
	}
	return b.entries[b.cursor], true
}

// Len returns the number of entries.
func (b *Buffer) Len() int {
	return len(b.entries)
}

// Cursor returns the current cursor index in [0, Len()].
func (b *Buffer) Cursor() int {
	return b.cursor
}

// Entries returns a copy of every entry, oldest first.
func (b *Buffer) Entries() []string {
	out := make([]string, len(b.entries))
	copy(out, b.entries)
	return out
}
