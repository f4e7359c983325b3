package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestBuffer_EmptyReturnsNothing(t *testing.T) {
	b := New()
	v, ok := b.Prev()
	assert.False(t, ok)
	assert.Equal(t, "", v)
	v, ok = b.Next()
	assert.False(t, ok)
	assert.Equal(t, "", v)
	assert.Equal(t, 0, b.Cursor())
}

func TestBuffer_PrevClampsAtFirstEntry(t *testing.T) {
	b := New()
	b.Push("1d20")

	v, ok := b.Prev()
	assert.True(t, ok)
	assert.Equal(t, "1d20", v)

	v, ok = b.Prev()
	assert.True(t, ok, "a further Prev stays clamped on the first entry")
	assert.Equal(t, "1d20", v)
	assert.Equal(t, 0, b.Cursor())
}

func TestBuffer_NavigateBackAndForth(t *testing.T) {
	b := New()
	b.Push("1d20")
	b.Push("2d6+3")
	b.Push("/macro list")

	v, _ := b.Prev()
	assert.Equal(t, "/macro list", v)
	v, _ = b.Prev()
	assert.Equal(t, "2d6+3", v)
	v, _ = b.Next()
	assert.Equal(t, "/macro list", v)

	v, ok := b.Next()
	assert.False(t, ok, "moving past the last entry reaches the sentinel")
	assert.Equal(t, "", v)
	_, ok = b.Next()
	assert.False(t, ok)
	assert.Equal(t, 3, b.Cursor())
}

func TestBuffer_PushResetsCursor(t *testing.T) {
	b := New()
	b.Push("a")
	b.Push("b")
	b.Prev()
	b.Prev()
	assert.Equal(t, 0, b.Cursor())

	b.Push("c")
	assert.Equal(t, 3, b.Cursor())
	v, _ := b.Prev()
	assert.Equal(t, "c", v)
}

func TestBuffer_EntriesIsACopy(t *testing.T) {
	b := New()
	b.Push("x")
	entries := b.Entries()
	entries[0] = "mutated"
	assert.Equal(t, []string{"x"}, b.Entries())
}

// TestBuffer_CursorAlwaysInRange_Property drives random operation sequences
// and checks the clamping invariant after each step.
func TestBuffer_CursorAlwaysInRange_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		b := New()
		pushed := []string{}
		ops := rapid.SliceOfN(rapid.IntRange(0, 2), 0, 50).Draw(t, "ops")
		for i, op := range ops {
			switch op {
			case 0:
				s := rapid.StringMatching(`[0-9d+]{1,6}`).Draw(t, "entry")
				b.Push(s)
				pushed = append(pushed, s)
			case 1:
				v, ok := b.Prev()
				if ok != (len(pushed) > 0) {
					t.Fatalf("step %d: Prev ok=%v with %d entries", i, ok, len(pushed))
				}
				if ok && v != pushed[b.Cursor()] {
					t.Fatalf("step %d: Prev returned %q, want %q", i, v, pushed[b.Cursor()])
				}
			case 2:
				v, ok := b.Next()
				if ok && v != pushed[b.Cursor()] {
					t.Fatalf("step %d: Next returned %q, want %q", i, v, pushed[b.Cursor()])
				}
			}
			if b.Cursor() < 0 || b.Cursor() > b.Len() {
				t.Fatalf("step %d: cursor %d outside [0,%d]", i, b.Cursor(), b.Len())
			}
		}
		assert.Equal(t, pushed, b.Entries())
	})
}
