// Package dice compiles textual dice notation ("2d6+3", "4d6dl1", "-1d4+2")
// into expressions and evaluates them against a randomness Source.
package dice

import (
	"fmt"
	"strconv"
	"strings"
)

// Source is the randomness provider for dice rolls.
//
// Implementations MUST be safe for concurrent use.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
}

// DropQualifier selects which dice a drop clause discards.
type DropQualifier int

const (
	// DropNone keeps every die.
	DropNone DropQualifier = iota
	// DropLowest discards the lowest DropCount dice ("dl").
	DropLowest
	// DropHighest discards the highest DropCount dice ("dh").
	DropHighest
)

// String returns the notation suffix for q: "", "l" or "h".
func (q DropQualifier) String() string {
	switch q {
	case DropLowest:
		return "l"
	case DropHighest:
		return "h"
	default:
		return ""
	}
}

// DiceTerm is a single NdF clause, optionally negated and optionally
// qualified with a drop rule.
//
// Invariant: Count >= 1, Faces >= 1, DropCount < Count.
// Invariant: Drop == DropNone implies DropCount == 0.
type DiceTerm struct {
	Negate    bool
	Count     int
	Faces     int
	Drop      DropQualifier
	DropCount int
}

// String renders t in canonical notation, e.g. "-4d6dl1".
func (t DiceTerm) String() string {
	var b strings.Builder
	if t.Negate {
		b.WriteByte('-')
	}
	b.WriteString(strconv.Itoa(t.Count))
	b.WriteByte('d')
	b.WriteString(strconv.Itoa(t.Faces))
	if t.Drop != DropNone {
		b.WriteByte('d')
		b.WriteString(t.Drop.String())
		b.WriteString(strconv.Itoa(t.DropCount))
	}
	return b.String()
}

// TermResult holds the rolled dice for one DiceTerm.
//
// Postcondition: Subtotal == ±sum(Kept), negative when Term.Negate.
type TermResult struct {
	Term     DiceTerm
	Kept     []int // kept dice, in draw order
	Dropped  []int // discarded dice in drop order; nil when the term has no drop clause
	Subtotal int
	AllMax   bool // every kept die shows Term.Faces
	AllMin   bool // every kept die shows 1
}

// RollResult holds the full audit trail for a single expression evaluation.
//
// Postcondition: Total == sum(Terms[i].Subtotal) + Modifier.
// Postcondition: AllMax/AllMin are true only if len(Terms) > 0 and every term agrees.
type RollResult struct {
	Expression   string // expression text as typed, e.g. "4d6dl1+2"
	Terms        []TermResult
	Modifier     int
	ModifierText string // "+3", "-2", or "" when Modifier is zero
	Total        int
	AllMax       bool
	AllMin       bool
}

// Summary renders the per-term breakdown consumed by displays:
//
//	"(6+6+3[1])+2"
//
// Each term is parenthesised with its kept dice joined by "+", dropped dice
// follow in brackets, also joined by "+". Negated terms carry a leading "-", later
// positive terms a leading "+". ModifierText is appended last.
func (r RollResult) Summary() string {
	var b strings.Builder
	for i, tr := range r.Terms {
		switch {
		case tr.Term.Negate:
			b.WriteByte('-')
		case i > 0:
			b.WriteByte('+')
		}
		b.WriteByte('(')
		b.WriteString(joinInts(tr.Kept, "+"))
		if len(tr.Dropped) > 0 {
			b.WriteByte('[')
			b.WriteString(joinInts(tr.Dropped, "+"))
			b.WriteByte(']')
		}
		b.WriteByte(')')
	}
	b.WriteString(r.ModifierText)
	return b.String()
}

// String returns a human-readable audit string in the format:
//
//	"2d6+3 → (4+5)+3 = 12"
//
// Precondition: r.Expression is non-empty.
func (r RollResult) String() string {
	if r.Expression == "" {
		panic("dice: RollResult.String() precondition violated: Expression must be non-empty")
	}
	return fmt.Sprintf("%s → %s = %d", r.Expression, r.Summary(), r.Total)
}

// Dice returns every kept die across all terms, in term order.
func (r RollResult) Dice() []int {
	var out []int
	for _, tr := range r.Terms {
		out = append(out, tr.Kept...)
	}
	return out
}

// SuccessResult is the outcome of a percentile success-threshold check.
type SuccessResult struct {
	Threshold int // percent, 0..100
	Roll      int // the 1d100 draw
	Success   bool
}

// Limit is the highest roll that still succeeds: 100 - Threshold.
func (s SuccessResult) Limit() int {
	return 100 - s.Threshold
}

// String renders the check as "1d100 → 76 vs 75: failure".
func (s SuccessResult) String() string {
	verdict := "failure"
	if s.Success {
		verdict = "success"
	}
	return fmt.Sprintf("1d100 → %d vs %d: %s", s.Roll, s.Limit(), verdict)
}

func modifierText(m int) string {
	if m == 0 {
		return ""
	}
	return fmt.Sprintf("%+d", m)
}

func joinInts(vals []int, sep string) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, sep)
}
