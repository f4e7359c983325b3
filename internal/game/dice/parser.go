package dice

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Upper bounds on a single term. They keep a hostile expression from
// allocating or rolling without limit.
const (
	MaxCount    = 1000
	MaxFaces    = 1000000
	MaxModifier = 1000000000
)

// ErrSyntax is returned (wrapped) for every expression that cannot be parsed.
var ErrSyntax = errors.New("dice: invalid expression")

// Expression represents a parsed dice expression ready to be rolled.
//
// Invariant: Terms is non-empty unless SuccessThreshold is set, in which case
// Terms is empty and the expression is evaluated as a single 1d100 check.
type Expression struct {
	Raw              string     // original input string
	Terms            []DiceTerm // dice terms in source order
	Modifier         int        // sum of every flat modifier
	SuccessThreshold *int       // percent, set only for success checks
}

// IsSuccessCheck reports whether e is a percentile success-threshold check.
func (e Expression) IsSuccessCheck() bool {
	return e.SuccessThreshold != nil
}

// String renders e in canonical notation, e.g. "4d6dl1-1d4+2" or "25%".
func (e Expression) String() string {
	if e.IsSuccessCheck() {
		return strconv.Itoa(*e.SuccessThreshold) + "%"
	}
	var b strings.Builder
	for i, t := range e.Terms {
		if i > 0 && !t.Negate {
			b.WriteByte('+')
		}
		b.WriteString(t.String())
	}
	b.WriteString(modifierText(e.Modifier))
	return b.String()
}

// Parse parses a dice expression string into an Expression.
// Supported forms: "d20", "2d6", "2d6+3", "4d8-2", "4d6dl1", "2d20dh1+1d4-1",
// "-1d4+2". Whitespace is ignored, case is folded and chained signs collapse
// ("3d6--2" == "3d6+2").
//
// Postcondition: Returns an Expression with at least one term, or an error
// wrapping ErrSyntax. Parse never panics.
func Parse(text string) (Expression, error) {
	s := preprocess(text)
	if s == "" {
		return Expression{}, syntaxError(text, "empty expression")
	}

	var (
		diceText strings.Builder
		modifier int
	)
	for _, tok := range splitSigned(s) {
		if strings.ContainsRune(tok, 'd') {
			diceText.WriteString(tok)
			continue
		}
		m, err := strconv.Atoi(tok)
		if err != nil {
			return Expression{}, syntaxError(text, fmt.Sprintf("invalid modifier %q", tok))
		}
		if m > MaxModifier || m < -MaxModifier {
			return Expression{}, syntaxError(text, fmt.Sprintf("modifier %q exceeds %d", tok, MaxModifier))
		}
		modifier += m
		if modifier > MaxModifier || modifier < -MaxModifier {
			return Expression{}, syntaxError(text, fmt.Sprintf("modifier sum exceeds %d", MaxModifier))
		}
	}

	terms, err := scanTerms(diceText.String())
	if err != nil {
		return Expression{}, syntaxError(text, err.Error())
	}

	return Expression{
		Raw:      strings.TrimSpace(text),
		Terms:    terms,
		Modifier: modifier,
	}, nil
}

// ParseSuccess parses the success-threshold shorthand: a single integer in
// [0, 100], optionally followed by '%' ("25", "25%").
//
// Postcondition: Returns an Expression with SuccessThreshold set, or an error
// wrapping ErrSyntax.
func ParseSuccess(text string) (Expression, error) {
	s := strings.TrimSuffix(preprocess(text), "%")
	if s == "" || strings.IndexFunc(s, func(r rune) bool { return r < '0' || r > '9' }) >= 0 {
		return Expression{}, syntaxError(text, "not a success threshold")
	}
	n, err := strconv.Atoi(s)
	if err != nil || n > 100 {
		return Expression{}, syntaxError(text, "success threshold must be 0-100")
	}
	return Expression{Raw: strings.TrimSpace(text), SuccessThreshold: &n}, nil
}

// Compile accepts anything a user may type as a roll: the success-threshold
// shorthand first, then full dice notation.
//
// Postcondition: Returns a rollable Expression or an error wrapping ErrSyntax.
func Compile(text string) (Expression, error) {
	if e, err := ParseSuccess(text); err == nil {
		return e, nil
	}
	return Parse(text)
}

// MustParse parses expr and panics on error. Useful for package-level constants.
//
// Precondition: expr must be a valid dice expression.
func MustParse(expr string) Expression {
	e, err := Parse(expr)
	if err != nil {
		panic("dice: MustParse failed for expression " + expr + ": " + err.Error())
	}
	return e
}

func syntaxError(text, reason string) error {
	return fmt.Errorf("%w %q: %s", ErrSyntax, text, reason)
}

// parseState is the state of the dice-term scanner.
type parseState int

const (
	stateInit          parseState = iota // nothing scanned yet
	stateNone                            // expecting a sign, a digit or 'd'
	stateCount                           // accumulating the count before 'd'
	stateFaces                           // accumulating the faces after 'd'
	stateDropQualifier                   // second 'd' seen, expecting 'l' or 'h'
	stateDropCount                       // accumulating the drop count
)

func (s parseState) String() string {
	switch s {
	case stateInit:
		return "init"
	case stateNone:
		return "none"
	case stateCount:
		return "count"
	case stateFaces:
		return "faces"
	case stateDropQualifier:
		return "drop-qualifier"
	case stateDropCount:
		return "drop-count"
	default:
		return "unknown"
	}
}

// termScanner is the character-level state machine for dice terms. It only
// ever sees the dice-bearing tokens of an expression; flat modifiers have
// already been removed.
type termScanner struct {
	state  parseState
	cur    DiceTerm
	num    int  // digits accumulated in the current state
	digits bool // at least one digit accumulated in the current state
	terms  []DiceTerm
}

// scanTerms runs the state machine over s.
func scanTerms(s string) ([]DiceTerm, error) {
	sc := &termScanner{}
	for i := 0; i < len(s); i++ {
		if err := sc.step(s[i]); err != nil {
			return nil, fmt.Errorf("at offset %d: %w", i, err)
		}
	}
	if err := sc.finish(); err != nil {
		return nil, err
	}
	return sc.terms, nil
}

// step advances the scanner by one character.
func (sc *termScanner) step(c byte) error {
	switch sc.state {
	case stateInit, stateNone:
		switch {
		case c == '-':
			sc.cur.Negate = !sc.cur.Negate
			sc.state = stateNone
		case c == '+':
			sc.state = stateNone
		case isDigit(c):
			sc.enter(stateCount)
			return sc.accumulate(c, MaxCount)
		case c == 'd':
			sc.cur.Count = 1
			sc.enter(stateFaces)
		default:
			return fmt.Errorf("unexpected %q", c)
		}

	case stateCount:
		switch {
		case isDigit(c):
			return sc.accumulate(c, MaxCount)
		case c == 'd':
			sc.cur.Count = sc.num
			sc.enter(stateFaces)
		default:
			return fmt.Errorf("unexpected %q after count, want 'd'", c)
		}

	case stateFaces:
		switch {
		case isDigit(c):
			return sc.accumulate(c, MaxFaces)
		case c == 'd':
			if !sc.digits {
				return errors.New("missing faces before drop clause")
			}
			sc.cur.Faces = sc.num
			sc.enter(stateDropQualifier)
		case c == '+' || c == '-':
			if !sc.digits {
				return errors.New("missing faces")
			}
			sc.cur.Faces = sc.num
			return sc.next(c)
		default:
			return fmt.Errorf("unexpected %q in faces", c)
		}

	case stateDropQualifier:
		switch c {
		case 'l':
			sc.cur.Drop = DropLowest
		case 'h':
			sc.cur.Drop = DropHighest
		default:
			return fmt.Errorf("unexpected %q, want 'l' or 'h'", c)
		}
		sc.enter(stateDropCount)

	case stateDropCount:
		switch {
		case isDigit(c):
			return sc.accumulate(c, MaxCount)
		case c == '+' || c == '-':
			if !sc.digits {
				return errors.New("missing drop count")
			}
			sc.cur.DropCount = sc.num
			return sc.next(c)
		case c == 'd':
			return errors.New("too many 'd' in term")
		default:
			return fmt.Errorf("unexpected %q in drop count", c)
		}
	}
	return nil
}

// finish validates the scanner state at end of input and emits the last term.
func (sc *termScanner) finish() error {
	switch sc.state {
	case stateInit:
		return errors.New("no dice term")
	case stateNone:
		return errors.New("dangling sign")
	case stateCount:
		return errors.New("missing 'd'")
	case stateFaces:
		if !sc.digits {
			return errors.New("missing faces")
		}
		sc.cur.Faces = sc.num
	case stateDropQualifier:
		return errors.New("missing drop qualifier")
	case stateDropCount:
		if !sc.digits {
			return errors.New("missing drop count")
		}
		sc.cur.DropCount = sc.num
	}
	return sc.emit()
}

// next finalizes the current term and starts a new one whose sign is op.
func (sc *termScanner) next(op byte) error {
	if err := sc.emit(); err != nil {
		return err
	}
	sc.cur = DiceTerm{Negate: op == '-'}
	sc.state = stateNone
	return nil
}

// emit validates the current term and appends it.
func (sc *termScanner) emit() error {
	t := sc.cur
	switch {
	case t.Count < 1:
		return fmt.Errorf("term %s: count must be >= 1", t)
	case t.Faces < 1:
		return fmt.Errorf("term %s: faces must be >= 1", t)
	case t.Drop != DropNone && t.DropCount >= t.Count:
		return fmt.Errorf("term %s: drop count must be < count %d", t, t.Count)
	}
	sc.terms = append(sc.terms, t)
	return nil
}

func (sc *termScanner) enter(s parseState) {
	sc.state = s
	sc.num = 0
	sc.digits = false
}

func (sc *termScanner) accumulate(c byte, limit int) error {
	sc.num = sc.num*10 + int(c-'0')
	sc.digits = true
	if sc.num > limit {
		return fmt.Errorf("number exceeds %d", limit)
	}
	return nil
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
