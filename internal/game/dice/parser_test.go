package dice

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestParse_Valid(t *testing.T) {
	tests := []struct {
		input    string
		terms    []DiceTerm
		modifier int
	}{
		{"d20", []DiceTerm{{Count: 1, Faces: 20}}, 0},
		{"2d6", []DiceTerm{{Count: 2, Faces: 6}}, 0},
		{"2d6+3", []DiceTerm{{Count: 2, Faces: 6}}, 3},
		{"4d8-2", []DiceTerm{{Count: 4, Faces: 8}}, -2},
		{"-1d4+2", []DiceTerm{{Negate: true, Count: 1, Faces: 4}}, 2},
		{"4d6dl1", []DiceTerm{{Count: 4, Faces: 6, Drop: DropLowest, DropCount: 1}}, 0},
		{"2d20dh1+1d4-1", []DiceTerm{
			{Count: 2, Faces: 20, Drop: DropHighest, DropCount: 1},
			{Count: 1, Faces: 4},
		}, -1},
		{" 2D6 + 3 ", []DiceTerm{{Count: 2, Faces: 6}}, 3},
		{"3+1d6-1+2d4", []DiceTerm{{Count: 1, Faces: 6}, {Count: 2, Faces: 4}}, 2},
		{"1d6-2d4", []DiceTerm{{Count: 1, Faces: 6}, {Negate: true, Count: 2, Faces: 4}}, 0},
		{"3d6--2", []DiceTerm{{Count: 3, Faces: 6}}, 2},
		{"3d6++-2", []DiceTerm{{Count: 3, Faces: 6}}, -2},
		{"--1d4", []DiceTerm{{Count: 1, Faces: 4}}, 0},
		{"1d1", []DiceTerm{{Count: 1, Faces: 1}}, 0},
		{"4d6dl0", []DiceTerm{{Count: 4, Faces: 6, Drop: DropLowest, DropCount: 0}}, 0},
	}
	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			e, err := Parse(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.terms, e.Terms)
			assert.Equal(t, tc.modifier, e.Modifier)
			assert.False(t, e.IsSuccessCheck())
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"2d",
		"2d6dl2",
		"d6dl3",
		"abc",
		"0d6",
		"2d0",
		"4d6dl",
		"4d6d",
		"4d6dl1d",
		"4d6dx1",
		"3",
		"+5-2",
		"3d6-",
		"1d6+d",
		"2dd6",
		"2d6x",
		"1001d6",
		"1d1000001",
		"1d6+abc",
		"1d6dl1h",
	}
	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			_, err := Parse(input)
			assert.ErrorIs(t, err, ErrSyntax)
		})
	}
}

func TestParse_ModifierBounds(t *testing.T) {
	rejected := []string{
		"1d6+9223372036854775807+1",
		"1d6-9223372036854775808-1",
		"1d6+1000000001",
		"1d6+600000000+600000000",
		"1d6-600000000-600000000",
		"1d6+99999999999999999999",
	}
	for _, input := range rejected {
		t.Run(input, func(t *testing.T) {
			_, err := Parse(input)
			assert.ErrorIs(t, err, ErrSyntax)
		})
	}

	e, err := Parse("1d6+1000000000")
	require.NoError(t, err)
	assert.Equal(t, MaxModifier, e.Modifier)

	e, err = Parse("1d6+600000000-600000000+3")
	require.NoError(t, err)
	assert.Equal(t, 3, e.Modifier)
}

// TestParse_ModifierWithinBounds_Property checks that any accepted expression
// carries a modifier inside [-MaxModifier, MaxModifier].
func TestParse_ModifierWithinBounds_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		mods := rapid.SliceOfN(rapid.IntRange(-2*MaxModifier, 2*MaxModifier), 1, 4).Draw(t, "mods")
		var b strings.Builder
		b.WriteString("1d6")
		for _, m := range mods {
			if m >= 0 {
				b.WriteByte('+')
			}
			b.WriteString(strconv.Itoa(m))
		}
		e, err := Parse(b.String())
		if err != nil {
			assert.ErrorIs(t, err, ErrSyntax)
			return
		}
		if e.Modifier > MaxModifier || e.Modifier < -MaxModifier {
			t.Fatalf("Parse(%q) modifier %d outside bounds", b.String(), e.Modifier)
		}
	})
}

func TestParse_DoubleNegativeMatchesPlus(t *testing.T) {
	a, err := Parse("3d6--2")
	require.NoError(t, err)
	b, err := Parse("3d6+2")
	require.NoError(t, err)
	assert.Equal(t, b.Terms, a.Terms)
	assert.Equal(t, b.Modifier, a.Modifier)
}

func TestParse_KeepsRawText(t *testing.T) {
	e, err := Parse("  4d6dl1 + 2 ")
	require.NoError(t, err)
	assert.Equal(t, "4d6dl1 + 2", e.Raw)
	assert.Equal(t, "4d6dl1+2", e.String())
}

func TestParse_NeverPanics_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		input := rapid.StringMatching(`[0-9dlhx+\- %]{0,24}`).Draw(t, "input")
		e, err := Parse(input)
		if err != nil {
			return
		}
		for _, term := range e.Terms {
			if term.Count < 1 || term.Faces < 1 {
				t.Fatalf("%q produced invalid term %+v", input, term)
			}
			if term.Drop != DropNone && term.DropCount >= term.Count {
				t.Fatalf("%q produced drop count >= count: %+v", input, term)
			}
			if term.Drop == DropNone && term.DropCount != 0 {
				t.Fatalf("%q produced drop count without qualifier: %+v", input, term)
			}
		}
	})
}

// TestParse_CanonicalRoundTrip_Property verifies that canonical notation
// parses back to the same terms and modifier.
func TestParse_CanonicalRoundTrip_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 3).Draw(t, "terms")
		var e Expression
		for i := 0; i < n; i++ {
			count := rapid.IntRange(1, 10).Draw(t, "count")
			term := DiceTerm{
				Negate: rapid.Bool().Draw(t, "negate"),
				Count:  count,
				Faces:  rapid.IntRange(1, 100).Draw(t, "faces"),
				Drop:   DropQualifier(rapid.IntRange(0, 2).Draw(t, "drop")),
			}
			if term.Drop != DropNone {
				term.DropCount = rapid.IntRange(0, count-1).Draw(t, "dropCount")
			}
			e.Terms = append(e.Terms, term)
		}
		e.Modifier = rapid.IntRange(-10, 10).Draw(t, "modifier")

		parsed, err := Parse(e.String())
		if err != nil {
			t.Fatalf("Parse(%q): %v", e.String(), err)
		}
		assert.Equal(t, e.Terms, parsed.Terms)
		assert.Equal(t, e.Modifier, parsed.Modifier)
	})
}

func TestNormalizeSigns(t *testing.T) {
	tests := map[string]string{
		"3d6--2":   "3d6+2",
		"3d6++-2":  "3d6-2",
		"3d6+++2":  "3d6+2",
		"3d6---2":  "3d6-2",
		"3d6-+-2":  "3d6+2",
		"1d4":      "1d4",
		"":         "",
		"--":       "+",
		"+-+-+-+-": "+",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeSigns(in), "NormalizeSigns(%q)", in)
	}
}

func TestNormalizeSigns_Idempotent_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := rapid.StringMatching(`[0-9d+\-]{0,30}`).Draw(t, "s")
		once := NormalizeSigns(s)
		assert.Equal(t, once, NormalizeSigns(once))
		for _, pair := range []string{"++", "--", "+-", "-+"} {
			if strings.Contains(once, pair) {
				t.Fatalf("NormalizeSigns(%q) = %q still contains %q", s, once, pair)
			}
		}
	})
}

func TestSplitSigned(t *testing.T) {
	assert.Equal(t, []string{"4d6", "+2", "-1d4"}, splitSigned("4d6+2-1d4"))
	assert.Equal(t, []string{"-1d4", "+2"}, splitSigned("-1d4+2"))
	assert.Equal(t, []string{"3d6", "-"}, splitSigned("3d6-"))
	assert.Nil(t, splitSigned(""))
}

func TestParseSuccess(t *testing.T) {
	for input, want := range map[string]int{"25": 25, "25%": 25, " 50 % ": 50, "0": 0, "100%": 100} {
		e, err := ParseSuccess(input)
		require.NoError(t, err, input)
		require.True(t, e.IsSuccessCheck())
		assert.Equal(t, want, *e.SuccessThreshold, input)
		assert.Empty(t, e.Terms)
	}
	for _, input := range []string{"", "%", "101", "-5", "+5", "1d20", "25%%", "2 5x"} {
		_, err := ParseSuccess(input)
		assert.ErrorIs(t, err, ErrSyntax, input)
	}
}

func TestCompile(t *testing.T) {
	check, err := Compile("40%")
	require.NoError(t, err)
	assert.True(t, check.IsSuccessCheck())
	assert.Equal(t, "40%", check.String())

	roll, err := Compile("1d20+1")
	require.NoError(t, err)
	assert.False(t, roll.IsSuccessCheck())

	_, err = Compile("nope")
	assert.ErrorIs(t, err, ErrSyntax)
}

func TestMustParse_Panics(t *testing.T) {
	assert.Panics(t, func() { MustParse("2d") })
	assert.NotPanics(t, func() { MustParse("2d6") })
}

// The tests below drive the term scanner directly, one state transition at a time.

func TestScanner_InitState(t *testing.T) {
	sc := &termScanner{}
	assert.Equal(t, stateInit, sc.state)
	require.NoError(t, sc.step('-'))
	assert.Equal(t, stateNone, sc.state)
	assert.True(t, sc.cur.Negate)
	require.NoError(t, sc.step('-'))
	assert.False(t, sc.cur.Negate, "a second '-' toggles the sign back")
	assert.Error(t, sc.step('x'))
}

func TestScanner_EmptyInputFails(t *testing.T) {
	_, err := scanTerms("")
	assert.EqualError(t, err, "no dice term")
}

func TestScanner_CountState(t *testing.T) {
	sc := &termScanner{}
	require.NoError(t, sc.step('1'))
	require.NoError(t, sc.step('2'))
	assert.Equal(t, stateCount, sc.state)
	assert.Equal(t, 12, sc.num)
	assert.Error(t, sc.step('+'), "a count must be followed by 'd'")

	sc = &termScanner{}
	require.NoError(t, sc.step('3'))
	assert.EqualError(t, sc.finish(), "missing 'd'")
}

func TestScanner_DefaultCount(t *testing.T) {
	terms, err := scanTerms("d8")
	require.NoError(t, err)
	assert.Equal(t, []DiceTerm{{Count: 1, Faces: 8}}, terms)
}

func TestScanner_FacesState(t *testing.T) {
	sc := &termScanner{}
	for _, c := range []byte("2d") {
		require.NoError(t, sc.step(c))
	}
	assert.Equal(t, stateFaces, sc.state)
	assert.Equal(t, 2, sc.cur.Count)
	assert.Error(t, sc.step('+'), "a sign before any face digit is an error")

	sc = &termScanner{}
	for _, c := range []byte("2d10") {
		require.NoError(t, sc.step(c))
	}
	require.NoError(t, sc.step('-'))
	assert.Equal(t, stateNone, sc.state)
	assert.True(t, sc.cur.Negate, "the next term inherits the operator's sign")
	require.Len(t, sc.terms, 1)
	assert.Equal(t, DiceTerm{Count: 2, Faces: 10}, sc.terms[0])
}

func TestScanner_DropQualifierState(t *testing.T) {
	sc := &termScanner{}
	for _, c := range []byte("4d6d") {
		require.NoError(t, sc.step(c))
	}
	assert.Equal(t, stateDropQualifier, sc.state)
	assert.Equal(t, 6, sc.cur.Faces)
	assert.EqualError(t, sc.finish(), "missing drop qualifier")

	for _, c := range []byte{'l', 'h'} {
		sc := &termScanner{}
		for _, b := range []byte("4d6d") {
			require.NoError(t, sc.step(b))
		}
		require.NoError(t, sc.step(c))
		assert.Equal(t, stateDropCount, sc.state)
	}

	sc = &termScanner{}
	for _, c := range []byte("4d6d") {
		require.NoError(t, sc.step(c))
	}
	assert.Error(t, sc.step('1'), "the drop clause needs a qualifier before digits")
}

func TestScanner_DropCountState(t *testing.T) {
	sc := &termScanner{}
	for _, c := range []byte("4d6dh") {
		require.NoError(t, sc.step(c))
	}
	assert.EqualError(t, sc.finish(), "missing drop count")

	sc = &termScanner{}
	for _, c := range []byte("4d6dh1") {
		require.NoError(t, sc.step(c))
	}
	assert.Error(t, sc.step('d'), "a third 'd' is an error")

	terms, err := scanTerms("4d6dh1-1d4")
	require.NoError(t, err)
	assert.Equal(t, []DiceTerm{
		{Count: 4, Faces: 6, Drop: DropHighest, DropCount: 1},
		{Negate: true, Count: 1, Faces: 4},
	}, terms)
}

func TestScanner_DropCountMustBeBelowCount(t *testing.T) {
	_, err := scanTerms("2d6dl2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "drop count must be < count")

	_, err = scanTerms("2d6dl1")
	assert.NoError(t, err)
}

func TestScanner_DanglingSign(t *testing.T) {
	_, err := scanTerms("1d6+")
	assert.EqualError(t, err, "dangling sign")
}

func TestParseState_String(t *testing.T) {
	assert.Equal(t, "drop-count", stateDropCount.String())
	assert.Equal(t, "init", stateInit.String())
	assert.Equal(t, "unknown", parseState(99).String())
}

func TestDropQualifier_String(t *testing.T) {
	assert.Equal(t, "", DropNone.String())
	assert.Equal(t, "l", DropLowest.String())
	assert.Equal(t, "h", DropHighest.String())
}
