package dice

import (
	"slices"
)

// Evaluate rolls every term of expr using src and returns the RollResult.
//
// Dice are drawn in term order, then left to right within a term. Drop
// clauses act on a sorted copy of the draws; the kept dice keep their draw
// order.
//
// Precondition: expr must come from Parse (every term valid); src must be non-nil.
// Postcondition: result.Total == sum(result.Terms[i].Subtotal) + expr.Modifier.
func Evaluate(expr Expression, src Source) RollResult {
	raw := expr.Raw
	if raw == "" {
		raw = expr.String()
	}
	result := RollResult{
		Expression:   raw,
		Terms:        make([]TermResult, 0, len(expr.Terms)),
		Modifier:     expr.Modifier,
		ModifierText: modifierText(expr.Modifier),
		Total:        expr.Modifier,
		AllMax:       len(expr.Terms) > 0,
		AllMin:       len(expr.Terms) > 0,
	}
	for _, term := range expr.Terms {
		tr := rollTerm(term, src)
		result.Terms = append(result.Terms, tr)
		result.Total += tr.Subtotal
		result.AllMax = result.AllMax && tr.AllMax
		result.AllMin = result.AllMin && tr.AllMin
	}
	return result
}

// rollTerm draws term.Count dice and applies the drop clause.
func rollTerm(term DiceTerm, src Source) TermResult {
	rolled := make([]int, term.Count)
	for i := range rolled {
		rolled[i] = src.Intn(term.Faces) + 1
	}

	tr := TermResult{Term: term, Kept: rolled}
	if term.Drop != DropNone {
		sorted := slices.Clone(rolled)
		slices.Sort(sorted)
		if term.Drop == DropHighest {
			slices.Reverse(sorted)
		}
		tr.Dropped = slices.Clone(sorted[:term.DropCount])
		tr.Kept = without(rolled, tr.Dropped)
	}

	tr.AllMax, tr.AllMin = true, true
	for _, v := range tr.Kept {
		tr.Subtotal += v
		tr.AllMax = tr.AllMax && v == term.Faces
		tr.AllMin = tr.AllMin && v == 1
	}
	if term.Negate {
		tr.Subtotal = -tr.Subtotal
	}
	return tr
}

// without returns rolled minus one occurrence of each value in dropped,
// preserving the order of rolled.
func without(rolled, dropped []int) []int {
	pending := make(map[int]int, len(dropped))
	for _, v := range dropped {
		pending[v]++
	}
	kept := make([]int, 0, len(rolled)-len(dropped))
	for _, v := range rolled {
		if pending[v] > 0 {
			pending[v]--
			continue
		}
		kept = append(kept, v)
	}
	return kept
}

// RollSuccess performs a percentile success-threshold check: one draw in
// [1, 100] fails when it exceeds 100 - thresholdPercent. A higher threshold
// therefore widens the success band.
//
// Precondition: src must be non-nil.
// Postcondition: result.Success == (result.Roll <= 100 - thresholdPercent).
func RollSuccess(thresholdPercent int, src Source) SuccessResult {
	roll := src.Intn(100) + 1
	return SuccessResult{
		Threshold: thresholdPercent,
		Roll:      roll,
		Success:   roll <= 100-thresholdPercent,
	}
}

// RollExpr parses expr and rolls it using src in a single call.
//
// Precondition: src must be non-nil.
// Postcondition: Returns a RollResult or an error wrapping ErrSyntax.
func RollExpr(expr string, src Source) (RollResult, error) {
	e, err := Parse(expr)
	if err != nil {
		return RollResult{}, err
	}
	return Evaluate(e, src), nil
}
