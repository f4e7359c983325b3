package dice

import "go.uber.org/zap"

// Roller wraps a Source and logger to provide logged dice rolling.
// All rolls are logged at debug level with expression, dice values, modifier, and total.
type Roller struct {
	src    Source
	logger *zap.Logger
}

// NewLoggedRoller creates a Roller that rolls with src and logs each roll to logger.
//
// Precondition: src and logger must be non-nil.
func NewLoggedRoller(src Source, logger *zap.Logger) *Roller {
	return &Roller{src: src, logger: logger}
}

// Roll evaluates expr and logs the result at debug level.
//
// Precondition: expr must come from Parse.
// Postcondition: result logged; result.Total == sum of subtotals + modifier.
func (r *Roller) Roll(expr Expression) RollResult {
	result := Evaluate(expr, r.src)
	var dropped []int
	for _, tr := range result.Terms {
		dropped = append(dropped, tr.Dropped...)
	}
	r.logger.Debug("dice roll",
		zap.String("expression", result.Expression),
		zap.Ints("dice", result.Dice()),
		zap.Ints("dropped", dropped),
		zap.Int("modifier", result.Modifier),
		zap.Int("total", result.Total),
	)
	return result
}

// RollExpr parses expr and rolls it, logging the result.
//
// Postcondition: Returns a RollResult or an error wrapping ErrSyntax.
func (r *Roller) RollExpr(expr string) (RollResult, error) {
	e, err := Parse(expr)
	if err != nil {
		return RollResult{}, err
	}
	return r.Roll(e), nil
}

// RollSuccess performs a logged percentile check against thresholdPercent.
//
// Postcondition: result.Success == (result.Roll <= 100 - thresholdPercent).
func (r *Roller) RollSuccess(thresholdPercent int) SuccessResult {
	result := RollSuccess(thresholdPercent, r.src)
	r.logger.Debug("success check",
		zap.Int("threshold", result.Threshold),
		zap.Int("roll", result.Roll),
		zap.Bool("success", result.Success),
	)
	return result
}
