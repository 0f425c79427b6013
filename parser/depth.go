package parser

// defaultExpressionDepthLimit mirrors the teacher's maxRecursion constant
// (parser/parser.go), generalized into a configurable option
// (spec.md §4.9, §6.1 "expressionDepthLimit?").
const defaultExpressionDepthLimit = 150

// depthLimiter counts expression nesting (parseExpression brackets each
// call with enter/leave) and raises exactly one diagnostic at the threshold
// (spec.md §4.9). Block nesting is not counted.
type depthLimiter struct {
	limit   int
	depth   int
	reached bool
}

func newDepthLimiter(limit int) *depthLimiter {
	if limit <= 0 {
		limit = defaultExpressionDepthLimit
	}
	return &depthLimiter{limit: limit}
}

// enter increments depth and reports whether the limit was just exceeded
// for the first time (the caller logs the diagnostic using the returned
// bool so the message carries the triggering span).
func (d *depthLimiter) enter() (overLimit bool) {
	d.depth++
	if d.depth > d.limit && !d.reached {
		d.reached = true
		return true
	}
	return false
}

func (d *depthLimiter) leave() {
	if d.depth > 0 {
		d.depth--
	}
}
