package pipeline

// Result is the outcome of one classification.
type Result struct {
	Label      int
	Confidence float32
}

// Classify returns the arg-max of scores. Ties resolve to the lowest index.
// scores must not be empty.
func Classify(scores []float32) Result {
	best := Result{Label: 0, Confidence: scores[0]}
	for i := 1; i < len(scores); i++ {
		if scores[i] > best.Confidence {
			best = Result{Label: i, Confidence: scores[i]}
		}
	}
	return best
}
