package pipeline

import (
	"fmt"
	"io"
)

// Reporter writes the line-oriented diagnostic channel.
type Reporter struct {
	w io.Writer
}

// NewReporter returns a Reporter writing to w. A nil w discards output.
func NewReporter(w io.Writer) *Reporter {
	if w == nil {
		w = io.Discard
	}
	return &Reporter{w: w}
}

// Println writes one status line.
func (r *Reporter) Println(msg string) {
	fmt.Fprintln(r.w, msg)
}

// Scores writes one line per class with the score as a percentage.
func (r *Reporter) Scores(scores []float32) {
	for i, s := range scores {
		fmt.Fprintf(r.w, "Class[%d] = %.2f %%\n", i, s*100)
	}
}

// Prediction writes the summary line for res.
func (r *Reporter) Prediction(res Result) {
	fmt.Fprintf(r.w, "The predicted number is: %d (%.2f %%)\n", res.Label, res.Confidence*100)
}
