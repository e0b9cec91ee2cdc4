package ml

// ClassMetrics holds one class's evaluation scores.
type ClassMetrics struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

// Report is an evaluation over a held-out split: per-class scores plus
// support-weighted averages and overall accuracy.
type Report struct {
	Accuracy          float64                 `json:"accuracy"`
	Classes           map[string]ClassMetrics `json:"classes"`
	WeightedPrecision float64                 `json:"weighted_precision"`
	WeightedRecall    float64                 `json:"weighted_recall"`
	WeightedF1        float64                 `json:"weighted_f1"`
	Samples           int                     `json:"samples"`
}

// Evaluate scores binary predictions against true labels.
func Evaluate(predicted, actual []float64) *Report {
	report := &Report{Classes: make(map[string]ClassMetrics), Samples: len(actual)}
	if len(actual) == 0 || len(predicted) != len(actual) {
		return report
	}

	var correct int
	for i := range actual {
		if predicted[i] == actual[i] {
			correct++
		}
	}
	report.Accuracy = float64(correct) / float64(len(actual))

	for _, class := range []float64{0, 1} {
		var tp, fp, fn, support int
		for i := range actual {
			predPos := predicted[i] == class
			actualPos := actual[i] == class
			if actualPos {
				support++
			}
			switch {
			case predPos && actualPos:
				tp++
			case predPos && !actualPos:
				fp++
			case !predPos && actualPos:
				fn++
			}
		}
		m := ClassMetrics{Support: support}
		if tp+fp > 0 {
			m.Precision = float64(tp) / float64(tp+fp)
		}
		if tp+fn > 0 {
			m.Recall = float64(tp) / float64(tp+fn)
		}
		if m.Precision+m.Recall > 0 {
			m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
		}
		report.Classes[className(class)] = m

		weight := float64(support) / float64(len(actual))
		report.WeightedPrecision += weight * m.Precision
		report.WeightedRecall += weight * m.Recall
		report.WeightedF1 += weight * m.F1
	}
	return report
}

func className(class float64) string {
	if class == 1 {
		return "1"
	}
	return "0"
}
