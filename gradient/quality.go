package gradient

// Quality score constants. The magnitude sub-score prefers gradients
// whose total norm falls in [normLow, normHigh]; outside that band the
// score ramps down linearly.
const (
	normLow   = 0.1
	normHigh  = 10.0
	decaySpan = 100.0
)

// Score rates the usefulness of a gradient computation on [0, 1] from
// the gradient magnitude and, when a positive previous loss is given,
// the relative loss improvement. It needs no ground-truth labels beyond
// the loss trajectory. prevLoss <= 0 means no previous observation.
func Score(grads Map, loss, prevLoss float64) float64 {
	var scores []float64

	totalNorm := grads.TotalNorm()
	switch {
	case totalNorm >= normLow && totalNorm <= normHigh:
		scores = append(scores, 1.0)
	case totalNorm < normLow:
		scores = append(scores, totalNorm/normLow)
	default:
		scores = append(scores, max(0, 1-(totalNorm-normHigh)/decaySpan))
	}

	if prevLoss > 0 {
		improvement := (prevLoss - loss) / prevLoss
		// No change in loss maps to 0.5, saturating at the bounds.
		scores = append(scores, min(1.0, max(0, improvement+0.5)))
	}

	var sum float64
	for _, s := range scores {
		sum += s
	}

	return sum / float64(len(scores))
}
