package domain

// Guided-mode thresholds, as percentages of topics covered.
const (
	GuidedGenerateThreshold = 60
	GuidedReadyThreshold    = 80
)

// GuidedProgress is the model's self-reported topic coverage.
// It is a display hint only and never gates an action.
type GuidedProgress struct {
	Covered int `json:"covered"`
	Total   int `json:"total"`
}

// Percent returns coverage as an integer percentage clamped to [0, 100].
func (p GuidedProgress) Percent() int {
	if p.Total <= 0 || p.Covered <= 0 {
		return 0
	}
	if p.Covered >= p.Total {
		return 100
	}
	return p.Covered * 100 / p.Total
}

// CanGenerate reports whether coverage reached the generation threshold.
func (p GuidedProgress) CanGenerate() bool {
	return p.Percent() >= GuidedGenerateThreshold
}

// Ready reports whether coverage reached the ready threshold.
func (p GuidedProgress) Ready() bool {
	return p.Percent() >= GuidedReadyThreshold
}
