package trajectory

// ScoreKey identifies trajectory scores in results and stored feedback.
const ScoreKey = "trajectory_score"

// LengthMismatchComment is attached when the observed and reference trajectories differ in length.
const LengthMismatchComment = "Length of trajectories differ."

// Score is the outcome of comparing one observed trajectory against its reference.
type Score struct {
	Key     string  `json:"key"`
	Value   float64 `json:"score"`
	Comment string  `json:"comment,omitempty"`
}

// Compare scores an observed tool-call sequence against a reference sequence.
//
// Sequences of different length score 0. Otherwise the score is the fraction of
// positions holding the same tool name. Two empty sequences are identical and score 1.
func Compare(observed, reference []string) Score {
	if len(observed) != len(reference) {
		return Score{Key: ScoreKey, Value: 0, Comment: LengthMismatchComment}
	}
	if len(observed) == 0 {
		return Score{Key: ScoreKey, Value: 1}
	}
	matches := 0
	for i := range observed {
		if observed[i] == reference[i] {
			matches++
		}
	}
	return Score{Key: ScoreKey, Value: float64(matches) / float64(len(observed))}
}

// Perfect reports whether the score counts as a full match.
func (s Score) Perfect() bool {
	return s.Value >= 1
}
