package dataset

import (
	"fmt"
	"time"
)

// Description is attached to every dataset pushed to the registry.
const Description = "Dataset for evaluating Compass API agent responses."

// Case is one evaluation case: a question with its reference answer and
// the ordered tool names a correct agent is expected to call.
type Case struct {
	Question   string   `yaml:"question" json:"question"`
	Answer     string   `yaml:"answer" json:"answer"`
	Trajectory []string `yaml:"trajectory" json:"trajectory"`
}

// Fixture mirrors the on-disk dataset layout.
type Fixture struct {
	Tests []Case `yaml:"tests" json:"tests"`
}

// DatasetName builds the registry name for a fixture evaluated on the given day.
func DatasetName(path string, date time.Time) string {
	return fmt.Sprintf("Eval:%s:%s", path, date.Format("2006-01-02"))
}
