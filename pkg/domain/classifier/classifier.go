// Package classifier wraps the frozen transport-mode model. The artifact is a
// JSON-serialized gradient-boosted tree ensemble whose feature order and
// label-index contract are fixed at training time and versioned with this
// repository.
package classifier

import (
	"encoding/json"
	"fmt"

	"github.com/carbonpath/server/pkg/domain/features"
	"github.com/carbonpath/server/pkg/geo"
	"github.com/carbonpath/server/pkg/types"
)

// Labels is the index-to-name mapping the artifact was trained against.
// Any mismatch between training-time and inference-time order is a
// silent-corruption risk, so the table is pinned here and the artifact's
// class count is validated against it at load time.
var Labels = [...]string{"subway", "bus", "car", "airplane"}

// ClassificationError reports that the model artifact could not be loaded or
// produced an index outside the label table. Fatal to the run: without
// classification no transport can be completed.
type ClassificationError struct {
	Reason string
	Err    error
}

func (e *ClassificationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("classification: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("classification: %s", e.Reason)
}

func (e *ClassificationError) Unwrap() error {
	return e.Err
}

// treeNode arrays describe one regression tree. A node is a leaf when its
// children are -1; Value then holds the leaf score (learning rate folded in
// at export time).
type tree struct {
	Feature   []int     `json:"feature"`
	Threshold []float64 `json:"threshold"`
	Left      []int     `json:"left"`
	Right     []int     `json:"right"`
	Value     []float64 `json:"value"`
}

func (t *tree) score(v features.Vector) float64 {
	node := 0
	for t.Left[node] != -1 {
		if v[t.Feature[node]] <= t.Threshold[node] {
			node = t.Left[node]
		} else {
			node = t.Right[node]
		}
	}
	return t.Value[node]
}

// artifact is the serialized ensemble: per-class prior scores plus boosting
// stages of one tree per class.
type artifact struct {
	Version     string    `json:"version"`
	NumFeatures int       `json:"n_features"`
	NumClasses  int       `json:"n_classes"`
	InitScores  []float64 `json:"init_scores"`
	Stages      [][]tree  `json:"stages"`
}

// Classifier maps a feature vector to a transport-mode label.
type Classifier struct {
	model artifact
}

// Load parses a model artifact blob. Validates the artifact's shape against
// the pinned feature and label contracts.
func Load(data []byte) (*Classifier, error) {
	var m artifact
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, &ClassificationError{Reason: "parse model artifact", Err: err}
	}
	if m.NumFeatures != features.VectorLen {
		return nil, &ClassificationError{Reason: fmt.Sprintf("artifact expects %d features, builder produces %d", m.NumFeatures, features.VectorLen)}
	}
	if m.NumClasses != len(Labels) {
		return nil, &ClassificationError{Reason: fmt.Sprintf("artifact has %d classes, label table has %d", m.NumClasses, len(Labels))}
	}
	if len(m.InitScores) != m.NumClasses {
		return nil, &ClassificationError{Reason: "init score count does not match class count"}
	}
	for i, stage := range m.Stages {
		if len(stage) != m.NumClasses {
			return nil, &ClassificationError{Reason: fmt.Sprintf("stage %d has %d trees, want one per class", i, len(stage))}
		}
	}
	return &Classifier{model: m}, nil
}

// Predict returns the label index for a feature vector: per-class boosted
// scores, argmax.
func (c *Classifier) Predict(v features.Vector) int {
	scores := make([]float64, c.model.NumClasses)
	copy(scores, c.model.InitScores)
	for _, stage := range c.model.Stages {
		for k := range stage {
			scores[k] += stage[k].score(v)
		}
	}

	best := 0
	for k := 1; k < len(scores); k++ {
		if scores[k] > scores[best] {
			best = k
		}
	}
	return best
}

// Classify builds the feature vector for a transport candidate and maps the
// predicted index to a mode label. Feature-shape problems propagate as
// MalformedTransportError from the builder.
func (c *Classifier) Classify(transport types.Activity, stationPoints []geo.Point) (string, error) {
	v, err := features.Build(transport, stationPoints)
	if err != nil {
		return "", err
	}

	idx := c.Predict(v)
	if idx < 0 || idx >= len(Labels) {
		return "", &ClassificationError{Reason: fmt.Sprintf("predicted index %d out of label range", idx)}
	}
	return Labels[idx], nil
}
