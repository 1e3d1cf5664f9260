// Package artifact bundles a trained model with the schema it was trained on.
//
// An artifact is the single unit passed from training to serving. It is
// validated once on load and treated as immutable afterwards.
package artifact

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/okian/sackline/internal/domain/schema"
	"github.com/okian/sackline/internal/domain/scoring"
)

// CalibrationBin is one bucket of the calibration table.
type CalibrationBin struct {
	Lower         float64 `json:"lower"`
	Upper         float64 `json:"upper"`
	Count         int     `json:"count"`
	MeanPredicted float64 `json:"mean_predicted"`
	ObservedRate  float64 `json:"observed_rate"`
}

// FeatureImportance is the total split gain of one column.
type FeatureImportance struct {
	Feature string  `json:"feature"`
	Gain    float64 `json:"gain"`
}

// Evaluation summarizes held-out performance.
type Evaluation struct {
	TrainRows   int                 `json:"train_rows"`
	TestRows    int                 `json:"test_rows"`
	Prevalence  float64             `json:"prevalence"`
	Brier       float64             `json:"brier"`
	LogLoss     float64             `json:"log_loss"`
	AUC         float64             `json:"auc"`
	Calibration []CalibrationBin    `json:"calibration"`
	Importance  []FeatureImportance `json:"importance"`
}

// Artifact is a versioned schema, model and evaluation.
type Artifact struct {
	Version    string            `json:"version"` // schema version
	CreatedAt  time.Time         `json:"created_at"`
	Schema     *schema.Schema    `json:"schema"`
	Model      *scoring.Ensemble `json:"model"`
	Evaluation Evaluation        `json:"evaluation"`
}

// New assembles and validates an artifact.
func New(s *schema.Schema, m *scoring.Ensemble, eval Evaluation, createdAt time.Time) (*Artifact, error) {
	a := &Artifact{
		CreatedAt:  createdAt.UTC(),
		Schema:     s,
		Model:      m,
		Evaluation: eval,
	}
	if s != nil {
		a.Version = s.Version
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

// Validate checks that the model was trained on exactly this schema.
func (a *Artifact) Validate() error {
	if a.Schema == nil || a.Model == nil {
		return fmt.Errorf("%w: schema and model are required", ErrMalformed)
	}
	if err := a.Schema.Check(); err != nil {
		return err
	}
	if err := a.Model.Validate(); err != nil {
		return err
	}
	if a.Model.Width != a.Schema.Width() {
		return fmt.Errorf("%w: model width %d, schema width %d", ErrIncompatible, a.Model.Width, a.Schema.Width())
	}
	if a.Version != a.Schema.Version {
		return fmt.Errorf("%w: version %q, schema version %q", ErrIncompatible, a.Version, a.Schema.Version)
	}
	return nil
}

// Write encodes a as indented JSON.
func (a *Artifact) Write(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(a)
}

// Read decodes and validates an artifact.
func Read(r io.Reader) (*Artifact, error) {
	var a Artifact
	if err := json.NewDecoder(r).Decode(&a); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return &a, nil
}
