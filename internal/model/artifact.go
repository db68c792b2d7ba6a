package model

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ArtifactName is the file the trained model is saved under.
const ArtifactName = "fraud_model.json"

// Artifact is the persisted model: the forest, the encoders it was
// fit with, the ordered feature names, and the evaluation metrics of
// the training run.
type Artifact struct {
	FeatureNames []string  `json:"feature_names"`
	Encoders     Encoders  `json:"encoders"`
	Forest       *Forest   `json:"forest"`
	Threshold    float64   `json:"threshold"`
	TrainedAt    time.Time `json:"trained_at"`
	Metrics      Metrics   `json:"metrics"`
}

// Save writes the artifact as JSON, replacing any previous file
// atomically via rename.
func (a *Artifact) Save(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create model dir: %w", err)
	}
	data, err := json.Marshal(a)
	if err != nil {
		return "", fmt.Errorf("marshal model: %w", err)
	}

	path := filepath.Join(dir, ArtifactName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("write model: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("replace model: %w", err)
	}
	return path, nil
}

// LoadArtifact reads a saved model and verifies its feature vector
// matches the one this build produces. A mismatch means the artifact
// predates a feature change and must not be used for scoring.
func LoadArtifact(dir string) (*Artifact, error) {
	path := filepath.Join(dir, ArtifactName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("unmarshal model: %w", err)
	}

	if len(a.FeatureNames) != len(FeatureNames) {
		return nil, fmt.Errorf("%w: artifact has %d features, scorer builds %d",
			ErrFeatureMismatch, len(a.FeatureNames), len(FeatureNames))
	}
	for i, name := range a.FeatureNames {
		if name != FeatureNames[i] {
			return nil, fmt.Errorf("%w: artifact feature %d is %q, scorer builds %q",
				ErrFeatureMismatch, i, name, FeatureNames[i])
		}
	}
	if a.Forest == nil || len(a.Forest.Trees) == 0 {
		return nil, fmt.Errorf("model artifact %s has no trees", path)
	}
	return &a, nil
}
