package features

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Schema is the frozen, ordered list of columns the classifier was fit on.
type Schema struct {
	NFeaturesIn  int      `yaml:"n_features_in"`
	FeatureNames []string `yaml:"feature_names"`
}

func LoadSchema(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	return ParseSchema(data)
}

// ParseSchema decodes a schema file. When the name list is longer than
// n_features_in it is cut down to the first n_features_in names, which is
// how exported name files that outgrew their model are reconciled.
func ParseSchema(data []byte) (*Schema, error) {
	var s Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	if len(s.FeatureNames) == 0 {
		return nil, fmt.Errorf("parse schema: no feature names")
	}
	if s.NFeaturesIn == 0 {
		s.NFeaturesIn = len(s.FeatureNames)
	}
	if len(s.FeatureNames) < s.NFeaturesIn {
		return nil, &MismatchError{Got: len(s.FeatureNames), Want: s.NFeaturesIn}
	}
	s.FeatureNames = s.FeatureNames[:s.NFeaturesIn]

	seen := make(map[string]bool, len(s.FeatureNames))
	for _, n := range s.FeatureNames {
		if seen[n] {
			return nil, fmt.Errorf("parse schema: duplicate feature %q", n)
		}
		seen[n] = true
	}
	return &s, nil
}
