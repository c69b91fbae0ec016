package features

import (
	"fmt"
	"sort"

	"credibility-scanner/metrics"
)

// MismatchError reports a feature vector whose length disagrees with what
// the model was fit on.
type MismatchError struct {
	Got  int
	Want int
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("Feature mismatch: %d provided, %d expected", e.Got, e.Want)
}

// Aligner turns rows into vectors laid out in schema order.
type Aligner struct {
	names []string
}

func NewAligner(s *Schema) *Aligner {
	names := make([]string, len(s.FeatureNames))
	copy(names, s.FeatureNames)
	return &Aligner{names: names}
}

func (a *Aligner) Len() int { return len(a.names) }

// Columns expands row into named columns: numeric fields keep their name,
// categorical fields become "<field>_<value>" indicators set to 1.
func Columns(row Row) map[string]float64 {
	cols := make(map[string]float64, len(row))
	for name, v := range row {
		switch v.Kind {
		case Numeric:
			cols[name] = v.Num
		case Categorical:
			cols[name+"_"+v.Str] = 1
		}
	}
	return cols
}

// Vector lays row out in schema order. Columns the schema does not know are
// dropped and schema columns the row does not produce are zero.
func (a *Aligner) Vector(row Row) []float64 {
	cols := Columns(WithAgeBucket(row))
	vec := make([]float64, len(a.names))
	for i, name := range a.names {
		vec[i] = cols[name]
	}
	return vec
}

// Align builds the vector and checks it against the model's declared input
// size. A mismatch is returned as *MismatchError.
func (a *Aligner) Align(row Row, inputDim int) ([]float64, error) {
	vec := a.Vector(row)
	if len(vec) != inputDim {
		metrics.FeatureMismatches.Inc()
		return nil, &MismatchError{Got: len(vec), Want: inputDim}
	}
	return vec, nil
}

// Unknown lists, sorted, the expanded columns of row that the schema drops.
func (a *Aligner) Unknown(row Row) []string {
	known := make(map[string]bool, len(a.names))
	for _, n := range a.names {
		known[n] = true
	}
	var out []string
	for name := range Columns(WithAgeBucket(row)) {
		if !known[name] {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
