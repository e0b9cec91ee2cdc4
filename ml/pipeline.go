package ml

import (
	"errors"
	"fmt"
	"math"
)

// Transformer is one fit/transform stage. Fit learns parameters from
// training rows; Transform applies the frozen parameters to any rows.
type Transformer interface {
	Fit(rows [][]float64) error
	Transform(rows [][]float64) ([][]float64, error)
}

// Pipeline applies an ordered sequence of transformers. Fit fits each stage
// on the output of the previous stages, training rows only; refitting
// replaces all frozen parameters.
type Pipeline struct {
	steps []Transformer
}

func NewPipeline(steps ...Transformer) *Pipeline {
	return &Pipeline{steps: steps}
}

func (p *Pipeline) Fit(rows [][]float64) error {
	_, err := p.FitTransform(rows)
	return err
}

func (p *Pipeline) FitTransform(rows [][]float64) ([][]float64, error) {
	current := rows
	for i, step := range p.steps {
		if err := step.Fit(current); err != nil {
			return nil, fmt.Errorf("fit step %d: %w", i, err)
		}
		transformed, err := step.Transform(current)
		if err != nil {
			return nil, fmt.Errorf("transform step %d: %w", i, err)
		}
		current = transformed
	}
	return current, nil
}

func (p *Pipeline) Transform(rows [][]float64) ([][]float64, error) {
	current := rows
	for i, step := range p.steps {
		transformed, err := step.Transform(current)
		if err != nil {
			return nil, fmt.Errorf("transform step %d: %w", i, err)
		}
		current = transformed
	}
	return current, nil
}

// StandardScaler rescales each column to zero mean and unit variance using
// parameters frozen at Fit time. Zero-variance columns divide by 1.
type StandardScaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

func (s *StandardScaler) Fit(rows [][]float64) error {
	if len(rows) == 0 {
		return errors.New("no rows to fit")
	}
	width := len(rows[0])
	mean := make([]float64, width)
	scale := make([]float64, width)

	for _, row := range rows {
		if len(row) != width {
			return errors.New("ragged rows")
		}
		for j, v := range row {
			mean[j] += v
		}
	}
	n := float64(len(rows))
	for j := range mean {
		mean[j] /= n
	}
	for _, row := range rows {
		for j, v := range row {
			d := v - mean[j]
			scale[j] += d * d
		}
	}
	for j := range scale {
		scale[j] = math.Sqrt(scale[j] / n)
		if scale[j] == 0 {
			scale[j] = 1
		}
	}

	s.Mean = mean
	s.Scale = scale
	return nil
}

func (s *StandardScaler) Transform(rows [][]float64) ([][]float64, error) {
	if s.Mean == nil {
		return nil, errors.New("scaler not fitted")
	}
	out := make([][]float64, len(rows))
	for i, row := range rows {
		if len(row) != len(s.Mean) {
			return nil, fmt.Errorf("row %d has %d columns, scaler fitted on %d", i, len(row), len(s.Mean))
		}
		scaled := make([]float64, len(row))
		for j, v := range row {
			scaled[j] = (v - s.Mean[j]) / s.Scale[j]
		}
		out[i] = scaled
	}
	return out, nil
}
