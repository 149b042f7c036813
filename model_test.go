package ssnmf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/ssnmf/pkg/errors"
)

func TestNewDefaults(t *testing.T) {
	X := mat.NewDense(6, 8, nil)
	for i := 0; i < 6; i++ {
		for j := 0; j < 8; j++ {
			X.Set(i, j, float64(i+j)/10)
		}
	}

	m, err := New(X, 3, WithRandomState(1))
	require.NoError(t, err)

	ar, ac := m.A.Dims()
	assert.Equal(t, 6, ar)
	assert.Equal(t, 3, ac)
	sr, sc := m.S.Dims()
	assert.Equal(t, 3, sr)
	assert.Equal(t, 8, sc)

	assert.Nil(t, m.Y)
	assert.Nil(t, m.B)
	assert.Nil(t, m.W)
	assert.Nil(t, m.L)
	assert.False(t, m.Supervised())
	assert.Equal(t, DefaultEpsilon, m.Epsilon())

	// Random initialization must be non-negative
	for i := 0; i < ar; i++ {
		for j := 0; j < ac; j++ {
			assert.GreaterOrEqual(t, m.A.At(i, j), 0.0)
		}
	}
}

func TestNewReproducibleWithSeed(t *testing.T) {
	X := mat.NewDense(4, 5, nil)
	X.Set(0, 0, 1)

	m1, err := New(X, 2, WithRandomState(7))
	require.NoError(t, err)
	m2, err := New(X, 2, WithRandomState(7))
	require.NoError(t, err)

	assert.True(t, mat.Equal(m1.A, m2.A))
	assert.True(t, mat.Equal(m1.S, m2.S))
}

func TestNewInvalidRank(t *testing.T) {
	X := mat.NewDense(3, 3, nil)

	for _, k := range []int{0, -1} {
		_, err := New(X, k)
		require.Error(t, err)
		var ve *errors.ValidationError
		assert.True(t, errors.As(err, &ve), "expected ValidationError for k=%d", k)
	}
}

func TestNewShapeMismatch(t *testing.T) {
	// Mismatched X (3x5) and A (4x2) with k=2 must fail with a dimension error.
	X := mat.NewDense(3, 5, nil)
	A := mat.NewDense(4, 2, nil)
	S := mat.NewDense(2, 5, nil)

	_, err := New(X, 2, WithFactors(A, S))
	require.Error(t, err)
	var de *errors.DimensionError
	assert.True(t, errors.As(err, &de))
	assert.Equal(t, 0, de.Axis)
}

func TestNewShapeMismatchTable(t *testing.T) {
	X := mat.NewDense(3, 4, nil)
	Y := mat.NewDense(2, 4, nil)

	tests := []struct {
		name string
		opts []Option
	}{
		{"S rows != k", []Option{WithFactors(mat.NewDense(3, 2, nil), mat.NewDense(3, 4, nil))}},
		{"S cols != n", []Option{WithFactors(mat.NewDense(3, 2, nil), mat.NewDense(2, 5, nil))}},
		{"A cols != k", []Option{WithFactors(mat.NewDense(3, 3, nil), mat.NewDense(2, 4, nil))}},
		{"Y cols != n", []Option{WithLabels(mat.NewDense(2, 5, nil), 1)}},
		{"B rows != classes", []Option{WithLabels(Y, 1), WithLabelFactor(mat.NewDense(3, 2, nil))}},
		{"B cols != k", []Option{WithLabels(Y, 1), WithLabelFactor(mat.NewDense(2, 3, nil))}},
		{"W shape", []Option{WithDataMask(mat.NewDense(3, 5, nil))}},
		{"L shape", []Option{WithLabels(Y, 1), WithLabelMask(mat.NewDense(3, 4, nil))}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(X, 2, tt.opts...)
			require.Error(t, err)
			var de *errors.DimensionError
			assert.True(t, errors.As(err, &de), "expected DimensionError, got %v", err)
		})
	}
}

func TestNewLabelOptionsWithoutY(t *testing.T) {
	X := mat.NewDense(3, 4, nil)

	_, err := New(X, 2, WithLabelFactor(mat.NewDense(2, 2, nil)))
	require.Error(t, err)
	var ve *errors.ValueError
	assert.True(t, errors.As(err, &ve))

	_, err = New(X, 2, WithLabelMask(mat.NewDense(2, 4, nil)))
	require.Error(t, err)
	assert.True(t, errors.As(err, &ve))
}

func TestNewNegativeLam(t *testing.T) {
	X := mat.NewDense(3, 4, nil)
	Y := mat.NewDense(2, 4, nil)

	_, err := New(X, 2, WithLabels(Y, -0.5))
	require.Error(t, err)
	var ve *errors.ValidationError
	assert.True(t, errors.As(err, &ve))
}

func TestNewSupervisedDefaults(t *testing.T) {
	X := mat.NewDense(3, 4, nil)
	Y := mat.NewDense(2, 4, nil)

	m, err := New(X, 2, WithLabels(Y, 1), WithRandomState(3))
	require.NoError(t, err)
	require.True(t, m.Supervised())

	br, bc := m.B.Dims()
	assert.Equal(t, 2, br)
	assert.Equal(t, 2, bc)
	assert.Equal(t, 1.0, m.Lam)
}

func TestDiagnosticsRequireLabels(t *testing.T) {
	X := mat.NewDense(3, 4, nil)
	X.Set(1, 1, 1)
	m, err := New(X, 2, WithRandomState(1))
	require.NoError(t, err)

	_, err = m.Accuracy()
	require.Error(t, err)
	var ve *errors.ValueError
	assert.True(t, errors.As(err, &ve))

	_, err = m.KLDiv()
	require.Error(t, err)
	assert.True(t, errors.As(err, &ve))

	// Reconstruction diagnostics are always available.
	_, err = m.ReconError()
	assert.NoError(t, err)
	_, err = m.RelReconError()
	assert.NoError(t, err)
}
