package metrics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/ssnmf/pkg/errors"
)

func TestMaskedFrobenius(t *testing.T) {
	T := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	E := mat.NewDense(2, 2, []float64{1, 0, 3, 0})

	// Unmasked: sqrt(2^2 + 4^2)
	got, err := MaskedFrobenius(T, E, nil)
	require.NoError(t, err)
	assert.InDelta(t, math.Sqrt(20), got, 1e-12)

	// The masked entry (0,1) no longer contributes.
	mask := mat.NewDense(2, 2, []float64{1, 0, 1, 1})
	got, err = MaskedFrobenius(T, E, mask)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, got, 1e-12)
}

func TestMaskedFrobeniusDimensionMismatch(t *testing.T) {
	T := mat.NewDense(2, 3, nil)
	E := mat.NewDense(2, 2, nil)

	_, err := MaskedFrobenius(T, E, nil)
	require.Error(t, err)
	var de *errors.DimensionError
	assert.True(t, errors.As(err, &de))

	_, err = MaskedFrobenius(T, mat.NewDense(2, 3, nil), mat.NewDense(3, 3, nil))
	require.Error(t, err)
	assert.True(t, errors.As(err, &de))
}

func TestRelativeError(t *testing.T) {
	T := mat.NewDense(2, 2, []float64{3, 0, 0, 4})
	E := mat.NewDense(2, 2, nil)

	// ||T - 0|| / ||T|| = 1
	got, err := RelativeError(T, E, nil)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, got, 1e-12)

	// Perfect reconstruction.
	got, err = RelativeError(T, T, nil)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, got, 1e-12)

	// All-zero target: defined as zero rather than dividing by zero.
	Z := mat.NewDense(2, 2, nil)
	got, err = RelativeError(Z, E, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)
}

func TestIDivergenceZeroForIdenticalMatrices(t *testing.T) {
	T := mat.NewDense(2, 3, []float64{1, 2, 0, 0.5, 4, 3})

	got, err := IDivergence(T, T, nil, 1e-10)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, got, 1e-12)
}

func TestIDivergencePositiveAndMasked(t *testing.T) {
	T := mat.NewDense(1, 2, []float64{2, 1})
	E := mat.NewDense(1, 2, []float64{1, 1})

	// D = 2*log(2) - 2 + 1 at the first entry, 0 at the second.
	got, err := IDivergence(T, E, nil, 1e-10)
	require.NoError(t, err)
	assert.InDelta(t, 2*math.Log(2)-1, got, 1e-6)

	// Masking the first entry removes its contribution.
	mask := mat.NewDense(1, 2, []float64{0, 1})
	got, err = IDivergence(T, E, mask, 1e-10)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, got, 1e-9)
}

func TestIDivergenceInvalidEps(t *testing.T) {
	T := mat.NewDense(1, 1, []float64{1})
	_, err := IDivergence(T, T, nil, 0)
	require.Error(t, err)
	var ve *errors.ValidationError
	assert.True(t, errors.As(err, &ve))
}

func TestArgmaxAccuracy(t *testing.T) {
	Y := mat.NewDense(2, 3, []float64{
		1, 0, 1,
		0, 1, 0,
	})
	Yhat := mat.NewDense(2, 3, []float64{
		0.9, 0.2, 0.1,
		0.1, 0.8, 0.6,
	})

	// Columns 0 and 1 match, column 2 does not.
	got, err := ArgmaxAccuracy(Y, Yhat, nil)
	require.NoError(t, err)
	assert.InDelta(t, 2.0/3.0, got, 1e-12)
}

func TestArgmaxAccuracyUnmaskedCountsAllColumns(t *testing.T) {
	// Without a mask every column stays in the denominator, even an
	// all-zero true label column (whose argmax is row 0).
	Y := mat.NewDense(2, 2, []float64{
		1, 0,
		0, 0,
	})
	Yhat := mat.NewDense(2, 2, []float64{
		0.9, 0.2,
		0.1, 0.8,
	})

	// Column 0 matches (row 0 vs row 0); column 1 does not (row 0 vs row 1).
	got, err := ArgmaxAccuracy(Y, Yhat, nil)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, got, 1e-12)
}

func TestArgmaxAccuracyMaskedColumnsExcluded(t *testing.T) {
	Y := mat.NewDense(2, 3, []float64{
		1, 0, 1,
		0, 1, 0,
	})
	Yhat := mat.NewDense(2, 3, []float64{
		0.9, 0.2, 0.1,
		0.1, 0.8, 0.6,
	})
	// Column 2 is unobserved: it must leave the denominator entirely.
	mask := mat.NewDense(2, 3, []float64{
		1, 1, 0,
		1, 1, 0,
	})

	got, err := ArgmaxAccuracy(Y, Yhat, mask)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, got, 1e-12)
}

func TestArgmaxAccuracyBounds(t *testing.T) {
	Y := mat.NewDense(3, 4, []float64{
		1, 0, 0, 1,
		0, 1, 0, 0,
		0, 0, 1, 0,
	})
	Yhat := mat.NewDense(3, 4, []float64{
		0.1, 0.9, 0.3, 0.2,
		0.5, 0.0, 0.3, 0.7,
		0.4, 0.1, 0.4, 0.1,
	})

	got, err := ArgmaxAccuracy(Y, Yhat, nil)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, got, 0.0)
	assert.LessOrEqual(t, got, 1.0)
}

func TestArgmaxAccuracyNoEvaluableColumns(t *testing.T) {
	Y := mat.NewDense(2, 2, []float64{1, 0, 0, 1})
	Yhat := mat.NewDense(2, 2, []float64{1, 0, 0, 1})
	mask := mat.NewDense(2, 2, nil) // nothing observed

	got, err := ArgmaxAccuracy(Y, Yhat, mask)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)
}

func TestEmptyMatrix(t *testing.T) {
	T := mat.NewDense(1, 1, nil)
	T.Set(0, 0, 1)

	_, err := MaskedFrobenius(&mat.Dense{}, &mat.Dense{}, nil)
	require.Error(t, err)
}
