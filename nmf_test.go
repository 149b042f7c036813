package ssnmf

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/ssnmf/core/model"
	"github.com/YuminosukeSato/ssnmf/pkg/errors"
)

var _ model.Transformer = (*NMF)(nil)

func TestNMFFitTransform(t *testing.T) {
	X := randTestMatrix(12, 16, 40)

	nmf := NewNMF(4)
	nmf.RandomState = 41
	nmf.MaxIter = 60

	S, err := nmf.FitTransform(X)
	require.NoError(t, err)
	require.True(t, nmf.IsFitted())

	sr, sc := S.Dims()
	assert.Equal(t, 4, sr)
	assert.Equal(t, 16, sc)

	cr, ck := nmf.Components.Dims()
	assert.Equal(t, 12, cr)
	assert.Equal(t, 4, ck)
	assert.Greater(t, nmf.NIter, 0)
	assert.GreaterOrEqual(t, nmf.ReconstructionErr, 0.0)
}

func TestNMFTransformNewData(t *testing.T) {
	X := randTestMatrix(10, 14, 42)

	nmf := NewNMF(3)
	nmf.RandomState = 43
	nmf.MaxIter = 80
	require.NoError(t, nmf.Fit(X))

	// Project two unseen columns onto the learned basis.
	Xnew := randTestMatrix(10, 2, 44)
	H, err := nmf.Transform(Xnew)
	require.NoError(t, err)

	hr, hc := H.Dims()
	assert.Equal(t, 3, hr)
	assert.Equal(t, 2, hc)

	for i := 0; i < hr; i++ {
		for j := 0; j < hc; j++ {
			assert.GreaterOrEqual(t, H.At(i, j), 0.0, "projection must stay non-negative")
		}
	}
}

func TestNMFTransformBeforeFit(t *testing.T) {
	nmf := NewNMF(3)
	_, err := nmf.Transform(randTestMatrix(5, 2, 45))
	require.Error(t, err)
	var nfe *errors.NotFittedError
	assert.True(t, errors.As(err, &nfe))
}

func TestNMFTransformDimensionMismatch(t *testing.T) {
	X := randTestMatrix(8, 10, 46)
	nmf := NewNMF(2)
	nmf.RandomState = 47
	require.NoError(t, nmf.Fit(X))

	_, err := nmf.Transform(randTestMatrix(9, 3, 48))
	require.Error(t, err)
	var de *errors.DimensionError
	assert.True(t, errors.As(err, &de))
}

func TestNMFInvalidComponents(t *testing.T) {
	nmf := NewNMF(0)
	err := nmf.Fit(randTestMatrix(5, 5, 49))
	require.Error(t, err)
	var ve *errors.ValidationError
	assert.True(t, errors.As(err, &ve))
}

func TestNMFExportLoadRoundTrip(t *testing.T) {
	X := randTestMatrix(6, 8, 50)
	nmf := NewNMF(2)
	nmf.RandomState = 51
	require.NoError(t, nmf.Fit(X))

	var buf bytes.Buffer
	require.NoError(t, nmf.ExportModelWriter(&buf))

	loaded := NewNMF(0)
	require.NoError(t, loaded.LoadModelReader(&buf))

	assert.True(t, loaded.IsFitted())
	assert.Equal(t, nmf.NComponents, loaded.NComponents)
	assert.Equal(t, nmf.NIter, loaded.NIter)
	assert.True(t, mat.EqualApprox(nmf.Components, loaded.Components, 1e-12))

	// The loaded model can project data without refitting.
	H, err := loaded.Transform(randTestMatrix(6, 1, 52))
	require.NoError(t, err)
	hr, _ := H.Dims()
	assert.Equal(t, 2, hr)
}

func TestNMFExportBeforeFit(t *testing.T) {
	nmf := NewNMF(2)
	var buf bytes.Buffer
	err := nmf.ExportModelWriter(&buf)
	require.Error(t, err)
	var nfe *errors.NotFittedError
	assert.True(t, errors.As(err, &nfe))
}

func TestNMFConvergenceWarning(t *testing.T) {
	var mu sync.Mutex
	var warned []error
	errors.SetWarningHandler(func(w error) {
		mu.Lock()
		defer mu.Unlock()
		warned = append(warned, w)
	})
	t.Cleanup(func() { errors.SetWarningHandler(nil) })

	X := randTestMatrix(20, 30, 53)
	nmf := NewNMF(5)
	nmf.RandomState = 54
	nmf.MaxIter = 2 // far too few iterations to converge
	require.NoError(t, nmf.Fit(X))

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, warned, "expected a convergence warning")
	var cw *errors.ConvergenceWarning
	assert.True(t, errors.As(warned[0], &cw))
}
