package ssnmf

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/ssnmf/core/model"
	"github.com/YuminosukeSato/ssnmf/nnls"
	"github.com/YuminosukeSato/ssnmf/pkg/errors"
	"github.com/YuminosukeSato/ssnmf/pkg/log"
)

// NMF はscikit-learn互換のトランスフォーマとしての教師なしNMF。
// Fitで基底行列（Components）を学習し、Transformで新しいデータ列を
// 学習済み基底に対する非負係数に射影する。
//
// core/model.Transformerを実装する。
type NMF struct {
	model.BaseEstimator

	// NComponents はトピック数（分解のランク）
	NComponents int
	// MaxIter はFitで実行する乗法的更新の回数 (デフォルト: 200)
	MaxIter int
	// Tol は収束判定の許容誤差。最後の2イテレーション間の相対誤差変化が
	// これを超えた場合、ConvergenceWarningを発生させる (デフォルト: 1e-4)
	Tol float64
	// RandomState は乱数シード。負の場合は時刻で初期化 (デフォルト: -1)
	RandomState int64

	// Components は学習された基底行列A (f × k)
	Components *mat.Dense
	// NIter は実行されたイテレーション数
	NIter int
	// ReconstructionErr は学習終了時の相対再構成誤差
	ReconstructionErr float64

	logger log.Logger
	// FitTransformで返す学習時の表現S (k × n)
	trainS *mat.Dense
}

// NewNMF は新しいNMFトランスフォーマを作成する
func NewNMF(nComponents int) *NMF {
	return &NMF{
		NComponents: nComponents,
		MaxIter:     200,
		Tol:         1e-4,
		RandomState: -1,
		logger:      log.GetLogger(),
	}
}

// SetLogger は学習の進行を記録するロガーを設定する
func (t *NMF) SetLogger(l log.Logger) {
	if l == nil {
		l = log.NewNopLogger()
	}
	t.logger = l
}

// Fit は乗法的更新でX ≈ A·Sの基底Aを学習する
func (t *NMF) Fit(X mat.Matrix) error {
	const op = "NMF.Fit"
	if t.NComponents <= 0 {
		return errors.NewValidationError("NComponents", "must be a positive integer", t.NComponents)
	}
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.Wrap(errors.ErrEmptyData, op)
	}
	if t.logger == nil {
		t.logger = log.GetLogger()
	}

	opts := []Option{WithLogger(t.logger)}
	if t.RandomState >= 0 {
		opts = append(opts, WithRandomState(t.RandomState))
	}
	m, err := New(mat.DenseCopyOf(X), t.NComponents, opts...)
	if err != nil {
		return errors.Wrap(err, op)
	}

	hist, err := m.Mult(t.MaxIter, true)
	if err != nil {
		return errors.Wrap(err, op)
	}

	// 更新自体はεガードで保護されているが、入力由来のNaN/Infは伝播しうる
	if err := errors.CheckMatrix("factor_update", m.A, r, t.NComponents, t.MaxIter); err != nil {
		return err
	}

	if n := len(hist.Errs); n >= 2 {
		prev, last := hist.Errs[n-2], hist.Errs[n-1]
		if rel := errors.SafeDivide(prev-last, prev); rel > t.Tol {
			errors.Warn(errors.NewConvergenceWarning("NMF", t.MaxIter,
				fmt.Sprintf("relative error still decreasing by %.3g per iteration", rel)))
		}
	}

	t.Components = m.A
	t.trainS = m.S
	t.NIter = t.MaxIter
	if rel, err := m.RelReconError(); err == nil {
		t.ReconstructionErr = rel
	}
	t.SetFitted()
	return nil
}

// Transform は学習済み基底Aに対する非負係数S' (k × m) を返す。
// 各列について min_{s ≥ 0} ‖x − A·s‖ を射影勾配NNLSで解く。
func (t *NMF) Transform(X mat.Matrix) (mat.Matrix, error) {
	const op = "NMF.Transform"
	if err := t.RequireFitted("NMF", "Transform"); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	fr, _ := t.Components.Dims()
	if r != fr {
		return nil, errors.NewDimensionError(op, fr, r, 0)
	}
	if c == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, op)
	}

	// 初期解は小さい一様値。ゼロ初期化は射影勾配の停留点になる
	h0 := mat.NewDense(t.NComponents, c, nil)
	for i := 0; i < t.NComponents; i++ {
		for j := 0; j < c; j++ {
			h0.Set(i, j, 0.1)
		}
	}

	H, ok := nnls.Solve(mat.DenseCopyOf(X), t.Components, h0, nnls.DefaultConfig())
	if !ok {
		errors.Warn(errors.NewConvergenceWarning("NMF.Transform", nnls.DefaultConfig().MaxOuter,
			"NNLS projection made no sufficient-decrease step"))
	}
	return H, nil
}

// FitTransform はFitを実行し、学習時の表現S (k × n) を返す
func (t *NMF) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := t.Fit(X); err != nil {
		return nil, err
	}
	return t.trainS, nil
}

// ===========================================================================
//
//	モデルの保存と読み込み
//
// ===========================================================================

type nmfModelJSON struct {
	Name              string      `json:"name"`
	FormatVersion     string      `json:"format_version"`
	NComponents       int         `json:"n_components"`
	NIter             int         `json:"n_iter"`
	ReconstructionErr float64     `json:"reconstruction_err"`
	Rows              int         `json:"rows"`
	Components        [][]float64 `json:"components"`
}

// ExportModel は学習済みモデルをJSONファイルに保存する
func (t *NMF) ExportModel(filename string) error {
	if err := t.RequireFitted("NMF", "ExportModel"); err != nil {
		return err
	}
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()
	return t.ExportModelWriter(file)
}

// ExportModelWriter は学習済みモデルをWriterにJSON形式で書き出す
func (t *NMF) ExportModelWriter(w io.Writer) error {
	if err := t.RequireFitted("NMF", "ExportModelWriter"); err != nil {
		return err
	}

	r, k := t.Components.Dims()
	comps := make([][]float64, r)
	for i := 0; i < r; i++ {
		row := make([]float64, k)
		for j := 0; j < k; j++ {
			row[j] = t.Components.At(i, j)
		}
		comps[i] = row
	}

	out := nmfModelJSON{
		Name:              "NMF",
		FormatVersion:     "1.0",
		NComponents:       t.NComponents,
		NIter:             t.NIter,
		ReconstructionErr: t.ReconstructionErr,
		Rows:              r,
		Components:        comps,
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(&out); err != nil {
		return fmt.Errorf("failed to encode model: %w", err)
	}
	return nil
}

// LoadModel はJSONファイルから学習済みモデルを読み込む
func (t *NMF) LoadModel(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()
	return t.LoadModelReader(file)
}

// LoadModelReader はReaderから学習済みモデルを読み込む
func (t *NMF) LoadModelReader(r io.Reader) error {
	var in nmfModelJSON
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return fmt.Errorf("failed to decode model: %w", err)
	}
	if in.Name != "NMF" {
		return errors.NewValueError("NMF.LoadModelReader", fmt.Sprintf("unexpected model name %q", in.Name))
	}
	if in.NComponents <= 0 || in.Rows <= 0 || len(in.Components) != in.Rows {
		return errors.NewValueError("NMF.LoadModelReader", "inconsistent model dimensions")
	}

	comps := mat.NewDense(in.Rows, in.NComponents, nil)
	for i, row := range in.Components {
		if len(row) != in.NComponents {
			return errors.NewDimensionError("NMF.LoadModelReader", in.NComponents, len(row), 1)
		}
		for j, v := range row {
			comps.Set(i, j, v)
		}
	}

	t.NComponents = in.NComponents
	t.NIter = in.NIter
	t.ReconstructionErr = in.ReconstructionErr
	t.Components = comps
	t.trainS = nil
	t.SetFitted()
	return nil
}
