package ssnmf

import (
	"math/rand"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/ssnmf/metrics"
	"github.com/YuminosukeSato/ssnmf/pkg/errors"
	"github.com/YuminosukeSato/ssnmf/pkg/log"
)

// DefaultEpsilon はゼロ除算を防ぐための既定の安定化定数
const DefaultEpsilon = 1e-10

// SSNMF は(半)教師ありNMFモデルの状態を保持する。
//
// X, Y, W, L は構築後に変更してはならない。A, S, B は更新メソッドの呼び出し
// ごとにインプレースで変更される。全ての因子は非負の初期値から開始され、
// 乗法的更新により非負性が保存される。
type SSNMF struct {
	// X はデータ行列 (f × n)
	X *mat.Dense
	// A は特徴量因子行列 (f × k)
	A *mat.Dense
	// S は共有表現行列 (k × n)
	S *mat.Dense
	// Y はラベル行列 (l × n)。教師なしモデルではnil
	Y *mat.Dense
	// B は分類因子行列 (l × k)。教師なしモデルではnil
	B *mat.Dense
	// W はXに対する観測マスク (f × n)。nilは全観測を意味する
	W *mat.Dense
	// L はYに対する観測マスク (l × n)。nilは全観測を意味する
	L *mat.Dense
	// Lam は分類項の重みパラメータ。Yが与えられた場合のみ意味を持つ
	Lam float64
	// K はトピック数（分解のランク）
	K int

	eps    float64
	logger log.Logger

	// 構築時に前計算する観測済みデータ。W/Lがnilの場合はX/Yをそのまま指す
	wx *mat.Dense
	ly *mat.Dense

	sc *scratch
}

type options struct {
	Y, B, W, L *mat.Dense
	A, S       *mat.Dense
	lam        float64
	lamSet     bool
	eps        float64
	seed       int64
	seedSet    bool
	logger     log.Logger
}

// Option はモデル構築時の設定を表す
type Option func(*options)

// WithLabels はラベル行列Y (l × n) と分類項の重みlamを設定し、
// モデルを(半)教師ありにする。
func WithLabels(Y *mat.Dense, lam float64) Option {
	return func(o *options) {
		o.Y = Y
		o.lam = lam
		o.lamSet = true
	}
}

// WithDataMask はXに対する{0,1}観測マスクW (f × n) を設定する。
// 0の成分は未観測として損失と勾配から除外される。
func WithDataMask(W *mat.Dense) Option {
	return func(o *options) { o.W = W }
}

// WithLabelMask はYに対する{0,1}観測マスクL (l × n) を設定する。
func WithLabelMask(L *mat.Dense) Option {
	return func(o *options) { o.L = L }
}

// WithFactors は因子行列A (f × k) とS (k × n) の初期値を設定する。
// 省略された場合は一様乱数 [0,1) で初期化される。
func WithFactors(A, S *mat.Dense) Option {
	return func(o *options) {
		o.A = A
		o.S = S
	}
}

// WithLabelFactor は分類因子行列B (l × k) の初期値を設定する。
// WithLabelsと併用した場合のみ有効。
func WithLabelFactor(B *mat.Dense) Option {
	return func(o *options) { o.B = B }
}

// WithEpsilon は分母の安定化定数εを設定する（既定値は1e-10）。
func WithEpsilon(eps float64) Option {
	return func(o *options) { o.eps = eps }
}

// WithRandomState は因子の乱数初期化のシードを設定する。
// テストで再現性が必要な場合に使用する。
func WithRandomState(seed int64) Option {
	return func(o *options) {
		o.seed = seed
		o.seedSet = true
	}
}

// WithLogger は学習の進行を記録するロガーを設定する。
// 既定では何も出力しない。
func WithLogger(l log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// New は(半)教師ありNMFモデルを構築する。
//
// Xは非負のデータ行列 (f × n)、kは正のトピック数。形状が矛盾する行列が
// 与えられた場合はDimensionError、k ≤ 0 の場合はValidationErrorを返す。
// 因子行列の省略時は一様乱数 [0,1) で初期化される。
func New(X *mat.Dense, k int, opts ...Option) (*SSNMF, error) {
	const op = "SSNMF.New"

	if X == nil {
		return nil, errors.Wrap(errors.ErrEmptyData, op)
	}
	f, n := X.Dims()
	if f == 0 || n == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, op)
	}
	if k <= 0 {
		return nil, errors.NewValidationError("k", "number of topics must be a positive integer", k)
	}

	o := options{eps: DefaultEpsilon, lam: 1}
	for _, opt := range opts {
		opt(&o)
	}
	if o.eps <= 0 {
		return nil, errors.NewValidationError("eps", "must be positive", o.eps)
	}
	if o.lamSet && o.lam < 0 {
		return nil, errors.NewValidationError("lam", "must be non-negative", o.lam)
	}

	if o.Y == nil {
		if o.B != nil {
			return nil, errors.NewValueError(op, "label factor B supplied without label matrix Y")
		}
		if o.L != nil {
			return nil, errors.NewValueError(op, "label mask L supplied without label matrix Y")
		}
	}

	var rng *rand.Rand
	if o.seedSet {
		rng = rand.New(rand.NewSource(o.seed))
	} else {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	m := &SSNMF{
		X:   X,
		K:   k,
		eps: o.eps,
	}
	if o.logger != nil {
		m.logger = o.logger
	} else {
		m.logger = log.GetLogger()
	}

	// A (f × k) と S (k × n)
	if o.A != nil {
		if ar, ac := o.A.Dims(); ar != f {
			return nil, errors.NewDimensionError(op+": A", f, ar, 0)
		} else if ac != k {
			return nil, errors.NewDimensionError(op+": A", k, ac, 1)
		}
		m.A = o.A
	} else {
		m.A = randUniform(f, k, rng)
	}
	if o.S != nil {
		if sr, sc := o.S.Dims(); sr != k {
			return nil, errors.NewDimensionError(op+": S", k, sr, 0)
		} else if sc != n {
			return nil, errors.NewDimensionError(op+": S", n, sc, 1)
		}
		m.S = o.S
	} else {
		m.S = randUniform(k, n, rng)
	}

	// 教師あり: Y (l × n) と B (l × k)
	if o.Y != nil {
		yr, yc := o.Y.Dims()
		if yc != n {
			return nil, errors.NewDimensionError(op+": Y", n, yc, 1)
		}
		m.Y = o.Y
		m.Lam = o.lam
		if o.B != nil {
			if br, bc := o.B.Dims(); br != yr {
				return nil, errors.NewDimensionError(op+": B", yr, br, 0)
			} else if bc != k {
				return nil, errors.NewDimensionError(op+": B", k, bc, 1)
			}
			m.B = o.B
		} else {
			m.B = randUniform(yr, k, rng)
		}
	}

	// 観測マスク
	if o.W != nil {
		if wr, wc := o.W.Dims(); wr != f {
			return nil, errors.NewDimensionError(op+": W", f, wr, 0)
		} else if wc != n {
			return nil, errors.NewDimensionError(op+": W", n, wc, 1)
		}
		m.W = o.W
	}
	if o.L != nil {
		yr, _ := m.Y.Dims()
		if lr, lc := o.L.Dims(); lr != yr {
			return nil, errors.NewDimensionError(op+": L", yr, lr, 0)
		} else if lc != n {
			return nil, errors.NewDimensionError(op+": L", n, lc, 1)
		}
		m.L = o.L
	}

	// W∘X と L∘Y は不変なので一度だけ計算する
	if m.W != nil {
		m.wx = mat.NewDense(f, n, nil)
		hadamard(m.wx, m.W, m.X)
	} else {
		m.wx = m.X
	}
	if m.Y != nil {
		if m.L != nil {
			yr, _ := m.Y.Dims()
			m.ly = mat.NewDense(yr, n, nil)
			hadamard(m.ly, m.L, m.Y)
		} else {
			m.ly = m.Y
		}
	}

	return m, nil
}

// randUniform は [0,1) の一様乱数で初期化した r × c 行列を返す
func randUniform(r, c int, rng *rand.Rand) *mat.Dense {
	data := make([]float64, r*c)
	for i := range data {
		data[i] = rng.Float64()
	}
	return mat.NewDense(r, c, data)
}

// Supervised はモデルがラベル行列Yを持つかどうかを返す
func (m *SSNMF) Supervised() bool {
	return m.Y != nil
}

// Epsilon は分母の安定化定数εを返す
func (m *SSNMF) Epsilon() float64 {
	return m.eps
}

// ReconError は現在の因子による再構成誤差 ‖W∘(X − AS)‖_F を返す
func (m *SSNMF) ReconError() (float64, error) {
	m.ensureScratch()
	m.sc.AS.Mul(m.A, m.S)
	return metrics.MaskedFrobenius(m.X, m.sc.AS, maskOrNil(m.W))
}

// RelReconError は相対再構成誤差 ‖W∘(X − AS)‖_F / ‖W∘X‖_F を返す
func (m *SSNMF) RelReconError() (float64, error) {
	m.ensureScratch()
	m.sc.AS.Mul(m.A, m.S)
	return metrics.RelativeError(m.X, m.sc.AS, maskOrNil(m.W))
}

// Accuracy は分類精度（argmaxの一致率）を返す。
// Yがone-hot形式のラベル行列である場合にのみ意味を持つ。
// 教師なしモデルに対してはValueErrorを返す。
func (m *SSNMF) Accuracy() (float64, error) {
	if m.Y == nil {
		return 0, errors.NewValueError("SSNMF.Accuracy", "label matrix Y not provided: model is not semi-supervised")
	}
	m.ensureScratch()
	m.sc.BS.Mul(m.B, m.S)
	return metrics.ArgmaxAccuracy(m.Y, m.sc.BS, maskOrNil(m.L))
}

// KLDiv はラベル再構成のI-divergence D(L∘Y ‖ L∘BS) を返す。
// 教師なしモデルに対してはValueErrorを返す。
func (m *SSNMF) KLDiv() (float64, error) {
	if m.Y == nil {
		return 0, errors.NewValueError("SSNMF.KLDiv", "label matrix Y not provided: model is not semi-supervised")
	}
	m.ensureScratch()
	m.sc.BS.Mul(m.B, m.S)
	return metrics.IDivergence(m.Y, m.sc.BS, maskOrNil(m.L), m.eps)
}

// maskOrNil は*mat.Denseのマスクをmetricsパッケージ用のmat.Matrixに変換する。
// 型付きnilポインタがnilでないインターフェースになるのを避ける。
func maskOrNil(mask *mat.Dense) mat.Matrix {
	if mask == nil {
		return nil
	}
	return mask
}
