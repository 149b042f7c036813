package ssnmf

import (
	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/ssnmf/core/parallel"
)

// parallelThreshold は要素ごとのカーネルを並列化する行数の閾値。
// これ以下の行数ではゴルーチンのオーバーヘッドが計算を上回る。
const parallelThreshold = 512

// scratch は更新・評価で再利用される作業バッファ。
// 反復ごとの割り当てを避けるため遅延初期化して使い回す。
type scratch struct {
	AS  *mat.Dense // A·S (f × n)
	WAS *mat.Dense // W∘(A·S)。Wがnilの場合は未使用
	BS  *mat.Dense // B·S (l × n)
	LBS *mat.Dense // L∘(B·S)。Lがnilの場合は未使用
	R   *mat.Dense // L∘Y/(BS+ε) のKL比 (l × n)

	numS, denS, tmpS *mat.Dense // k × n
	numA, denA       *mat.Dense // f × k
	numB, denB       *mat.Dense // l × k

	lones *mat.Dense // KL更新の分母に使う全1行列 (l × n)。Lがあれば不要
}

func (m *SSNMF) ensureScratch() {
	if m.sc != nil {
		return
	}
	f, n := m.X.Dims()
	k := m.K
	sc := &scratch{
		AS:   mat.NewDense(f, n, nil),
		numS: mat.NewDense(k, n, nil),
		denS: mat.NewDense(k, n, nil),
		numA: mat.NewDense(f, k, nil),
		denA: mat.NewDense(f, k, nil),
	}
	if m.W != nil {
		sc.WAS = mat.NewDense(f, n, nil)
	}
	if m.Y != nil {
		l, _ := m.Y.Dims()
		sc.BS = mat.NewDense(l, n, nil)
		sc.R = mat.NewDense(l, n, nil)
		sc.tmpS = mat.NewDense(k, n, nil)
		sc.numB = mat.NewDense(l, k, nil)
		sc.denB = mat.NewDense(l, k, nil)
		if m.L != nil {
			sc.LBS = mat.NewDense(l, n, nil)
		}
	}
	m.sc = sc
}

// labelOnes はKL更新の分母に現れる行列（Lまたは全1）を返す
func (m *SSNMF) labelOnes() *mat.Dense {
	if m.L != nil {
		return m.L
	}
	if m.sc.lones == nil {
		l, n := m.Y.Dims()
		data := make([]float64, l*n)
		for i := range data {
			data[i] = 1
		}
		m.sc.lones = mat.NewDense(l, n, data)
	}
	return m.sc.lones
}

// ===========================================================================
//
//	要素ごとのカーネル
//
// ===========================================================================

// hadamard は dst = a∘b を計算する。dstはa, bと同形状で割り当て済みであること。
func hadamard(dst, a, b *mat.Dense) {
	r, c := a.Dims()
	da, db, dd := a.RawMatrix(), b.RawMatrix(), dst.RawMatrix()
	parallel.ParallelizeWithThreshold(r, parallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			ra := da.Data[i*da.Stride : i*da.Stride+c]
			rb := db.Data[i*db.Stride : i*db.Stride+c]
			rd := dd.Data[i*dd.Stride : i*dd.Stride+c]
			for j := 0; j < c; j++ {
				rd[j] = ra[j] * rb[j]
			}
		}
	})
}

// mulDivInPlace は乗法的更新の核 F ← F ∘ num/(den+ε) を計算する。
// 分母のみεで床上げし、分子は決してクランプしない。これにより非負の
// 初期値から出発した因子の非負性が保存される。
func mulDivInPlace(F, num, den *mat.Dense, eps float64) {
	r, c := F.Dims()
	df, dn, dd := F.RawMatrix(), num.RawMatrix(), den.RawMatrix()
	parallel.ParallelizeWithThreshold(r, parallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			rf := df.Data[i*df.Stride : i*df.Stride+c]
			rn := dn.Data[i*dn.Stride : i*dn.Stride+c]
			rd := dd.Data[i*dd.Stride : i*dd.Stride+c]
			for j := 0; j < c; j++ {
				rf[j] *= rn[j] / (eps + rd[j])
			}
		}
	})
}

// maskedRatio は dst = mask∘Y/(BS+ε) を計算する。maskがnilの場合は
// dst = Y/(BS+ε)。比はマスクが1の成分に対してのみ意味を持ち、0の成分は
// マスクとの積により確実にゼロになる。
func maskedRatio(dst, mask, Y, BS *mat.Dense, eps float64) {
	r, c := Y.Dims()
	dy, db, dd := Y.RawMatrix(), BS.RawMatrix(), dst.RawMatrix()
	var dm blas64.General
	if mask != nil {
		dm = mask.RawMatrix()
	}
	parallel.ParallelizeWithThreshold(r, parallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			ry := dy.Data[i*dy.Stride : i*dy.Stride+c]
			rb := db.Data[i*db.Stride : i*db.Stride+c]
			rd := dd.Data[i*dd.Stride : i*dd.Stride+c]
			if mask != nil {
				rm := dm.Data[i*dm.Stride : i*dm.Stride+c]
				for j := 0; j < c; j++ {
					rd[j] = rm[j] * ry[j] / (eps + rb[j])
				}
			} else {
				for j := 0; j < c; j++ {
					rd[j] = ry[j] / (eps + rb[j])
				}
			}
		}
	})
}

// maskedInto は mask∘M をdstに計算して返す。maskがnilならMをそのまま返す
func maskedInto(dst, mask, M *mat.Dense) *mat.Dense {
	if mask == nil {
		return M
	}
	hadamard(dst, mask, M)
	return dst
}

// ===========================================================================
//
//	乗法的更新ステップ
//
// ===========================================================================

// objectiveKind はラベル項の目的関数の種類
type objectiveKind int

const (
	frobenius objectiveKind = iota
	iDivergence
)

// step は1イテレーション分の乗法的更新を実行する。
// 更新順序はS、A、B。同一イテレーション内の後続の更新は更新済みのSを使う。
// 4種の更新則（教師なし/教師あり × フロベニウス/I-divergence、マスク有無）は
// 全てこの1つのパラメータ化されたステップで実現され、εガードが一様に適用される。
func (m *SSNMF) step(supervised bool, obj objectiveKind) {
	sc := m.sc

	// --- S更新 ---
	sc.AS.Mul(m.A, m.S)
	was := maskedInto(sc.WAS, m.W, sc.AS)
	sc.numS.Mul(m.A.T(), m.wx)
	sc.denS.Mul(m.A.T(), was)

	if supervised {
		sc.BS.Mul(m.B, m.S)
		switch obj {
		case frobenius:
			// 分子 += lam·Bᵀ(L∘Y)、分母 += lam·Bᵀ(L∘(BS))
			sc.tmpS.Mul(m.B.T(), m.ly)
			addScaled(sc.numS, sc.tmpS, m.Lam)
			lbs := maskedInto(sc.LBS, m.L, sc.BS)
			sc.tmpS.Mul(m.B.T(), lbs)
			addScaled(sc.denS, sc.tmpS, m.Lam)
		case iDivergence:
			// 分子 += lam·Bᵀ(L∘Y/(BS))、分母 += lam·Bᵀ·L
			// I-divergence更新の分母はBSではなくマスクの和になる
			maskedRatio(sc.R, m.L, m.Y, sc.BS, m.eps)
			sc.tmpS.Mul(m.B.T(), sc.R)
			addScaled(sc.numS, sc.tmpS, m.Lam)
			sc.tmpS.Mul(m.B.T(), m.labelOnes())
			addScaled(sc.denS, sc.tmpS, m.Lam)
		}
	}
	mulDivInPlace(m.S, sc.numS, sc.denS, m.eps)

	// --- A更新 --- 更新済みのSでA·Sを再計算する
	sc.AS.Mul(m.A, m.S)
	was = maskedInto(sc.WAS, m.W, sc.AS)
	sc.numA.Mul(m.wx, m.S.T())
	sc.denA.Mul(was, m.S.T())
	mulDivInPlace(m.A, sc.numA, sc.denA, m.eps)

	// --- B更新 ---
	if !supervised {
		return
	}
	sc.BS.Mul(m.B, m.S)
	switch obj {
	case frobenius:
		lbs := maskedInto(sc.LBS, m.L, sc.BS)
		sc.numB.Mul(m.ly, m.S.T())
		sc.denB.Mul(lbs, m.S.T())
	case iDivergence:
		maskedRatio(sc.R, m.L, m.Y, sc.BS, m.eps)
		sc.numB.Mul(sc.R, m.S.T())
		sc.denB.Mul(m.labelOnes(), m.S.T())
	}
	mulDivInPlace(m.B, sc.numB, sc.denB, m.eps)
}

// addScaled は dst += alpha·src を計算する
func addScaled(dst, src *mat.Dense, alpha float64) {
	r, c := dst.Dims()
	dd, ds := dst.RawMatrix(), src.RawMatrix()
	parallel.ParallelizeWithThreshold(r, parallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			rd := dd.Data[i*dd.Stride : i*dd.Stride+c]
			rs := ds.Data[i*ds.Stride : i*ds.Stride+c]
			for j := 0; j < c; j++ {
				rd[j] += alpha * rs[j]
			}
		}
	})
}
