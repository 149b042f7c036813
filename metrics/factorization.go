// Package metrics は行列分解の品質を評価する指標を提供します。
// 全ての関数はマスク（観測行列）を受け取ることができ、nilマスクは
// 「全て観測済み」として扱われます。
package metrics

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/ssnmf/pkg/errors"
)

// validateDims はT, E、および任意のマスクの形状が一致することを検証する
func validateDims(op string, T, E, mask mat.Matrix) (int, int, error) {
	r, c := T.Dims()
	if r == 0 || c == 0 {
		return 0, 0, errors.NewValueError(op, "empty matrix")
	}
	er, ec := E.Dims()
	if er != r {
		return 0, 0, errors.NewDimensionError(op, r, er, 0)
	}
	if ec != c {
		return 0, 0, errors.NewDimensionError(op, c, ec, 1)
	}
	if mask != nil {
		mr, mc := mask.Dims()
		if mr != r {
			return 0, 0, errors.NewDimensionError(op, r, mr, 0)
		}
		if mc != c {
			return 0, 0, errors.NewDimensionError(op, c, mc, 1)
		}
	}
	return r, c, nil
}

// MaskedFrobenius はマスク付きフロベニウスノルム ‖mask∘(T−E)‖_F を計算する。
// maskがnilの場合は全要素を観測済みとして扱う。
func MaskedFrobenius(T, E, mask mat.Matrix) (float64, error) {
	r, c, err := validateDims("MaskedFrobenius", T, E, mask)
	if err != nil {
		return 0, err
	}

	var sum float64
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			d := T.At(i, j) - E.At(i, j)
			if mask != nil {
				d *= mask.At(i, j)
			}
			sum += d * d
		}
	}
	return math.Sqrt(sum), nil
}

// RelativeError は相対再構成誤差 ‖mask∘(T−E)‖_F / ‖mask∘T‖_F を計算する。
// 分母がゼロに近い場合は0を返す（ゼロ行列の完全な再構成とみなす）。
func RelativeError(T, E, mask mat.Matrix) (float64, error) {
	num, err := MaskedFrobenius(T, E, mask)
	if err != nil {
		return 0, err
	}

	r, c := T.Dims()
	var den float64
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := T.At(i, j)
			if mask != nil {
				v *= mask.At(i, j)
			}
			den += v * v
		}
	}
	return errors.SafeDivide(num, math.Sqrt(den)), nil
}

// IDivergence は一般化KL情報量（I-divergence）
//
//	D(T‖E) = Σ_{i,j 観測} [T_ij·log((T_ij+eps)/(E_ij+eps)) − T_ij + E_ij]
//
// を計算する。epsは log(0/·) と 0除算を防ぐシフト量で、0·log(0/·)=0 の
// 規約をεシフトとして実現している。
func IDivergence(T, E, mask mat.Matrix, eps float64) (float64, error) {
	r, c, err := validateDims("IDivergence", T, E, mask)
	if err != nil {
		return 0, err
	}
	if eps <= 0 {
		return 0, errors.NewValidationError("eps", "must be positive", eps)
	}

	var sum float64
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			t := T.At(i, j)
			e := E.At(i, j)
			if mask != nil {
				m := mask.At(i, j)
				t *= m
				e *= m
			}
			sum += t*math.Log((t+eps)/(e+eps)) - t + e
		}
	}
	return sum, nil
}

// ArgmaxAccuracy は列ごとのargmax一致率を計算する。
// 各サンプル列について、予測行列Yhatの最大成分の行番号が、真のラベル行列Yの
// 最大成分の行番号と一致すれば正解とみなす。maskが与えられた場合、マスク後の
// 真のラベル列が全てゼロの列（ラベル未観測）は分母から除外される。
// maskがnilの場合は全ての列が分母に含まれる。
// 評価可能な列が存在しない場合は0を返す。
//
// Yがone-hot形式のラベル行列である場合にのみ意味を持つ（呼び出し側の責任）。
func ArgmaxAccuracy(Y, Yhat, mask mat.Matrix) (float64, error) {
	r, c, err := validateDims("ArgmaxAccuracy", Y, Yhat, mask)
	if err != nil {
		return 0, err
	}

	correct := 0
	evaluable := 0
	for j := 0; j < c; j++ {
		trueMax, trueVal := argmaxCol(Y, mask, r, j)
		predMax, _ := argmaxCol(Yhat, mask, r, j)

		if mask != nil && trueVal == 0 {
			// マスク後の真のラベル列が全てゼロ: ラベル未観測列
			continue
		}
		evaluable++
		if trueMax == predMax {
			correct++
		}
	}
	return errors.SafeDivide(float64(correct), float64(evaluable)), nil
}

// argmaxCol は（マスク適用後の）j列目の最大成分の行番号と値を返す
func argmaxCol(M, mask mat.Matrix, rows, j int) (int, float64) {
	best := 0
	bestVal := math.Inf(-1)
	for i := 0; i < rows; i++ {
		v := M.At(i, j)
		if mask != nil {
			v *= mask.At(i, j)
		}
		if v > bestVal {
			best = i
			bestVal = v
		}
	}
	return best, bestVal
}
