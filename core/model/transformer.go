package model

import "gonum.org/v1/gonum/mat"

// Transformer はデータ変換のインターフェース。行列分解モデルではFitが
// 基底（因子行列）を学習し、Transformが新しいサンプル列を学習済み基底に
// 対する係数行列へ射影する。
type Transformer interface {
	// Fit は変換に必要な因子を学習する
	Fit(X mat.Matrix) error

	// Transform はデータを学習済みの表現へ変換する
	Transform(X mat.Matrix) (mat.Matrix, error)

	// FitTransform はFitを実行し、学習データの表現を返す
	FitTransform(X mat.Matrix) (mat.Matrix, error)
}
