// Package ssnmf は(半)教師あり非負値行列因子分解 ((S)emi-(S)upervised NMF) を実装します。
//
// 非負のデータ行列 X (特徴量 × サンプル) を低ランクの非負因子 A (特徴量 × トピック) と
// S (トピック × サンプル) の積に分解します。ラベル行列 Y が与えられた場合、
// 同じ表現 S を共有する分類因子 B による Y ≈ B·S を同時に学習します。
// モデルは以下のいずれかの目的関数を乗法的更新で最小化します:
//
//	(1) ‖X − AS‖_F²                      — Mult で学習
//	(2) ‖X − AS‖_F² + lam·‖Y − BS‖_F²    — SNMFMult で学習
//	(3) ‖X − AS‖_F² + lam·D(Y‖BS)        — KLSNMFMult で学習
//
// 欠損データはマスク行列 W (Xに対する観測行列)、欠損ラベルはマスク行列 L
// (Yに対する観測行列) で表現し、未観測成分は損失と勾配の両方から除外されます。
//
// 使用例:
//
//	教師なし (1)、誤差を記録しながら学習
//
//	model, err := ssnmf.New(X, 10, ssnmf.WithRandomState(42))
//	if err != nil { ... }
//	hist, err := model.Mult(100, true)
//
//	半教師あり (2)、ラベルマスク付き
//
//	model, err := ssnmf.New(X, 10,
//	    ssnmf.WithLabels(Y, 1.0),
//	    ssnmf.WithLabelMask(L),
//	)
//	hist, err := model.SNMFMult(100, true)
//
//	半教師あり (3)、欠損データ付き
//
//	model, err := ssnmf.New(X, 10,
//	    ssnmf.WithLabels(Y, 0.1),
//	    ssnmf.WithDataMask(W),
//	    ssnmf.WithLabelMask(L),
//	)
//	_, err = model.KLSNMFMult(15, false)
//
// 密行列演算は gonum.org/v1/gonum/mat に委譲しています。モデルは単一の呼び出し元
// による逐次的な変更を前提としており、複数ゴルーチンからの同時更新は安全では
// ありません。
package ssnmf
