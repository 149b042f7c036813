package ssnmf

import (
	"github.com/YuminosukeSato/ssnmf/metrics"
	"github.com/YuminosukeSato/ssnmf/pkg/errors"
	"github.com/YuminosukeSato/ssnmf/pkg/log"
)

// History は学習中に記録されるイテレーションごとの指標列。
// 記録が有効な場合、各スライスは完了したイテレーションごとに
// ちょうど1要素ずつ伸びる。
type History struct {
	// Errs は目的関数の値。Multでは ‖W∘(X−AS)‖_F、SNMFMultでは
	// recon² + lam·class²、KLSNMFMultでは recon² + lam·classerr
	Errs []float64
	// ReconErrs は再構成誤差 ‖W∘(X−AS)‖_F（教師ありモードのみ）
	ReconErrs []float64
	// ClassErrs は分類誤差。SNMFMultでは ‖L∘(Y−BS)‖_F、
	// KLSNMFMultでは D(L∘Y‖L∘BS)
	ClassErrs []float64
	// ClassAccs は分類精度 [0,1]（教師ありモードのみ）
	ClassAccs []float64
}

// Mult は教師なしモデル (1) ‖X−AS‖_F² をnumiters回の乗法的更新で学習する。
//
// saveerrsがtrueの場合、各イテレーション後の再構成誤差 ‖W∘(X−AS)‖_F を
// History.Errsに記録する。numiters ≤ 0 の場合は因子を変更せず空のHistoryを返す。
func (m *SSNMF) Mult(numiters int, saveerrs bool) (*History, error) {
	hist := &History{}
	if numiters <= 0 {
		return hist, nil
	}
	m.ensureScratch()
	if saveerrs {
		hist.Errs = make([]float64, 0, numiters)
	}

	for i := 0; i < numiters; i++ {
		m.step(false, frobenius)
		if saveerrs {
			re, err := m.ReconError()
			if err != nil {
				return hist, err
			}
			hist.Errs = append(hist.Errs, re)
		}
	}

	m.logCompleted("mult", "unsupervised", numiters)
	return hist, nil
}

// SNMFMult は(半)教師ありモデル (2) ‖X−AS‖_F² + lam·‖L∘(Y−BS)‖_F² を
// numiters回の乗法的更新で学習する。
//
// saveerrsがtrueの場合、各イテレーション後に目的関数値・再構成誤差・
// 分類誤差・分類精度をHistoryに記録する。ラベル行列Yを持たないモデルに
// 対してはValueErrorを返す。
func (m *SSNMF) SNMFMult(numiters int, saveerrs bool) (*History, error) {
	if m.Y == nil {
		return nil, errors.NewValueError("SSNMF.SNMFMult", "label matrix Y not provided: train with Mult instead")
	}
	return m.supervisedTrain("snmfmult", frobenius, numiters, saveerrs)
}

// KLSNMFMult は(半)教師ありモデル (3) ‖X−AS‖_F² + lam·D(L∘Y‖L∘BS) を
// numiters回の乗法的更新で学習する。X項はフロベニウスのまま、ラベル項は
// I-divergenceの乗法的更新を使う。
//
// ラベル行列Yを持たないモデルに対してはValueErrorを返す。
func (m *SSNMF) KLSNMFMult(numiters int, saveerrs bool) (*History, error) {
	if m.Y == nil {
		return nil, errors.NewValueError("SSNMF.KLSNMFMult", "label matrix Y not provided: train with Mult instead")
	}
	return m.supervisedTrain("klsnmfmult", iDivergence, numiters, saveerrs)
}

func (m *SSNMF) supervisedTrain(op string, obj objectiveKind, numiters int, saveerrs bool) (*History, error) {
	hist := &History{}
	if numiters <= 0 {
		return hist, nil
	}
	m.ensureScratch()
	if saveerrs {
		hist.Errs = make([]float64, 0, numiters)
		hist.ReconErrs = make([]float64, 0, numiters)
		hist.ClassErrs = make([]float64, 0, numiters)
		hist.ClassAccs = make([]float64, 0, numiters)
	}

	for i := 0; i < numiters; i++ {
		m.step(true, obj)
		if !saveerrs {
			continue
		}
		if err := m.recordSupervised(hist, obj); err != nil {
			return hist, err
		}
	}

	m.logCompleted(op, m.supervisionKind(), numiters)
	return hist, nil
}

// recordSupervised は教師あり学習の1イテレーション分の指標をhistに追加する
func (m *SSNMF) recordSupervised(hist *History, obj objectiveKind) error {
	recon, err := m.ReconError()
	if err != nil {
		return err
	}

	var class float64
	switch obj {
	case frobenius:
		m.sc.BS.Mul(m.B, m.S)
		class, err = metrics.MaskedFrobenius(m.Y, m.sc.BS, maskOrNil(m.L))
		if err != nil {
			return err
		}
		hist.Errs = append(hist.Errs, recon*recon+m.Lam*class*class)
	case iDivergence:
		class, err = m.KLDiv()
		if err != nil {
			return err
		}
		hist.Errs = append(hist.Errs, recon*recon+m.Lam*class)
	}
	hist.ReconErrs = append(hist.ReconErrs, recon)
	hist.ClassErrs = append(hist.ClassErrs, class)

	acc, err := m.Accuracy()
	if err != nil {
		return err
	}
	hist.ClassAccs = append(hist.ClassAccs, acc)
	return nil
}

func (m *SSNMF) supervisionKind() string {
	if m.L != nil {
		return "semi-supervised"
	}
	return "supervised"
}

func (m *SSNMF) logCompleted(op, supervision string, numiters int) {
	f, n := m.X.Dims()
	m.logger.Info("training completed",
		log.ModelNameKey, "SSNMF",
		log.OperationKey, op,
		log.SupervisionKey, supervision,
		log.IterationsKey, numiters,
		log.RankKey, m.K,
		log.FeaturesKey, f,
		log.SamplesKey, n,
	)
}
