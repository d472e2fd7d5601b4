package persona

// 预测分是阈值分档的启发式，不是训练出的模型；
// 分档边界与画像规则一样属于可调参数。

// PurchaseProbability 估计用户近期再次购买的概率（0-100）。
// 依据购买频次与活跃度分档；从未购买的活跃用户仍有基础分。
func PurchaseProbability(m UserMetrics) float64 {
	switch {
	case m.Purchases >= 10 && m.RecentEvents30d > 0:
		return 90
	case m.Purchases >= 5 && m.RecentEvents30d > 0:
		return 75
	case m.Purchases >= 5:
		return 60
	case m.Purchases >= 1 && m.ViewToCartRate >= 0.3:
		return 50
	case m.Purchases >= 1:
		return 35
	case m.Carts >= 1:
		return 25
	case m.TotalEvents > 0:
		return 10
	default:
		return 0
	}
}

// ChurnRisk 估计用户流失风险（0-100），主要由最近活跃距今天数分档。
// 无时间戳数据（RecencyDays < 0）时按中档处理。
func ChurnRisk(m UserMetrics) float64 {
	if m.TotalEvents == 0 {
		return 100
	}
	if m.RecencyDays < 0 {
		return 50
	}
	switch {
	case m.RecencyDays > 90:
		return 85
	case m.RecencyDays > 60:
		return 70
	case m.RecencyDays > 30:
		return 50
	case m.RecencyDays > 14:
		return 30
	default:
		return 10
	}
}

// churnBand 把流失风险分映射为展示用档位。
func churnBand(risk float64) string {
	switch {
	case risk >= 70:
		return "high"
	case risk >= 40:
		return "medium"
	default:
		return "low"
	}
}
