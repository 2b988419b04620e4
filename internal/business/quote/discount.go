package quote

// Policy 折扣策略（可插拔）
// 定价业务规则不属于核心契约：按什么口径取区域、区域映射什么费率，
// 都由注入的策略决定，核心只要求 0 ≤ rate ≤ 1
type Policy interface {
	// Rate 计算单个父记录的折扣率
	Rate(parent map[string]interface{}) float64
}

// RegionPolicy 区域折扣策略
// 从父记录的区域字段读取区域，映射到固定费率；未映射区域回退默认费率
type RegionPolicy struct {
	Field       string             // 父记录上的区域字段名
	Rates       map[string]float64 // 区域 → 费率
	DefaultRate float64            // 兜底费率
}

// NewRegionPolicy 创建区域折扣策略（费率截断到 [0, 1]）
func NewRegionPolicy(field string, rates map[string]float64, defaultRate float64) *RegionPolicy {
	clamped := make(map[string]float64, len(rates))
	for region, rate := range rates {
		clamped[region] = clamp01(rate)
	}
	return &RegionPolicy{
		Field:       field,
		Rates:       clamped,
		DefaultRate: clamp01(defaultRate),
	}
}

// Rate 实现 Policy 接口
func (p *RegionPolicy) Rate(parent map[string]interface{}) float64 {
	region, _ := parent[p.Field].(string)
	if rate, ok := p.Rates[region]; ok {
		return rate
	}
	return p.DefaultRate
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
