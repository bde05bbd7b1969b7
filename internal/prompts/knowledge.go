package prompts

import "strings"

// Knowledge topics.
const (
	TopicDampedOscillation = "mechanics_damped_oscillation"
	TopicDoubleSlit        = "wave_double_slit_interference"
)

var knowledgeBase = map[string]string{
	TopicDampedOscillation: `主题：阻尼振动（力学）
- 运动方程：m·x'' + c·x' + k·x = 0，固有角频率 ω0 = √(k/m)，阻尼比 ζ = c / (2√(mk))
- 欠阻尼 (ζ<1)：x(t) = A·e^(-ζω0 t)·cos(ωd t + φ)，其中 ωd = ω0·√(1-ζ²)
- 临界阻尼 (ζ=1) 最快回到平衡且不振荡；过阻尼 (ζ>1) 缓慢回到平衡
- 能量随时间按 e^(-2ζω0 t) 衰减；品质因数 Q ≈ 1/(2ζ)
- 仿真建议：提供质量 m、劲度系数 k、阻尼系数 c 滑块，同时绘制位移-时间曲线与包络线`,
	TopicDoubleSlit: `主题：杨氏双缝干涉（波动光学）
- 光程差 δ = d·sinθ；明纹条件 δ = kλ，暗纹条件 δ = (k+½)λ
- 小角近似下条纹位置 x_k = kλL/d，条纹间距 Δx = λL/d
- 光强分布 I(θ) = I0·cos²(πd·sinθ/λ)，考虑单缝衍射时再乘以 sinc²(πa·sinθ/λ)
- 波长与颜色对应：红光约 700nm，绿光约 530nm，紫光约 400nm
- 仿真建议：提供波长 λ、缝间距 d、屏距 L 滑块，实时绘制屏上光强分布与条纹颜色`,
}

// KnowledgeTopic picks the knowledge topic for a request, or "" when none
// applies. Oscillation takes precedence over waves.
func KnowledgeTopic(request string) string {
	lower := strings.ToLower(request)
	switch {
	case strings.Contains(request, "振动") || strings.Contains(lower, "oscillation"):
		return TopicDampedOscillation
	case strings.Contains(request, "波") || strings.Contains(lower, "wave"):
		return TopicDoubleSlit
	default:
		return ""
	}
}

// Knowledge returns the notes for a topic.
func Knowledge(topic string) string {
	return knowledgeBase[topic]
}
