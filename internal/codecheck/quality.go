package codecheck

import (
	"regexp"
	"strings"
)

// Request keywords, matched against the lowercased request text.
var (
	GraphKeywords = []string{
		"plot", "graph", "curve", "function", "axes", "coordinate",
		"坐标", "函数", "曲线", "图像", "坐标系", "作图", "画图",
	}
	DeriveKeywords = []string{
		"derive", "derivation", "prove", "deduce", "theorem",
		"推导", "证明", "定理", "公式推导", "推演",
	}
)

var (
	coordinateSystemRE = regexp.MustCompile(`\b(?:Axes|NumberPlane|ComplexPlane)\b`)
	rawTexRE           = regexp.MustCompile(`\b(?:MathTex|Tex)\(\s*['"]`)
	mathTexCallRE      = regexp.MustCompile(`\bMathTex\s*\(`)
	coreMathTokenRE    = regexp.MustCompile(`\\int|\\frac|=`)
	kineticSymbolRE    = regexp.MustCompile(`\bK\b`)
	oneHalfRE          = regexp.MustCompile(`\\frac\{1\}\{2\}`)
)

// QualityGate rejects scene code that is safe but implausible for the
// request. A disabled gate passes everything.
type QualityGate struct {
	Enabled bool
}

// Check applies the heuristics in a fixed order and returns the first failure.
func (g QualityGate) Check(code, request string) error {
	if !g.Enabled {
		return nil
	}
	req := strings.ToLower(request)

	if !containsAny(req, GraphKeywords) && coordinateSystemRE.MatchString(code) {
		return violation(RuleGraphScope, "Quality check failed: used Axes/NumberPlane but request did not ask for graphs/coordinates.")
	}

	if rawTexRE.MatchString(code) {
		return violation(RuleRawTex, "Quality check failed: Tex/MathTex must use raw strings: MathTex(r'...') / Tex(r'...').")
	}

	if containsAny(req, DeriveKeywords) {
		if len(mathTexCallRE.FindAllStringIndex(code, -1)) < 2 {
			return violation(RuleDerivation, "Quality check failed: derivation request but too few MathTex steps (need >= 2).")
		}
		if !coreMathTokenRE.MatchString(code) {
			return violation(RuleDerivation, "Quality check failed: derivation request but missing core math tokens (\\int / \\frac / '=').")
		}
	}

	if isKineticTopic(request) {
		if !kineticSymbolRE.MatchString(code) {
			return violation(RuleKineticEnergy, "Quality check failed: kinetic/work-energy topic but missing symbol K.")
		}
		if !oneHalfRE.MatchString(code) {
			return violation(RuleKineticEnergy, "Quality check failed: kinetic/work-energy topic but missing \\frac{1}{2}.")
		}
	}
	return nil
}

// isKineticTopic matches English fragments case-insensitively and the
// Chinese symbols as written.
func isKineticTopic(request string) bool {
	lower := strings.ToLower(request)
	if strings.Contains(lower, "kinetic") || strings.Contains(lower, "work-energy") {
		return true
	}
	if strings.Contains(request, "动能") {
		return true
	}
	return strings.Contains(request, "功") && strings.Contains(request, "能")
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
