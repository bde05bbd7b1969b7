// Package codecheck turns raw model output into candidates that are safe to
// execute or serve: fence stripping, API compatibility patches, the static
// safety validator, the heuristic quality gate, and the markup check.
//
// Every failure message is fed verbatim into the next generation prompt, so
// messages name the violated rule and never mention positions in the source.
package codecheck

import "fmt"

// Rule names a single check.
type Rule string

const (
	RuleEmpty           Rule = "empty"
	RuleStarImport      Rule = "star_import"
	RuleSceneClass      Rule = "scene_class"
	RuleConstruct       Rule = "construct_method"
	RuleBannedPattern   Rule = "banned_pattern"
	RuleForbiddenImport Rule = "forbidden_import"
	RuleForbiddenCall   Rule = "forbidden_call"
	RuleGraphScope      Rule = "graph_scope"
	RuleRawTex          Rule = "raw_tex"
	RuleDerivation      Rule = "derivation_steps"
	RuleKineticEnergy   Rule = "kinetic_energy"
	RuleMarkup          Rule = "markup"
)

// Violation is a failed safety, quality, or markup rule.
type Violation struct {
	Rule    Rule
	Message string
}

func (v *Violation) Error() string {
	return v.Message
}

func violation(rule Rule, format string, args ...interface{}) *Violation {
	return &Violation{Rule: rule, Message: fmt.Sprintf(format, args...)}
}

// ParseError reports generated code that is not syntactically valid Python.
type ParseError struct {
	Message string
}

func (e *ParseError) Error() string {
	return e.Message
}
