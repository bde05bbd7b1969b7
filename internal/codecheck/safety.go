package codecheck

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// Scene contract every generated script must satisfy.
const (
	AllowedModule = "manim"
	SceneClass    = "GeneratedScene"
	SceneBase     = "Scene"
	SceneMethod   = "construct"

	starImportLine = "from manim import *"
)

type bannedPattern struct {
	re    *regexp.Regexp
	label string
}

// bannedModules are matched as whole tokens only, so identifiers such as
// "my_socket" or "osc" never trip the textual layer. Import patterns only
// match at the start of a statement, so prose in string literals passes.
const bannedModules = `os|sys|subprocess|pathlib|shutil|socket|requests|ctypes|importlib|builtins|urllib\d?|http|pickle|marshal`

// bannedPatterns is the textual layer beneath the syntax-tree walk. It also
// sees string literals, which is where reflection-based escapes hide.
var bannedPatterns = []bannedPattern{
	{regexp.MustCompile(`(?m)(?:^|;)[ \t]*import\s+(?:` + bannedModules + `)\b`), "import of a system module"},
	{regexp.MustCompile(`(?m)(?:^|;)[ \t]*from\s+(?:` + bannedModules + `)\b`), "from-import of a system module"},
	{regexp.MustCompile(`\burllib\d?\b`), "urllib"},
	{regexp.MustCompile(`\bsubprocess\b`), "subprocess"},
	{regexp.MustCompile(`\bsocket\b`), "socket"},
	{regexp.MustCompile(`(?:^|[^\w.])open\s*\(`), "open("},
	{regexp.MustCompile(`(?:^|[^\w.])eval\s*\(`), "eval("},
	{regexp.MustCompile(`(?:^|[^\w.])exec\s*\(`), "exec("},
	{regexp.MustCompile(`(?:^|[^\w.])compile\s*\(`), "compile("},
	{regexp.MustCompile(`(?:^|[^\w.])__import__\s*\(`), "__import__("},
	{regexp.MustCompile(`\b__builtins__\b`), "__builtins__"},
	{regexp.MustCompile(`\b__subclasses__\b`), "__subclasses__"},
}

// forbiddenCalls are builtins the tree walk rejects wherever they are called.
var forbiddenCalls = map[string]struct{}{
	"eval":       {},
	"exec":       {},
	"open":       {},
	"compile":    {},
	"__import__": {},
}

// CheckSafety runs the static safety validator against generated scene code.
// The textual checks run first; the syntax-tree checks run second and report
// malformed code as *ParseError. Every other failure is a *Violation.
func CheckSafety(code string) error {
	if strings.TrimSpace(code) == "" {
		return violation(RuleEmpty, "LLM returned empty code.")
	}
	if firstStatementLine(code) != starImportLine {
		return violation(RuleStarImport, "Generated code must start with `%s`.", starImportLine)
	}
	for _, p := range bannedPatterns {
		if p.re.MatchString(code) {
			return violation(RuleBannedPattern, "Generated code matched a banned pattern: %s. No file, process, network or dynamic-evaluation access is allowed.", p.label)
		}
	}
	return checkTree([]byte(code))
}

// firstStatementLine returns the first line that is neither blank nor a
// comment, with any trailing comment removed.
func firstStatementLine(code string) string {
	for _, line := range strings.Split(code, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if idx := strings.Index(line, "#"); idx >= 0 {
			line = strings.TrimSpace(line[:idx])
		}
		return line
	}
	return ""
}

func checkTree(src []byte) error {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(context.Background(), nil, src)
	if err != nil {
		return &ParseError{Message: "Generated code could not be parsed as Python: " + err.Error()}
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return &ParseError{Message: describeSyntaxError(root, src)}
	}

	statements := topLevelStatements(root)
	if len(statements) == 0 || !isStarImport(statements[0], src) {
		return violation(RuleStarImport, "Generated code must start with `%s`.", starImportLine)
	}

	scene := findSceneClass(statements, src)
	if scene == nil {
		return violation(RuleSceneClass, "Generated code must contain `class %s(%s)` at top level, with %s as its only base class.", SceneClass, SceneBase, SceneBase)
	}
	if !hasMethod(scene, SceneMethod, src) {
		return violation(RuleConstruct, "class %s must define a `%s(self)` method.", SceneClass, SceneMethod)
	}

	return walk(root, src)
}

func topLevelStatements(root *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		if child.Type() == "comment" {
			continue
		}
		out = append(out, child)
	}
	return out
}

// isStarImport reports whether n is exactly `from manim import *`.
func isStarImport(n *sitter.Node, src []byte) bool {
	if n.Type() != "import_from_statement" {
		return false
	}
	module := n.ChildByFieldName("module_name")
	if module == nil || module.Type() != "dotted_name" || module.Content(src) != AllowedModule {
		return false
	}
	wildcard := false
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		switch child.Type() {
		case "wildcard_import":
			wildcard = true
		case "comment":
		default:
			if child.StartByte() != module.StartByte() {
				return false
			}
		}
	}
	return wildcard
}

func unwrapDecorated(n *sitter.Node) *sitter.Node {
	if n.Type() == "decorated_definition" {
		if def := n.ChildByFieldName("definition"); def != nil {
			return def
		}
	}
	return n
}

func findSceneClass(statements []*sitter.Node, src []byte) *sitter.Node {
	for _, stmt := range statements {
		n := unwrapDecorated(stmt)
		if n.Type() != "class_definition" {
			continue
		}
		name := n.ChildByFieldName("name")
		if name == nil || name.Content(src) != SceneClass {
			continue
		}
		bases := n.ChildByFieldName("superclasses")
		if bases == nil || bases.NamedChildCount() != 1 {
			continue
		}
		base := bases.NamedChild(0)
		if base.Type() == "identifier" && base.Content(src) == SceneBase {
			return n
		}
	}
	return nil
}

func hasMethod(class *sitter.Node, method string, src []byte) bool {
	body := class.ChildByFieldName("body")
	if body == nil {
		return false
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		n := unwrapDecorated(body.NamedChild(i))
		if n.Type() != "function_definition" {
			continue
		}
		if name := n.ChildByFieldName("name"); name != nil && name.Content(src) == method {
			return true
		}
	}
	return false
}

// walk visits every node and rejects imports other than the star import and
// calls to evaluation or file builtins.
func walk(n *sitter.Node, src []byte) error {
	switch n.Type() {
	case "import_statement":
		return violation(RuleForbiddenImport, "Forbidden `import ...` detected. Only `%s` is allowed.", starImportLine)
	case "future_import_statement":
		return violation(RuleForbiddenImport, "Forbidden `from __future__ import ...` detected. Only `%s` is allowed.", starImportLine)
	case "import_from_statement":
		module := n.ChildByFieldName("module_name")
		if module == nil || module.Type() != "dotted_name" || module.Content(src) != AllowedModule {
			return violation(RuleForbiddenImport, "Forbidden import detected (only `%s` allowed).", starImportLine)
		}
		if !isStarImport(n, src) {
			return violation(RuleForbiddenImport, "Must use exactly `%s`; importing individual names from manim is not allowed.", starImportLine)
		}
	case "exec_statement":
		return violation(RuleForbiddenCall, "Forbidden call to `exec()` detected. Generated code may not evaluate code or access files.")
	case "call":
		if fn := n.ChildByFieldName("function"); fn != nil && fn.Type() == "identifier" {
			name := fn.Content(src)
			if _, banned := forbiddenCalls[name]; banned {
				return violation(RuleForbiddenCall, "Forbidden call to `%s()` detected. Generated code may not evaluate code or access files.", name)
			}
		}
	}

	for i := 0; i < int(n.NamedChildCount()); i++ {
		if err := walk(n.NamedChild(i), src); err != nil {
			return err
		}
	}
	return nil
}

// describeSyntaxError names the first offending fragment without positions.
func describeSyntaxError(root *sitter.Node, src []byte) string {
	bad := firstErrorNode(root)
	if bad == nil {
		return "Generated code has a Python syntax error; rewrite the complete file."
	}
	if bad.IsMissing() {
		return fmt.Sprintf("Generated code has a Python syntax error: missing `%s`; rewrite the complete file.", bad.Type())
	}
	fragment := strings.TrimSpace(bad.Content(src))
	if len([]rune(fragment)) > 60 {
		fragment = string([]rune(fragment)[:60]) + "..."
	}
	if fragment == "" {
		return "Generated code has a Python syntax error; rewrite the complete file."
	}
	return fmt.Sprintf("Generated code has a Python syntax error near `%s`; rewrite the complete file.", fragment)
}

func firstErrorNode(n *sitter.Node) *sitter.Node {
	if n.Type() == "ERROR" || n.IsMissing() {
		return n
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if !child.HasError() && !child.IsMissing() {
			continue
		}
		if found := firstErrorNode(child); found != nil {
			return found
		}
	}
	return nil
}
