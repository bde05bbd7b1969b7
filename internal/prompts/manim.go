package prompts

import (
	"fmt"
	"strings"
)

// ============================================================================
// Manim Prompts (视频生成)
// ============================================================================

// ManimSystemPrompt constrains the model to code that runs on manim 0.19.x.
const ManimSystemPrompt = `You write MANIM Community Edition (manimce) Python code targeting manim==0.19.x.

Return ONLY a single Python file as plain text (no Markdown fences).

Hard rules:
- Must start with: from manim import *
- Must define exactly: class GeneratedScene(Scene): and a construct(self) method
- Do not import anything else (no os/sys/subprocess/pathlib/requests/etc.).
- No file/network access. No reading/writing files. No open(), eval(), exec().
- Keep it short and robust. Avoid rare plugins.

Manim API constraints (IMPORTANT):
- For plotting functions, ALWAYS use Axes.plot(func, x_range=[a, b, step?]) or NumberPlane.plot.
- DO NOT use Axes.get_graph(..., x_range=...). (That breaks on manim 0.19.x.)
- Prefer standard objects: Text/MathTex, Axes, Dot, Line, ValueTracker, always_redraw.

VERY IMPORTANT (Tex strings):
- All Tex/MathTex strings MUST be raw strings: MathTex(r"...") / Tex(r"...").
  This avoids Python escapes like \t turning into a TAB (which causes 'extmass' etc).

Goal: produce a clean educational animation matching the user's request.
`

// hardRulesReminder is restated in every retry and fix prompt.
const hardRulesReminder = `- Start with: from manim import *
- Define: class GeneratedScene(Scene): with construct(self)
- No imports besides manim
- All MathTex/Tex must be raw strings: MathTex(r"...")
`

// ManimInitialPrompt builds the first user prompt for a scene.
func ManimInitialPrompt(request string, durationSeconds float64) string {
	var b strings.Builder
	b.WriteString("Generate a ManimCE educational animation.\n")
	fmt.Fprintf(&b, "Target total duration: about %.1f seconds.\n", durationSeconds)
	b.WriteString("Style constraints:\n")
	b.WriteString("- Clear visuals, not cluttered.\n")
	b.WriteString("- Keep everything inside frame.\n")
	b.WriteString("- Use MathTex for equations and animate steps cleanly.\n")
	b.WriteString("- IMPORTANT: All Tex/MathTex strings must be RAW strings: MathTex(r\"...\").\n")
	b.WriteString("User request:\n")
	b.WriteString(request)
	b.WriteString("\n")
	return b.String()
}

// ManimRetryPrompt feeds a failed candidate back with its failure reason.
func ManimRetryPrompt(reason, request, previous string) string {
	var b strings.Builder
	b.WriteString("Your previous output did NOT pass validation.\n")
	fmt.Fprintf(&b, "Failure reason:\n%s\n\n", reason)
	b.WriteString("Rewrite the COMPLETE Python file from scratch so it passes ALL constraints.\n")
	b.WriteString("Hard rules reminder:\n")
	b.WriteString(hardRulesReminder)
	b.WriteString("\n")
	fmt.Fprintf(&b, "Original user request:\n%s\n\n", request)
	fmt.Fprintf(&b, "Previous (bad) code:\n%s\n", previous)
	return b.String()
}

// ManimFixPrompt asks for a repaired script after a failed render.
func ManimFixPrompt(request, code, stderr string) string {
	var b strings.Builder
	b.WriteString("The following Manim code failed to render on manimce==0.19.x.\n")
	b.WriteString("Output ONLY the fixed complete Python file.\n")
	b.WriteString("Hard rules:\n")
	b.WriteString(hardRulesReminder)
	b.WriteString("\n")
	fmt.Fprintf(&b, "ORIGINAL USER REQUEST:\n%s\n\n", request)
	fmt.Fprintf(&b, "CURRENT CODE:\n%s\n\n", code)
	fmt.Fprintf(&b, "RENDER ERROR (stderr):\n%s\n", stderr)
	return b.String()
}
