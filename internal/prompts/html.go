package prompts

import (
	"fmt"
	"os"
	"strings"

	"github.com/HuiYanWanXiang/HuiYanWanXiang/internal/logger"
)

// ============================================================================
// HTML Prompts (网页生成)
// ============================================================================

// DefaultHTMLSystemPrompt is used when the prompt file is missing or empty.
const DefaultHTMLSystemPrompt = `你是一名资深的物理教育前端工程师。根据用户给出的教学主题，生成一个完整、可直接在浏览器中打开的单文件中文交互式网页。

【输出要求】
- 只输出 HTML 源码，以 <!DOCTYPE html> 开头，以 </html> 结尾，不要使用 Markdown 代码围栏
- CSS 写在 <style> 中，JavaScript 写在 <script> 中，不依赖任何本地文件
- 包含：标题、核心概念讲解、可交互的仿真（Canvas 或 SVG）、可调参数控件、公式说明
- 公式与单位准确，变量命名清晰，界面简洁美观`

// KnowledgeHeader separates the base system prompt from knowledge notes.
const KnowledgeHeader = "\n\n【补充物理领域知识】\n"

// LoadSystemPrompt reads the HTML system prompt from path.
// Parameters:
//   - path: prompt file location.
//
// Returns:
//   - string: file content, or DefaultHTMLSystemPrompt when unreadable or blank.
func LoadSystemPrompt(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("System prompt file unavailable, using built-in prompt: %v", err)
		return DefaultHTMLSystemPrompt
	}
	if strings.TrimSpace(string(data)) == "" {
		logger.Warn("System prompt file %s is empty, using built-in prompt", path)
		return DefaultHTMLSystemPrompt
	}
	return string(data)
}

// HTMLSystemPrompt appends the knowledge notes, if any, to the base prompt.
func HTMLSystemPrompt(base, knowledge string) string {
	if knowledge == "" {
		return base
	}
	return base + KnowledgeHeader + knowledge
}

// HTMLUserPrompt wraps the teaching topic.
func HTMLUserPrompt(topic string) string {
	return fmt.Sprintf("教学主题：%s。请生成中文网页。", topic)
}

// HTMLRetryPrompt asks for a complete document after a failed markup check.
func HTMLRetryPrompt(reason, topic, previous string) string {
	var b strings.Builder
	b.WriteString("上一次输出未通过校验。\n")
	fmt.Fprintf(&b, "失败原因：\n%s\n\n", reason)
	b.WriteString("请从头重新输出完整的 HTML 文件，以 <!DOCTYPE html> 开头、以 </html> 结尾，不要使用 Markdown 代码围栏。\n\n")
	fmt.Fprintf(&b, "%s\n\n", HTMLUserPrompt(topic))
	fmt.Fprintf(&b, "上一次的输出：\n%s\n", previous)
	return b.String()
}
