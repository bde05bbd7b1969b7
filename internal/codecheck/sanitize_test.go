package codecheck

import "testing"

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain", "  print(1)  \n", "print(1)"},
		{"python fence", "```python\nprint(1)\n```", "print(1)"},
		{"upper tag", "```Python\nprint(1)\n```\n", "print(1)"},
		{"bare fence", "```\nx = 1\n```", "x = 1"},
		{"html fence", "```html\n<p>hi</p>\n```", "<p>hi</p>"},
		{"nested fences", "```\n```python\nx\n```\n```", "x"},
		{"inner backticks kept", "```html\n<p>a ``` b</p>\n```", "<p>a ``` b</p>"},
		{"only leading", "```py\nx = 1", "x = 1"},
		{"empty", "", ""},
		{"fence only", "```", "```"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sanitize(tt.raw); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestSanitizeIdempotent(t *testing.T) {
	inputs := []string{
		"",
		"```",
		"``````",
		"```\n```",
		"```python\n```python\nx\n```\n```",
		"\n\n```html\n<html></html>\n```\n\n",
		"text ``` in the middle",
		"```js\r\nlet a = 1\r\n```\r\n",
	}
	for _, in := range inputs {
		once := Sanitize(in)
		if twice := Sanitize(once); twice != once {
			t.Errorf("Sanitize not idempotent for %q: once=%q twice=%q", in, once, twice)
		}
	}
}

func TestPatch(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"graph = axes.get_graph(lambda x: x**2, x_range=[0, 2])", "graph = axes.plot(lambda x: x**2, x_range=[0, 2])"},
		{"axes.get_graph (f)", "axes.plot(f)"},
		{"axes.plot(f)", "axes.plot(f)"},
		{"get_graph(f)", "get_graph(f)"},
	}
	for _, tt := range tests {
		if got := Patch(tt.in); got != tt.want {
			t.Errorf("Patch(%q) = %q, want %q", tt.in, got, tt.want)
		}
		if got := Patch(Patch(tt.in)); got != Patch(tt.in) {
			t.Errorf("Patch not stable for %q", tt.in)
		}
	}
}
