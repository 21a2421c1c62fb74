// Package prompt renders the text sent to the language model. Everything
// here is pure string formatting.
package prompt

import (
	"fmt"
	"path"
	"strings"

	"repolens/internal/scan"
)

const (
	AnalysisSystem = "You are a senior software architect. You read source repositories and write precise, well-structured technical analyses in Markdown."
	ManualSystem   = "You are a technical writer. You turn technical analyses into clear, task-oriented user manuals in Markdown."
	ExplainSystem  = "You are an experienced programmer who explains code clearly to other developers."
	GenerateSystem = "You are an expert programmer. You write clean, idiomatic, working code with brief comments."
)

// BuildAnalysisPrompt embeds the repository structure and the sampled files
// and asks for a technical analysis.
func BuildAnalysisPrompt(repoName, structure string, files []scan.FileEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze the repository %q.\n\n", repoName)
	fence := fenceFor(structure)
	fmt.Fprintf(&b, "## Repository structure\n\n%s\n%s\n%s\n\n", fence, structure, fence)

	b.WriteString("## Selected files\n")
	for _, f := range files {
		fence = fenceFor(f.Content)
		fmt.Fprintf(&b, "\n### %s\n\n%s%s\n%s\n%s\n", f.Path, fence, fenceLanguage(f.Path), f.Content, fence)
	}

	b.WriteString(`
## Instructions

Write a technical analysis of this repository in Markdown covering:
1. Application type: what kind of application or library this is and what problem it solves.
2. Languages and frameworks: the main programming languages, frameworks and notable libraries.
3. Key features: the main capabilities, with the files that implement them.
4. Architecture: the major components, how they interact, and how data flows between them.
5. Deployment notes: how the project is built, configured and deployed, including required environment variables and external services.

Base every statement on the files above. If something cannot be determined, say so instead of guessing.
`)
	return b.String()
}

// BuildManualPrompt asks for a user manual derived from a previous analysis.
func BuildManualPrompt(repoName, structure, analysis string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write a user manual for the repository %q.\n\n", repoName)
	if strings.TrimSpace(structure) != "" {
		fence := fenceFor(structure)
		fmt.Fprintf(&b, "## Repository structure\n\n%s\n%s\n%s\n\n", fence, structure, fence)
	}
	b.WriteString("## Technical analysis\n\n")
	b.WriteString(analysis)
	b.WriteString(`

## Instructions

Using the analysis above, write a user manual in Markdown with these sections:
1. Installation: prerequisites and step-by-step setup.
2. Quick start: the shortest path to a first successful run.
3. Feature walkthrough: each main feature and how to use it.
4. Common workflows: typical end-to-end tasks a user performs.
5. Troubleshooting: likely problems and how to resolve them.

Write for end users of the project, not for its maintainers.
`)
	return b.String()
}

// BuildExplainPrompt asks for an explanation of a code snippet.
func BuildExplainPrompt(code, language string) string {
	language = strings.TrimSpace(language)
	var b strings.Builder
	if language != "" {
		fmt.Fprintf(&b, "Explain the following %s code.\n\n", language)
	} else {
		b.WriteString("Explain the following code.\n\n")
	}
	fence := fenceFor(code)
	fmt.Fprintf(&b, "%s%s\n%s\n%s\n\n", fence, strings.ToLower(language), code, fence)
	b.WriteString(`Cover:
1. What the code does overall.
2. How it works, step by step.
3. Important concepts, patterns or APIs it uses.
4. Possible bugs, edge cases or improvements.
`)
	return b.String()
}

// BuildGeneratePrompt asks for code implementing a description.
func BuildGeneratePrompt(description, language string) string {
	language = strings.TrimSpace(language)
	if language == "" {
		language = "the most suitable language"
	}
	return fmt.Sprintf(`Write code in %s for the following request:

%s

Return the complete code in a single fenced code block, followed by a short explanation of how to run it.
`, language, strings.TrimSpace(description))
}

var fenceLanguages = map[string]string{
	".go":    "go",
	".js":    "javascript",
	".jsx":   "jsx",
	".ts":    "typescript",
	".tsx":   "tsx",
	".py":    "python",
	".rb":    "ruby",
	".java":  "java",
	".kt":    "kotlin",
	".rs":    "rust",
	".php":   "php",
	".cs":    "csharp",
	".c":     "c",
	".h":     "c",
	".cpp":   "cpp",
	".swift": "swift",
	".sh":    "bash",
	".sql":   "sql",
	".json":  "json",
	".yaml":  "yaml",
	".yml":   "yaml",
	".toml":  "toml",
	".md":    "markdown",
	".html":  "html",
	".css":   "css",
}

func fenceLanguage(p string) string {
	return fenceLanguages[strings.ToLower(path.Ext(p))]
}

// fenceFor returns a backtick fence longer than any backtick run in content,
// so embedded fences cannot close the block early.
func fenceFor(content string) string {
	longest, run := 0, 0
	for i := 0; i < len(content); i++ {
		if content[i] != '`' {
			run = 0
			continue
		}
		run++
		if run > longest {
			longest = run
		}
	}
	if longest < 3 {
		return "```"
	}
	return strings.Repeat("`", longest+1)
}
