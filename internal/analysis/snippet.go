package analysis

import (
	"context"
	"strings"

	"repolens/internal/llm"
	"repolens/internal/prompt"
)

const (
	NoExplanation = "No explanation generated"
	NoCode        = "No code generated"
)

// Explain describes a code snippet. Failures degrade to NoExplanation so
// the caller always has something to show.
func (o *Orchestrator) Explain(ctx context.Context, code, language string) string {
	out, err := o.complete(llm.WithPhase(ctx, "explain"), prompt.ExplainSystem, prompt.BuildExplainPrompt(code, language))
	if err != nil {
		o.log.Printf("explain failed: %v", err)
		return NoExplanation
	}
	return strings.TrimSpace(out)
}

// Generate writes code for a description. Failures degrade to NoCode.
func (o *Orchestrator) Generate(ctx context.Context, description, language string) string {
	out, err := o.complete(llm.WithPhase(ctx, "generate"), prompt.GenerateSystem, prompt.BuildGeneratePrompt(description, language))
	if err != nil {
		o.log.Printf("generate failed: %v", err)
		return NoCode
	}
	return strings.TrimSpace(out)
}
