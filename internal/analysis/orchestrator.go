// Package analysis turns a repository's files into a technical analysis and
// a user manual with two sequential model calls.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"repolens/internal/llm"
	"repolens/internal/prompt"
	"repolens/internal/sampler"
	"repolens/internal/scan"
	"repolens/internal/types"
)

const (
	DefaultTemperature     float32 = 0.3
	DefaultMaxOutputTokens int32   = 4096

	summaryMaxChars = 300
)

// ErrNoAdmissibleFiles means ingestion produced nothing worth analyzing.
// Callers check for it before paying for a model call.
var ErrNoAdmissibleFiles = errors.New("no admissible files found in repository")

type Options struct {
	Temperature     float32
	MaxOutputTokens int32
	Sampler         *sampler.Sampler
	Logger          *log.Logger
	Now             func() time.Time
	NewID           func() string
}

type Orchestrator struct {
	llm       llm.Client
	sampler   *sampler.Sampler
	temp      float32
	maxTokens int32
	log       *log.Logger
	now       func() time.Time
	newID     func() string
}

func NewOrchestrator(client llm.Client, opts Options) *Orchestrator {
	if opts.Temperature <= 0 {
		opts.Temperature = DefaultTemperature
	}
	if opts.MaxOutputTokens <= 0 {
		opts.MaxOutputTokens = DefaultMaxOutputTokens
	}
	if opts.Sampler == nil {
		opts.Sampler = sampler.New(sampler.Options{})
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &Orchestrator{
		llm:       client,
		sampler:   opts.Sampler,
		temp:      opts.Temperature,
		maxTokens: opts.MaxOutputTokens,
		log:       opts.Logger,
		now:       opts.Now,
		newID:     opts.NewID,
	}
}

// AnalyzeRepository samples files, asks for a technical analysis, then asks
// for a user manual derived from it. Model failures are returned as-is.
func (o *Orchestrator) AnalyzeRepository(ctx context.Context, files *scan.FileMapping, repoName string) (*types.AnalysisResult, error) {
	report(ctx, StageSampling, fmt.Sprintf("%d files", files.Len()))
	structure := prompt.RenderStructure(files.SortedPaths())
	selected := o.sampler.Select(files)
	o.log.Printf("analysis %s: %d of %d files selected", repoName, len(selected), files.Len())

	report(ctx, StageAnalyzing, "")
	technical, err := o.complete(llm.WithPhase(ctx, "analysis"), prompt.AnalysisSystem, prompt.BuildAnalysisPrompt(repoName, structure, selected))
	if err != nil {
		return nil, fmt.Errorf("technical analysis: %w", err)
	}

	report(ctx, StageWritingManual, "")
	manual, err := o.complete(llm.WithPhase(ctx, "manual"), prompt.ManualSystem, prompt.BuildManualPrompt(repoName, structure, technical))
	if err != nil {
		return nil, fmt.Errorf("user manual: %w", err)
	}

	return &types.AnalysisResult{
		ID:                o.newID(),
		RepositoryName:    repoName,
		TechnicalAnalysis: technical,
		UserManual:        manual,
		AnalyzedFiles:     len(selected),
		TotalFiles:        files.Len(),
		AnalysisSummary:   Summarize(technical),
		CreatedAt:         o.now().UTC(),
	}, nil
}

func (o *Orchestrator) complete(ctx context.Context, system, userPrompt string) (string, error) {
	out, err := o.llm.Generate(ctx, llm.Request{
		System:          system,
		Prompt:          userPrompt,
		Temperature:     o.temp,
		MaxOutputTokens: o.maxTokens,
	})
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(out) == "" {
		return "", &llm.Error{Provider: o.llm.Name(), Err: llm.ErrEmptyResponse}
	}
	return out, nil
}

// Summarize returns the first prose paragraph of a markdown document,
// flattened to one line and capped at 300 characters.
func Summarize(markdown string) string {
	for _, para := range strings.Split(strings.ReplaceAll(markdown, "\r\n", "\n"), "\n\n") {
		var lines []string
		for _, line := range strings.Split(para, "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "```") {
				continue
			}
			lines = append(lines, line)
		}
		if len(lines) == 0 {
			continue
		}
		s := strings.Join(lines, " ")
		if r := []rune(s); len(r) > summaryMaxChars {
			s = strings.TrimSpace(string(r[:summaryMaxChars]))
		}
		return s
	}
	return ""
}
