package analysis

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"repolens/internal/artifact"
	"repolens/internal/cache"
	"repolens/internal/github"
	"repolens/internal/history"
	"repolens/internal/scan"
	"repolens/internal/types"
)

// ErrInvalidInput marks requests that can never succeed as sent.
var ErrInvalidInput = errors.New("invalid input")

// RepoFetcher loads every admissible file of a remote repository.
type RepoFetcher interface {
	FetchAll(ctx context.Context, owner, repo string) (*scan.FileMapping, error)
}

// FetcherFor returns a RepoFetcher acting with the caller's token, which
// may be empty.
type FetcherFor func(token string) (RepoFetcher, error)

type ServiceConfig struct {
	Orchestrator *Orchestrator
	Fetcher      FetcherFor
	Extractor    *scan.Extractor
	Caches       *cache.Caches
	History      history.Store
	Artifacts    artifact.Store
	Logger       *log.Logger
	Now          func() time.Time
}

// Service resolves a repository source, runs the orchestrator, and records
// the outcome in the cache, history and report store.
type Service struct {
	orch      *Orchestrator
	fetcher   FetcherFor
	extractor *scan.Extractor
	caches    *cache.Caches
	history   history.Store
	artifacts artifact.Store
	log       *log.Logger
	now       func() time.Time
}

func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Orchestrator == nil {
		return nil, fmt.Errorf("analysis: orchestrator is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.Extractor == nil {
		cfg.Extractor = scan.NewExtractor(cfg.Logger)
	}
	if cfg.Caches == nil {
		cfg.Caches = cache.NewCaches()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{
		orch:      cfg.Orchestrator,
		fetcher:   cfg.Fetcher,
		extractor: cfg.Extractor,
		caches:    cfg.Caches,
		history:   cfg.History,
		artifacts: cfg.Artifacts,
		log:       cfg.Logger,
		now:       cfg.Now,
	}, nil
}

// AnalyzeURL analyzes a GitHub repository. Results are cached for an hour
// per normalized repository URL and per token, so an analysis fetched with
// credentials is only served back to callers presenting the same token.
func (s *Service) AnalyzeURL(ctx context.Context, rawURL, token, userID string) (*types.AnalysisResult, error) {
	owner, repo, err := github.ParseRepoURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if s.fetcher == nil {
		return nil, fmt.Errorf("analysis: no repository fetcher configured")
	}
	canonical := github.NormalizeRepoURL("https://github.com/" + owner + "/" + repo)
	key := cache.ScopedRepoAnalysisKey(canonical, token)

	fresh := false
	res, err := s.caches.Analyses.GetOrSet(key, func() (*types.AnalysisResult, error) {
		fetcher, err := s.fetcher(token)
		if err != nil {
			return nil, err
		}
		report(ctx, StageFetching, canonical)
		files, err := fetcher.FetchAll(ctx, owner, repo)
		if err != nil {
			return nil, err
		}
		if files.Len() == 0 {
			return nil, ErrNoAdmissibleFiles
		}
		r, err := s.orch.AnalyzeRepository(ctx, files, owner+"/"+repo)
		if err != nil {
			return nil, err
		}
		r.RepositoryURL = canonical
		fresh = true
		return r, nil
	}, cache.RepoAnalysisTTL)
	if err != nil {
		return nil, err
	}
	if !fresh {
		s.log.Printf("analysis cache hit: %s", canonical)
	}
	return s.finish(ctx, res, fresh, userID), nil
}

// AnalyzeArchive analyzes an uploaded zip archive. name is the upload's
// file name and becomes the repository name.
func (s *Service) AnalyzeArchive(ctx context.Context, name string, data []byte, userID string) (*types.AnalysisResult, error) {
	report(ctx, StageFetching, name)
	files, err := s.extractor.Extract(data)
	if err != nil {
		return nil, err
	}
	return s.analyzeFiles(ctx, files, name, userID)
}

// AnalyzeArchiveFile is AnalyzeArchive for an archive already on disk.
func (s *Service) AnalyzeArchiveFile(ctx context.Context, name, archivePath, userID string) (*types.AnalysisResult, error) {
	report(ctx, StageFetching, name)
	files, err := s.extractor.ExtractFile(archivePath)
	if err != nil {
		return nil, err
	}
	return s.analyzeFiles(ctx, files, name, userID)
}

func (s *Service) analyzeFiles(ctx context.Context, files *scan.FileMapping, name, userID string) (*types.AnalysisResult, error) {
	if files.Len() == 0 {
		return nil, ErrNoAdmissibleFiles
	}
	res, err := s.orch.AnalyzeRepository(ctx, files, archiveRepoName(name))
	if err != nil {
		return nil, err
	}
	return s.finish(ctx, res, true, userID), nil
}

func archiveRepoName(name string) string {
	base := path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	base = strings.TrimSuffix(base, path.Ext(base))
	if base == "" || base == "." || base == "/" {
		return "uploaded-repository"
	}
	return base
}

// finish stores reports for fresh results and records history. Storage
// failures are logged; the analysis itself already succeeded.
func (s *Service) finish(ctx context.Context, res *types.AnalysisResult, fresh bool, userID string) *types.AnalysisResult {
	if fresh && s.artifacts != nil {
		if err := artifact.SaveReports(ctx, s.artifacts, res.ID, res.TechnicalAnalysis, res.UserManual); err != nil {
			s.log.Printf("artifact store: analysis %s: %v", res.ID, err)
		}
	}
	out := *res
	s.record(ctx, types.HistoryRecord{
		UserID:   userID,
		Kind:     types.KindRepository,
		Title:    out.RepositoryName,
		Input:    out.RepositoryURL,
		Output:   out.AnalysisSummary,
		Analysis: &out,
	})
	report(ctx, StageDone, out.ID)
	return &out
}

// Explain describes a snippet and records it in the caller's history.
func (s *Service) Explain(ctx context.Context, code, language, userID string) string {
	out := s.orch.Explain(ctx, code, language)
	s.record(ctx, types.HistoryRecord{
		UserID:   userID,
		Kind:     types.KindExplain,
		Title:    title(code),
		Input:    code,
		Output:   out,
		Language: language,
	})
	return out
}

// Generate writes code for a description and records it in history.
func (s *Service) Generate(ctx context.Context, description, language, userID string) string {
	out := s.orch.Generate(ctx, description, language)
	s.record(ctx, types.HistoryRecord{
		UserID:   userID,
		Kind:     types.KindGenerate,
		Title:    title(description),
		Input:    description,
		Output:   out,
		Language: language,
	})
	return out
}

func (s *Service) record(ctx context.Context, rec types.HistoryRecord) {
	if s.history == nil || strings.TrimSpace(rec.UserID) == "" {
		return
	}
	rec.ID = uuid.NewString()
	rec.CreatedAt = s.now().UTC()
	if err := s.history.Save(ctx, rec); err != nil {
		s.log.Printf("history: save %s for %s: %v", rec.Kind, rec.UserID, err)
		return
	}
	s.caches.History.Delete(cache.HistoryKey(rec.UserID))
}

func title(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if r := []rune(s); len(r) > 80 {
		s = string(r[:80]) + "..."
	}
	return s
}
