// Package artifact persists the markdown reports produced by a repository
// analysis, keyed by analysis id and document name.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
)

const (
	TechnicalAnalysisName = "technical_analysis.md"
	UserManualName        = "user_manual.md"
)

// Store defines operations for persisting analysis reports.
type Store interface {
	Put(ctx context.Context, analysisID, name string, content []byte) error
	Get(ctx context.Context, analysisID, name string) ([]byte, error)
	List(ctx context.Context, analysisID string) ([]string, error)
	// URL returns a direct download link, or "" when the backend has none.
	URL(ctx context.Context, analysisID, name string) (string, error)
}

var ErrNotFound = errors.New("artifact not found")

func validate(analysisID, name string) (string, string, error) {
	analysisID = strings.TrimSpace(analysisID)
	name = strings.TrimLeft(strings.TrimSpace(name), "/")
	if analysisID == "" {
		return "", "", fmt.Errorf("analysis_id is required")
	}
	if strings.Contains(analysisID, "/") {
		return "", "", fmt.Errorf("invalid analysis_id %q", analysisID)
	}
	if name == "" {
		return "", "", fmt.Errorf("name is required")
	}
	if path.Clean(name) != name || strings.HasPrefix(name, "..") {
		return "", "", fmt.Errorf("invalid name %q", name)
	}
	return analysisID, name, nil
}

func objectKey(analysisID, name string) string {
	return analysisID + "/" + name
}

// SaveReports stores the technical analysis and the user manual of one
// analysis.
func SaveReports(ctx context.Context, s Store, analysisID, technicalAnalysis, userManual string) error {
	if err := s.Put(ctx, analysisID, TechnicalAnalysisName, []byte(technicalAnalysis)); err != nil {
		return fmt.Errorf("store %s: %w", TechnicalAnalysisName, err)
	}
	if err := s.Put(ctx, analysisID, UserManualName, []byte(userManual)); err != nil {
		return fmt.Errorf("store %s: %w", UserManualName, err)
	}
	return nil
}
