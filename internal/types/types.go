package types

import "time"

// AnalysisResult is the outcome of analyzing one repository.
type AnalysisResult struct {
	ID                string    `json:"id,omitempty"`
	RepositoryName    string    `json:"repositoryName"`
	RepositoryURL     string    `json:"repositoryUrl,omitempty"`
	TechnicalAnalysis string    `json:"technicalAnalysis"`
	UserManual        string    `json:"userManual"`
	AnalyzedFiles     int       `json:"analyzedFiles"`
	TotalFiles        int       `json:"totalFiles"`
	AnalysisSummary   string    `json:"analysisSummary,omitempty"`
	CreatedAt         time.Time `json:"createdAt,omitempty"`
}

type HistoryKind string

const (
	KindExplain    HistoryKind = "explain"
	KindGenerate   HistoryKind = "generate"
	KindRepository HistoryKind = "repository"
)

// HistoryRecord is one past request of a user. Analysis is set for
// repository records only.
type HistoryRecord struct {
	ID        string          `json:"id"`
	UserID    string          `json:"userId"`
	Kind      HistoryKind     `json:"kind"`
	Title     string          `json:"title"`
	Input     string          `json:"input,omitempty"`
	Output    string          `json:"output,omitempty"`
	Language  string          `json:"language,omitempty"`
	Analysis  *AnalysisResult `json:"analysis,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// CodeSample is a canned snippet offered to users.
type CodeSample struct {
	ID       string `json:"id" yaml:"id"`
	Title    string `json:"title" yaml:"title"`
	Language string `json:"language" yaml:"language"`
	Code     string `json:"code" yaml:"code"`
}
