// Package cache names the shared result-cache keys and their lifetimes.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

const (
	RepoAnalysisTTL = time.Hour
	UserReposTTL    = 10 * time.Minute
	HistoryTTL      = 5 * time.Minute
	CodeSamplesTTL  = 24 * time.Hour

	CodeSamplesKey = "code_samples"
)

// RepoAnalysisKey keys an analysis by its normalized repository URL.
func RepoAnalysisKey(normalizedURL string) string {
	return "repo_analysis:" + strings.ToLower(normalizedURL)
}

// ScopedRepoAnalysisKey keys an analysis fetched with token. Anonymous
// fetches share RepoAnalysisKey; authenticated ones are partitioned by a
// digest of the token so private content never reaches other callers.
func ScopedRepoAnalysisKey(normalizedURL, token string) string {
	key := RepoAnalysisKey(normalizedURL)
	if token == "" {
		return key
	}
	sum := sha256.Sum256([]byte(token))
	return key + ":" + hex.EncodeToString(sum[:8])
}

func UserReposKey(userID string) string { return "user_repos:" + userID }

func HistoryKey(userID string) string { return "history:" + userID }
