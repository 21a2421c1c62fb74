package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"repolens/internal/analysis"
	"repolens/internal/app"
	"repolens/internal/artifact"
	"repolens/internal/config"
	"repolens/internal/scan"
	"repolens/internal/types"
)

var flagOut string

var rootCmd = &cobra.Command{
	Use:   "repolens-analyze <github-url|archive.zip|directory>",
	Short: "Analyze one repository and write its reports as markdown",
	Long: `Analyze a GitHub repository, a local zip archive or a local checkout and
write technical_analysis.md and user_manual.md into the output directory.`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cmd.Flags())
		if err != nil {
			return err
		}
		return run(cmd.Context(), cfg, args[0], flagOut)
	},
}

func init() {
	rootCmd.Flags().StringVarP(&flagOut, "out", "o", "out", "output directory")
	rootCmd.Flags().String("provider", "", "LLM provider: gemini, openai, groq or fake")
	rootCmd.Flags().String("model", "", "LLM model id")
}

func run(ctx context.Context, cfg *config.Config, source, outDir string) error {
	client, err := app.NewLLM(ctx, cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	orch := app.NewOrchestrator(cfg, client)
	ctx = analysis.WithProgress(ctx, func(stage analysis.Stage, detail string) {
		if detail != "" {
			log.Printf("%s: %s", stage, detail)
			return
		}
		log.Printf("%s", stage)
	})

	var res *types.AnalysisResult
	switch kind := sourceKind(source); kind {
	case "archive", "directory":
		files, err := loadLocal(kind, source)
		if err != nil {
			return err
		}
		if files.Len() == 0 {
			return analysis.ErrNoAdmissibleFiles
		}
		res, err = orch.AnalyzeRepository(ctx, files, localName(source))
		if err != nil {
			return err
		}
	default:
		fetcher, err := app.NewFetcher(cfg)
		if err != nil {
			return err
		}
		svc, err := analysis.NewService(analysis.ServiceConfig{
			Orchestrator: orch,
			Fetcher:      app.FetcherFor(fetcher),
		})
		if err != nil {
			return err
		}
		res, err = svc.AnalyzeURL(ctx, source, "", "")
		if err != nil {
			return err
		}
	}
	return writeReports(outDir, res)
}

func sourceKind(source string) string {
	if fi, err := os.Stat(source); err == nil {
		if fi.IsDir() {
			return "directory"
		}
		if strings.EqualFold(filepath.Ext(source), ".zip") {
			return "archive"
		}
	}
	return "url"
}

func loadLocal(kind, source string) (*scan.FileMapping, error) {
	if kind == "directory" {
		return scan.ScanDir(source)
	}
	return scan.ExtractArchiveFile(source)
}

func localName(source string) string {
	abs, err := filepath.Abs(source)
	if err != nil {
		abs = source
	}
	base := filepath.Base(abs)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func writeReports(outDir string, res *types.AnalysisResult) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	for _, doc := range []struct{ name, body string }{
		{artifact.TechnicalAnalysisName, res.TechnicalAnalysis},
		{artifact.UserManualName, res.UserManual},
	} {
		p := filepath.Join(outDir, doc.name)
		if err := os.WriteFile(p, []byte(doc.body), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", p, err)
		}
		log.Printf("wrote %s", p)
	}
	log.Printf("analyzed %d of %d files in %s", res.AnalyzedFiles, res.TotalFiles, res.RepositoryName)
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
