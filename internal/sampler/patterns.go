package sampler

import "regexp"

// Pattern marks a class of conventionally important files.
type Pattern struct {
	Purpose string
	Expr    *regexp.Regexp
}

// DefaultPatterns is matched in order against repo-relative paths. Earlier
// entries win when the file ceiling is small.
var DefaultPatterns = []Pattern{
	{Purpose: "readme", Expr: regexp.MustCompile(`(?i)(^|/)readme(\.[a-z]+)?$`)},
	{Purpose: "node manifest", Expr: regexp.MustCompile(`(?i)(^|/)package\.json$`)},
	{Purpose: "python requirements", Expr: regexp.MustCompile(`(?i)(^|/)requirements\.txt$`)},
	{Purpose: "python project", Expr: regexp.MustCompile(`(?i)(^|/)(setup\.py|pyproject\.toml)$`)},
	{Purpose: "go module", Expr: regexp.MustCompile(`(?i)(^|/)go\.mod$`)},
	{Purpose: "rust manifest", Expr: regexp.MustCompile(`(?i)(^|/)cargo\.toml$`)},
	{Purpose: "jvm build", Expr: regexp.MustCompile(`(?i)(^|/)(pom\.xml|build\.gradle(\.kts)?)$`)},
	{Purpose: "ruby/php manifest", Expr: regexp.MustCompile(`(?i)(^|/)(gemfile|composer\.json)$`)},
	{Purpose: "main entry point", Expr: regexp.MustCompile(`(?i)(^|/)main\.(js|jsx|ts|tsx|py|go|java|rb|php|rs|c|cpp|cs|kt|swift)$`)},
	{Purpose: "index entry point", Expr: regexp.MustCompile(`(?i)(^|/)index\.(js|jsx|ts|tsx|html|php)$`)},
	{Purpose: "app entry point", Expr: regexp.MustCompile(`(?i)(^|/)app\.(js|jsx|ts|tsx|py|rb|php)$`)},
	{Purpose: "server entry point", Expr: regexp.MustCompile(`(?i)(^|/)server\.(js|ts|py|go)$`)},
	{Purpose: "environment example", Expr: regexp.MustCompile(`(?i)(^|/)\.env\.(example|sample|template)$`)},
	{Purpose: "container build", Expr: regexp.MustCompile(`(?i)(^|/)dockerfile$`)},
	{Purpose: "container orchestration", Expr: regexp.MustCompile(`(?i)(^|/)(docker-)?compose\.ya?ml$`)},
	{Purpose: "schema", Expr: regexp.MustCompile(`(?i)(^|/)schema\.(prisma|sql|graphql|gql|json|ts|js|py)$`)},
	{Purpose: "models", Expr: regexp.MustCompile(`(?i)(^|/)models?/`)},
	{Purpose: "controllers", Expr: regexp.MustCompile(`(?i)(^|/)controllers?/`)},
	{Purpose: "views", Expr: regexp.MustCompile(`(?i)(^|/)(views?|components?|pages?)/`)},
	{Purpose: "utilities", Expr: regexp.MustCompile(`(?i)(^|/)(utils?|helpers?|lib)/`)},
	{Purpose: "tests", Expr: regexp.MustCompile(`(?i)((^|/)(tests?|__tests__|spec)/|_test\.go$|\.(test|spec)\.(js|ts|jsx|tsx)$)`)},
}
