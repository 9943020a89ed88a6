package luadep

// WithReadFile replaces the file reader, letting tests observe exactly which
// files an analysis touches.
func WithReadFile(readFile func(string) ([]byte, error)) Option {
	return func(a *Analyzer) { a.readFile = readFile }
}

// SplitPathTemplates exposes package.path template splitting to tests.
var SplitPathTemplates = splitPathTemplates
