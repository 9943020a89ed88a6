package luadep

import (
	"log/slog"
	"slices"
)

// Graph is the finished require graph of one analysis. Children maps each
// script to its direct source-file dependencies in first-encountered order.
// Names maps each dependency script to the distinct require references that
// resolved to it, as written in the source. The graph is acyclic; the entry
// is present but excluded from manifests.
type Graph struct {
	Entry    string
	Children map[string][]string
	Names    map[string][]string
}

// builder performs the recursive depth-first traversal for a single
// analysis. Its active-stack, visited-set, graph, and native-set state is
// confined to one invocation; a builder is never reused.
type builder struct {
	resolver *resolver
	readFile func(string) ([]byte, error)
	logger   *slog.Logger
	maxDeps  int

	active     []string
	visited    map[string]struct{}
	graph      *Graph
	natives    []string
	nativeSeen map[string]struct{}
	depCount   int
}

func newBuilder(res *resolver, readFile func(string) ([]byte, error), logger *slog.Logger, maxDeps int) *builder {
	return &builder{
		resolver:   res,
		readFile:   readFile,
		logger:     logger,
		maxDeps:    maxDeps,
		visited:    map[string]struct{}{},
		nativeSeen: map[string]struct{}{},
	}
}

// build traverses from the entry script and returns the dependency graph and
// the deduplicated native artifacts in first-encountered order.
func (b *builder) build(entry string) (*Graph, []string, error) {
	b.graph = &Graph{Entry: entry, Children: map[string][]string{}, Names: map[string][]string{}}

	if err := b.visit(entry); err != nil {
		return nil, nil, err
	}

	return b.graph, b.natives, nil
}

func (b *builder) visit(path string) error {
	// A file already mid-resolution means the traversal bit its own tail.
	for i, active := range b.active {
		if active == path {
			chain := slices.Clone(b.active[i:])
			chain = append(chain, path)

			return &CircularDependencyError{Chain: chain}
		}
	}

	if _, done := b.visited[path]; done {
		return nil
	}

	// The cap bounds work performed, not manifest size: it is checked
	// before the file is even read.
	if path != b.graph.Entry {
		b.depCount++
		if b.depCount > b.maxDeps {
			return &DependencyLimitError{Count: b.depCount, Limit: b.maxDeps}
		}
	}

	src, err := b.readFile(path)
	if err != nil {
		return &ScriptMissingError{Path: path}
	}

	sites, err := ScanRequires(src, path)
	if err != nil {
		return err
	}

	b.active = append(b.active, path)

	for _, site := range sites {
		resolved, err := b.resolver.Resolve(site.Module, path)
		if err != nil {
			return err
		}

		switch resolved.Kind {
		case KindBuiltin:
			b.logger.Debug("builtin require skipped", "module", site.Module, "file", path)
		case KindNative:
			// Native artifacts are leaves: collected once, never
			// recursed into, never counted against the cap.
			if _, seen := b.nativeSeen[resolved.Path]; !seen {
				b.nativeSeen[resolved.Path] = struct{}{}
				b.natives = append(b.natives, resolved.Path)
			}
		case KindSource:
			if !slices.Contains(b.graph.Children[path], resolved.Path) {
				b.graph.Children[path] = append(b.graph.Children[path], resolved.Path)
			}

			// Remember the reference exactly as written: downstream
			// bundling must serve the chunk under the name the script
			// will ask for at runtime.
			if !slices.Contains(b.graph.Names[resolved.Path], site.Module) {
				b.graph.Names[resolved.Path] = append(b.graph.Names[resolved.Path], site.Module)
			}

			if err := b.visit(resolved.Path); err != nil {
				return err
			}
		}
	}

	b.visited[path] = struct{}{}
	b.active = b.active[:len(b.active)-1]

	return nil
}
