package luadep

// Manifest is the analyzer output handed to the downstream compiler: every
// reachable script except the entry, ordered so each script precedes
// everything that depends on it, plus the deduplicated native libraries.
// Names maps each script to the require references that resolved to it, as
// written in the source, so bundlers can register chunks under the names the
// scripts will actually ask for.
type Manifest struct {
	Scripts   []string            `json:"scripts"         yaml:"scripts"`
	Libraries []string            `json:"libraries"       yaml:"libraries"`
	Names     map[string][]string `json:"names,omitempty" yaml:"names,omitempty"`
}

// buildOrder linearizes the finished graph by post-order depth-first
// traversal from the entry: a script is appended only after all of its
// children are, so a diamond-shared dependency appears exactly once, at its
// first completed visit. The entry itself is omitted.
func buildOrder(g *Graph) []string {
	order := make([]string, 0, len(g.Children))
	emitted := map[string]struct{}{g.Entry: {}}

	var visit func(node string)
	visit = func(node string) {
		for _, child := range g.Children[node] {
			if _, done := emitted[child]; done {
				continue
			}

			emitted[child] = struct{}{}
			visit(child)
			order = append(order, child)
		}
	}

	visit(g.Entry)

	return order
}
