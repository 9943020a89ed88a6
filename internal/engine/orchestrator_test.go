package engine_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luapack/luapack/internal/engine"
	"github.com/luapack/luapack/pkg/luadep"
)

// fakeEngine records the plan it was asked to build.
type fakeEngine struct {
	name      string
	available bool
	built     *engine.Plan
}

func (f *fakeEngine) Name() string        { return f.name }
func (f *fakeEngine) Description() string { return "test engine" }
func (f *fakeEngine) Available() bool     { return f.available }

func (f *fakeEngine) Build(_ context.Context, plan *engine.Plan) error {
	f.built = plan

	return nil
}

type noDiscovery struct{}

func (noDiscovery) Discover(context.Context) (luadep.DiscoveredPaths, error) {
	return luadep.DiscoveredPaths{}, nil
}

func writeScript(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func newOrchestrator(fake *fakeEngine) *engine.Orchestrator {
	return engine.NewOrchestrator(
		engine.NewRegistry(fake),
		engine.WithDiscoverer(noDiscovery{}),
	)
}

func TestRegistryLookup(t *testing.T) {
	t.Parallel()

	registry := engine.DefaultRegistry("")

	eng, err := registry.Lookup("luastatic")
	require.NoError(t, err)
	assert.Equal(t, "luastatic", eng.Name())

	_, err = registry.Lookup("no-such-engine")
	require.ErrorIs(t, err, engine.ErrUnknownEngine)
}

func TestDefaultRegistryListsAllEngines(t *testing.T) {
	t.Parallel()

	names := make([]string, 0)
	for _, eng := range engine.DefaultRegistry("").List() {
		names = append(names, eng.Name())
	}

	assert.Equal(t,
		[]string{"luastatic", "srlua", "winsrlua515", "winsrlua548", "linsrlua515", "linsrlua548"},
		names)
}

func TestPlanAnalyzesDependencies(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	entry := writeScript(t, dir, "main.lua", "require('util')\n")
	util := writeScript(t, dir, "util.lua", "return {}\n")

	plan, err := newOrchestrator(&fakeEngine{name: "fake", available: true}).
		Plan(context.Background(), engine.BuildRequest{Entry: entry})
	require.NoError(t, err)

	assert.Equal(t, entry, plan.Entry)
	assert.Equal(t, []string{util}, plan.Scripts)
	assert.Empty(t, plan.Libraries)
	assert.Equal(t, []string{"util"}, plan.Names[util], "require references travel with the plan for bundling engines")
}

func TestPlanManualIncludeDeduplicates(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	entry := writeScript(t, dir, "main.lua", "require('util')\n")
	util := writeScript(t, dir, "util.lua", "return {}\n")
	extra := writeScript(t, dir, "extra.lua", "return {}\n")

	plan, err := newOrchestrator(&fakeEngine{name: "fake", available: true}).
		Plan(context.Background(), engine.BuildRequest{
			Entry:         entry,
			ManualInclude: []string{util, extra},
		})
	require.NoError(t, err)

	assert.Equal(t, []string{util, extra}, plan.Scripts, "already-analyzed include is not duplicated")
}

func TestPlanManualIncludeMissingFailsFast(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	entry := writeScript(t, dir, "main.lua", "print('x')\n")

	_, err := newOrchestrator(&fakeEngine{name: "fake", available: true}).
		Plan(context.Background(), engine.BuildRequest{
			Entry:         entry,
			ManualInclude: []string{filepath.Join(dir, "absent.lua")},
		})

	var missing *luadep.ScriptMissingError
	require.ErrorAs(t, err, &missing)
}

func TestPlanManualExclude(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	entry := writeScript(t, dir, "main.lua", "require('util')\nrequire('other')\n")
	util := writeScript(t, dir, "util.lua", "return {}\n")
	other := writeScript(t, dir, "other.lua", "return {}\n")

	plan, err := newOrchestrator(&fakeEngine{name: "fake", available: true}).
		Plan(context.Background(), engine.BuildRequest{
			Entry:         entry,
			ManualExclude: []string{util},
		})
	require.NoError(t, err)

	assert.Equal(t, []string{other}, plan.Scripts)
}

func TestPlanSkipAnalysis(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	// The dynamic require would fail analysis; SkipAnalysis must never
	// reach it.
	entry := writeScript(t, dir, "main.lua", "require(someVariable)\n")
	extra := writeScript(t, dir, "extra.lua", "return {}\n")

	plan, err := newOrchestrator(&fakeEngine{name: "fake", available: true}).
		Plan(context.Background(), engine.BuildRequest{
			Entry:         entry,
			SkipAnalysis:  true,
			ManualInclude: []string{extra},
		})
	require.NoError(t, err)

	assert.Equal(t, []string{extra}, plan.Scripts)
	assert.Empty(t, plan.Libraries)
}

func TestPlanMissingEntry(t *testing.T) {
	t.Parallel()

	_, err := newOrchestrator(&fakeEngine{name: "fake", available: true}).
		Plan(context.Background(), engine.BuildRequest{Entry: filepath.Join(t.TempDir(), "absent.lua")})

	var missing *luadep.ScriptMissingError
	require.ErrorAs(t, err, &missing)
}

func TestBuildDispatchesToEngine(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	entry := writeScript(t, dir, "main.lua", "print('hello')\n")
	output := filepath.Join(dir, "hello-bin")

	fake := &fakeEngine{name: "fake", available: true}

	got, err := newOrchestrator(fake).Build(context.Background(), engine.BuildRequest{
		Entry:      entry,
		EngineName: "fake",
		Output:     output,
	})
	require.NoError(t, err)

	assert.Equal(t, output, got)
	require.NotNil(t, fake.built)
	assert.Equal(t, entry, fake.built.Entry)
}

func TestBuildUnknownEngine(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	entry := writeScript(t, dir, "main.lua", "print('x')\n")

	_, err := newOrchestrator(&fakeEngine{name: "fake", available: true}).
		Build(context.Background(), engine.BuildRequest{Entry: entry, EngineName: "bogus"})
	require.ErrorIs(t, err, engine.ErrUnknownEngine)
}

func TestBuildDefaultOutputDerivedFromEntry(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	entry := writeScript(t, dir, "tool.lua", "print('x')\n")

	fake := &fakeEngine{name: "fake", available: true}

	got, err := newOrchestrator(fake).Build(context.Background(), engine.BuildRequest{
		Entry:      entry,
		EngineName: "fake",
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "tool"), strings.TrimSuffix(got, ".exe"))
	assert.NotEqual(t, entry, got)
}
