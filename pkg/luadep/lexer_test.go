package luadep_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luapack/luapack/pkg/luadep"
)

func scan(t *testing.T, src string) []luadep.RequireSite {
	t.Helper()

	sites, err := luadep.ScanRequires([]byte(src), "test.lua")
	require.NoError(t, err)

	return sites
}

func modules(sites []luadep.RequireSite) []string {
	names := make([]string, len(sites))
	for i, site := range sites {
		names[i] = site.Module
	}

	return names
}

func TestScanRequiresCallForms(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  string
		want []string
	}{
		{"paren double quote", `require("json")`, []string{"json"}},
		{"paren single quote", `require('json')`, []string{"json"}},
		{"bare double quote", `require "json"`, []string{"json"}},
		{"bare single quote", `require 'json'`, []string{"json"}},
		{"long bracket", `require [[json]]`, []string{"json"}},
		{"leveled long bracket", `require [==[json]==]`, []string{"json"}},
		{"paren long bracket", `require([[json]])`, []string{"json"}},
		{"dotted module", `require("socket.http")`, []string{"socket.http"}},
		{"relative module", `require("./util")`, []string{"./util"}},
		{"spaces inside parens", `require( "json" )`, []string{"json"}},
		{"space before parens", `require ("json")`, []string{"json"}},
		{"multiple calls in order", "require('a')\nrequire('b')\nrequire('c')", []string{"a", "b", "c"}},
		{"pcall guard", `pcall(require, "optional")`, []string{"optional"}},
		{"pcall guard spaced", `local ok = pcall( require , "optional" )`, []string{"optional"}},
		{"pcall with nested direct call", `pcall(require("inner"))`, []string{"inner"}},
		{"assignment of result", `local json = require("json")`, []string{"json"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, modules(scan(t, tt.src)))
		})
	}
}

func TestScanRequiresIgnoresStringsAndComments(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  string
	}{
		{"line comment", `-- require("hidden")`},
		{"trailing line comment", `local x = 1 -- require("hidden")`},
		{"block comment", "--[[\nrequire('hidden')\n]]"},
		{"leveled block comment", "--[=[ require('hidden') ]=]"},
		{"double quoted string", `print("require('hidden')")`},
		{"single quoted string", `print('require("hidden")')`},
		{"long string", `local doc = [[ require("hidden") ]]`},
		{"escaped quote stays in string", `print("a\" require('hidden') ")`},
		{"longer identifier prefix", `myrequire("hidden")`},
		{"longer identifier suffix", `require_all("hidden")`},
		{"digit boundary", `local x = 0require`},
		{"require as value", `local r = require`},
		{"require in table key", `t[require] = 1`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Empty(t, scan(t, tt.src))
		})
	}
}

func TestScanRequiresEscapedBackslashClosesString(t *testing.T) {
	t.Parallel()

	// The backslash pair before the close quote is itself escaped, so the
	// string really ends and the following call is live code.
	sites := scan(t, `print("x\\") require("live")`)
	assert.Equal(t, []string{"live"}, modules(sites))
}

func TestScanRequiresLongBracketLevelMatching(t *testing.T) {
	t.Parallel()

	// ]=] must not close a level-0 bracket; the require stays hidden.
	sites := scan(t, "local s = [[ a ]=] require('hidden') ]] require('live')")
	assert.Equal(t, []string{"live"}, modules(sites))
}

func TestScanRequiresLineNumbers(t *testing.T) {
	t.Parallel()

	src := "local a = 1\n\nrequire('first')\nlocal s = [[\nmulti\nline]]\nrequire('second')\n"
	sites := scan(t, src)

	require.Len(t, sites, 2)
	assert.Equal(t, 3, sites[0].Line)
	assert.Equal(t, 7, sites[1].Line)
	assert.Equal(t, "test.lua", sites[0].File)
}

func TestScanRequiresDynamicArguments(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  string
		line int
	}{
		{"variable argument", `require(moduleName)`, 1},
		{"concatenation", `require("a" .. "b")`, 1},
		{"literal then concat bare form", `require "a" .. suffix`, 1},
		{"concat after closing newline", "local m = require('a'\n.. b)", 1},
		{"nested call", `require(getName())`, 1},
		{"pcall variable argument", `pcall(require, moduleName)`, 1},
		{"pcall concatenation", `pcall(require, "a" .. "b")`, 1},
		{"line is reported", "local x = 1\nlocal y = 2\nrequire(name)", 3},
		{"unterminated string", `require("abc`, 1},
		{"unterminated long bracket", `require([[abc`, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := luadep.ScanRequires([]byte(tt.src), "dyn.lua")
			require.Error(t, err)

			var dynErr *luadep.DynamicRequireError
			require.ErrorAs(t, err, &dynErr)
			assert.Equal(t, "dyn.lua", dynErr.File)
			assert.Equal(t, tt.line, dynErr.Line)
			assert.NotEmpty(t, dynErr.Statement)
			assert.Equal(t, luadep.KindDynamicRequire, dynErr.Kind())
		})
	}
}

func TestScanRequiresUnterminatedStringOutsideCall(t *testing.T) {
	t.Parallel()

	_, err := luadep.ScanRequires([]byte("local s = \"never closed\nrequire('x')"), "u.lua")
	require.Error(t, err)

	var dynErr *luadep.DynamicRequireError
	assert.True(t, errors.As(err, &dynErr))
}

func TestScanRequiresEmptySource(t *testing.T) {
	t.Parallel()

	assert.Empty(t, scan(t, ""))
	assert.Empty(t, scan(t, "local x = 1\nprint(x)\n"))
}
