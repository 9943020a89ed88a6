package luadep_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/luapack/luapack/pkg/luadep"
)

func TestSplitPathTemplates(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{
			name: "plain templates",
			raw:  "/usr/share/lua/5.4/?.lua;/usr/share/lua/5.4/?/init.lua",
			want: []string{"/usr/share/lua/5.4/?.lua", "/usr/share/lua/5.4/?/init.lua"},
		},
		{
			name: "default path marker dropped",
			raw:  "./?.lua;;",
			want: []string{"./?.lua"},
		},
		{
			name: "entries without placeholder dropped",
			raw:  "/usr/share/lua/5.4;./?.lua",
			want: []string{"./?.lua"},
		},
		{
			name: "surrounding whitespace trimmed",
			raw:  "  ./?.lua ; ./lib/?.lua \n",
			want: []string{"./?.lua", "./lib/?.lua"},
		},
		{
			name: "empty input",
			raw:  "",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, luadep.SplitPathTemplates(tt.raw))
		})
	}
}
