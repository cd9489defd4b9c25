package ignore_test

import (
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/forksync/ignore"
)

func TestRuleSetMatch(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		matches []string
		misses  []string
	}{
		{
			name:    "exact path",
			pattern: "README.md",
			matches: []string{"README.md", "./README.md"},
			misses:  []string{"docs/README.md", "README.md.bak", "readme.md"},
		},
		{
			name:    "directory prefix",
			pattern: "dist",
			matches: []string{"dist", "dist/app.js", "dist/a/b/c.js"},
			misses:  []string{"distribution/app.js", "src/dist/app.js"},
		},
		{
			name:    "directory with trailing slash",
			pattern: "dist/",
			matches: []string{"dist/app.js"},
			misses:  []string{"dist.txt"},
		},
		{
			name:    "leading dot slash",
			pattern: "./config/local.json",
			matches: []string{"config/local.json"},
		},
		{
			name:    "single star stays in segment",
			pattern: "*.log",
			matches: []string{"error.log"},
			misses:  []string{"logs/error.log", "error.log.txt"},
		},
		{
			name:    "star under directory",
			pattern: "b/*",
			matches: []string{"b/x.txt"},
			misses:  []string{"a.txt", "c/b/x.txt", "b/sub/y.txt"},
		},
		{
			name:    "double star across segments",
			pattern: "src/**/*.snap",
			matches: []string{"src/a/b/x.snap", "src/a/x.snap"},
			misses:  []string{"test/a/x.snap"},
		},
		{
			name:    "leading double star matches root",
			pattern: "**/node_modules",
			matches: []string{"node_modules", "pkg/node_modules"},
			misses:  []string{"node_modules/x/index.js", "node_modules_backup"},
		},
		{
			name:    "double star below directory",
			pattern: "b/**",
			matches: []string{"b/x.txt", "b/sub/y.txt"},
			misses:  []string{"c/b/x.txt"},
		},
		{
			name:    "character class",
			pattern: "file[0-9].txt",
			matches: []string{"file1.txt"},
			misses:  []string{"filex.txt"},
		},
		{
			name:    "case sensitive",
			pattern: "*.TXT",
			matches: []string{"A.TXT"},
			misses:  []string{"a.txt"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs, err := ignore.New(tt.pattern)
			require.NoError(t, err)

			for _, p := range tt.matches {
				got, ok := rs.Match(p)
				assert.True(t, ok, "expected %q to match %q", tt.pattern, p)
				assert.Equal(t, tt.pattern, got)
			}
			for _, p := range tt.misses {
				_, ok := rs.Match(p)
				assert.False(t, ok, "expected %q not to match %q", tt.pattern, p)
			}
		})
	}
}

func TestNewInvalidPattern(t *testing.T) {
	_, err := ignore.New("src/[a-")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "src/[a-")
}

func TestNewSkipsBlankPatterns(t *testing.T) {
	rs, err := ignore.New("", "  ", "/", "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, rs.Patterns())
}

func TestExclude(t *testing.T) {
	rules := ignore.MustNew("b/*", "*.log")

	t.Run("scenario", func(t *testing.T) {
		got := ignore.Exclude([]string{"a.txt", "b/x.txt"}, ignore.MustNew("b/*"))
		assert.Equal(t, []string{"a.txt"}, got)
	})

	t.Run("order preserving", func(t *testing.T) {
		paths := []string{"z.txt", "b/1", "a.txt", "x.log", "m/n.txt"}
		assert.Equal(t, []string{"z.txt", "a.txt", "m/n.txt"}, ignore.Exclude(paths, rules))
	})

	t.Run("idempotent", func(t *testing.T) {
		paths := []string{"a", "b/c", "d.log", "e/f.log", "g"}
		once := ignore.Exclude(paths, rules)
		assert.Equal(t, once, ignore.Exclude(once, rules))
	})

	t.Run("empty rules keep everything", func(t *testing.T) {
		paths := []string{"a", "b"}
		assert.Equal(t, paths, ignore.Exclude(paths, ignore.RuleSet{}))
	})

	t.Run("nil paths", func(t *testing.T) {
		assert.Empty(t, ignore.Exclude(nil, rules))
	})
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		files    map[string]string
		explicit []string
		file     string
		want     []string
		wantErr  bool
	}{
		{
			name:     "explicit first then file",
			files:    map[string]string{".syncignore": "dist/\n"},
			explicit: []string{"*.log"},
			file:     ".syncignore",
			want:     []string{"*.log", "dist/"},
		},
		{
			name:  "comments and blanks skipped",
			files: map[string]string{".syncignore": "# generated\n\n  build  \n\t\n#x\nvendor/\n"},
			file:  ".syncignore",
			want:  []string{"build", "vendor/"},
		},
		{
			name:     "missing file is not an error",
			explicit: []string{"a"},
			file:     "nope.txt",
			want:     []string{"a"},
		},
		{
			name:     "no file configured",
			explicit: []string{"a", "b"},
			want:     []string{"a", "b"},
		},
		{
			name:  "crlf line endings",
			files: map[string]string{"ignore.txt": "a\r\nb\r\n"},
			file:  "ignore.txt",
			want:  []string{"a", "b"},
		},
		{
			name:    "invalid glob in file",
			files:   map[string]string{"ignore.txt": "x/[\n"},
			file:    "ignore.txt",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := memfs.New()
			for name, content := range tt.files {
				require.NoError(t, util.WriteFile(fs, name, []byte(content), 0o644))
			}

			rs, err := ignore.Resolve(fs, tt.explicit, tt.file)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, rs.Patterns())
			assert.Equal(t, len(tt.want), rs.Len())
		})
	}
}

func TestResolveFirstMatchFollowsMergeOrder(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, ".syncignore", []byte("dist/\ndebug.*\n"), 0o644))

	rs, err := ignore.Resolve(fs, []string{"*.log"}, ".syncignore")
	require.NoError(t, err)
	assert.Equal(t, []string{"*.log", "dist/", "debug.*"}, rs.Patterns())

	// Both rules cover the path; the explicit one is tested first.
	got, ok := rs.Match("debug.log")
	require.True(t, ok)
	assert.Equal(t, "*.log", got)

	got, ok = rs.Match("dist/app.js")
	require.True(t, ok)
	assert.Equal(t, "dist/", got)
}
