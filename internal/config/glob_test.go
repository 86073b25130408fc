package config

import "testing"

func TestMatchesGlob(t *testing.T) {
	tests := []struct {
		name     string
		filePath string
		include  []string
		exclude  []string
		want     bool
	}{
		{"any depth", "src/models/user.ts", []string{"**/*.ts"}, nil, true},
		{"top level with double star", "main.ts", []string{"**/*.ts"}, nil, true},
		{"wrong extension", "src/user.js", []string{"**/*.ts"}, nil, false},
		{"prefix match", "src/a/b/c.ts", []string{"src/**/*.ts"}, nil, true},
		{"prefix directly under", "src/c.ts", []string{"src/**/*.ts"}, nil, true},
		{"prefix mismatch", "lib/c.ts", []string{"src/**/*.ts"}, nil, false},
		{"prefix not at start", "lib/src/c.ts", []string{"src/**/*.ts"}, nil, false},
		{"excluded", "src/a.spec.ts", []string{"**/*.ts"}, []string{"**/*.spec.ts"}, false},
		{"excluded directory", "src/gen/a.ts", []string{"**/*.ts"}, []string{"src/gen/**"}, false},
		{"bare pattern any depth", "src/deep/a.tsx", []string{"*.tsx"}, nil, true},
		{"exact file", "src/main.ts", []string{"src/main.ts"}, nil, true},
		{"dot slash", "./src/main.ts", []string{"./src/*.ts"}, nil, true},
		{"no include", "src/main.ts", nil, nil, false},
		{"middle double star", "src/a/b/models/user.ts", []string{"src/**/models/*.ts"}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MatchesGlob(tt.filePath, tt.include, tt.exclude); got != tt.want {
				t.Errorf("MatchesGlob(%q, %v, %v) = %v, want %v", tt.filePath, tt.include, tt.exclude, got, tt.want)
			}
		})
	}
}

func TestConfigMatches(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Exclude = []string{"**/*.test.ts"}
	if !cfg.Matches("src/a.mts") {
		t.Error("expected .mts to match default include")
	}
	if cfg.Matches("src/a.test.ts") {
		t.Error("expected test file to be excluded")
	}
}
