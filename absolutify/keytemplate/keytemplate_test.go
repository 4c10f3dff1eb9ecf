package keytemplate

import (
	"fmt"
	"regexp"
	"testing"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEnvRepo struct {
	envVars map[string]string
}

func (repo fakeEnvRepo) Get(key string) string {
	return repo.envVars[key]
}

func (repo fakeEnvRepo) Set(key, value string) error {
	repo.envVars[key] = value
	return nil
}

func (repo fakeEnvRepo) Unset(key string) error {
	delete(repo.envVars, key)
	return nil
}

func (repo fakeEnvRepo) List() []string {
	envs := []string{}
	for k, v := range repo.envVars {
		envs = append(envs, fmt.Sprintf("%s=%s", k, v))
	}
	return envs
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		docPath string
		envVars map[string]string
		want    string
		wantErr bool
	}{
		{
			name:    "static prefix",
			pattern: "blog-images",
			docPath: "notes/post.md",
			want:    "blog-images",
		},
		{
			name:    "filename",
			pattern: "docs/{filename}",
			docPath: "notes/post.md",
			want:    "docs/post",
		},
		{
			name:    "parent directory",
			pattern: "{parent_0}/{filename}",
			docPath: "notes/post.md",
			want:    "notes/post",
		},
		{
			name:    "env var",
			pattern: `{getenv "BLOG_SLUG"}/{filename}`,
			docPath: "post.md",
			envVars: map[string]string{"BLOG_SLUG": "my-blog"},
			want:    "my-blog/post",
		},
		{
			name:    "missing env var expands to empty",
			pattern: `{getenv "NOPE"}/images`,
			docPath: "post.md",
			want:    "images",
		},
		{
			name:    "surrounding slashes are stripped",
			pattern: "/docs/{filename}/",
			docPath: "notes/post.md",
			want:    "docs/post",
		},
		{
			name:    "unknown function",
			pattern: "docs/{nope}",
			docPath: "post.md",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := NewModel(fakeEnvRepo{envVars: tt.envVars}, log.NewLogger())

			got, err := model.Evaluate(tt.pattern, tt.docPath)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluateRandomHex(t *testing.T) {
	model := NewModel(fakeEnvRepo{}, log.NewLogger())

	got, err := model.Evaluate("uploads/{random_hex}", "post.md")

	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^uploads/[0-9a-f]{16}$`), got)

	again, err := model.Evaluate("uploads/{random_hex}", "post.md")
	require.NoError(t, err)
	assert.NotEqual(t, got, again)
}
