package gitconfig

import (
	"strings"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/git-credential-broker/internal/core/domain"
)

const sample = `
[core]
	bare = false
[credential]
	authority = auto
	interactive = auto
[credential "https://dev.azure.com"]
	authority = AAD
[credential "https://dev.azure.com/contoso"]
	interactive = never
	useHttpPath = true
[credential "https://github.com"]
	authority = github
`

func parse(t *testing.T, text string) *Reader {
	t.Helper()
	r, err := Parse(strings.NewReader(text))
	require.NoError(t, err)
	return r
}

func TestCredentialOptions_GenericOnly(t *testing.T) {
	r := parse(t, sample)

	opts, err := r.CredentialOptions(domain.MustParseTargetURI("https://example.com/repo.git"))

	require.NoError(t, err)
	assert.Equal(t, map[string]string{"authority": "auto", "interactive": "auto"}, opts)
}

func TestCredentialOptions_HostOverride(t *testing.T) {
	r := parse(t, sample)

	opts, err := r.CredentialOptions(domain.MustParseTargetURI("https://github.com/org/repo.git"))

	require.NoError(t, err)
	assert.Equal(t, "github", opts["authority"])
	assert.Equal(t, "auto", opts["interactive"])
}

func TestCredentialOptions_MostSpecificWins(t *testing.T) {
	r := parse(t, sample)

	opts, err := r.CredentialOptions(domain.MustParseTargetURI("https://dev.azure.com/contoso/project/_git/repo"))

	require.NoError(t, err)
	assert.Equal(t, "AAD", opts["authority"])
	assert.Equal(t, "never", opts["interactive"])
	assert.Equal(t, "true", opts["usehttppath"])
}

func TestCredentialOptions_PathBoundary(t *testing.T) {
	r := parse(t, sample)

	opts, err := r.CredentialOptions(domain.MustParseTargetURI("https://dev.azure.com/contosoltd/repo"))

	require.NoError(t, err)
	assert.Equal(t, "AAD", opts["authority"])
	assert.Equal(t, "auto", opts["interactive"])
	assert.NotContains(t, opts, "usehttppath")
}

func TestCredentialOptions_LaterConfigOverrides(t *testing.T) {
	global := parse(t, "[credential]\n\tauthority = basic\n\tvalidate = true\n")
	local := parse(t, "[credential]\n\tauthority = bitbucket\n")
	r := New(global.configs[0], local.configs[0])

	opts, err := r.CredentialOptions(domain.MustParseTargetURI("https://bitbucket.org/team/repo"))

	require.NoError(t, err)
	assert.Equal(t, "bitbucket", opts["authority"])
	assert.Equal(t, "true", opts["validate"])
}

func TestCredentialOptions_NoCredentialSection(t *testing.T) {
	r := parse(t, "[core]\n\tbare = true\n")

	opts, err := r.CredentialOptions(domain.MustParseTargetURI("https://example.com"))

	require.NoError(t, err)
	assert.Empty(t, opts)
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse(strings.NewReader("[credential\n"))

	assert.Error(t, err)
}

func TestMatches(t *testing.T) {
	target := domain.MustParseTargetURI("https://alice@example.com:8443/team/repo.git")

	tests := []struct {
		pattern string
		want    bool
	}{
		{"https://example.com:8443", true},
		{"https://EXAMPLE.com:8443/team", true},
		{"https://example.com:8443/team/", true},
		{"https://alice@example.com:8443", true},
		{"https://bob@example.com:8443", false},
		{"http://example.com:8443", false},
		{"https://example.com", false},
		{"https://example.com:8443/other", false},
		{"https://example.com:8443/tea", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			assert.Equal(t, tt.want, Matches(tt.pattern, target))
		})
	}
}

func TestMatches_BareHost(t *testing.T) {
	assert.True(t, Matches("github.com", domain.MustParseTargetURI("https://github.com/org/repo")))
	assert.False(t, Matches("github.com", domain.MustParseTargetURI("http://github.com/org/repo")))
}

func TestLoad_ReadsRepositoryConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	cfg, err := repo.Config()
	require.NoError(t, err)
	cfg.Raw.Section("credential").SetOption("authority", "github")
	require.NoError(t, repo.SetConfig(cfg))

	r, err := Load(dir)

	require.NoError(t, err)
	opts, err := r.CredentialOptions(domain.MustParseTargetURI("https://example.com/repo"))
	require.NoError(t, err)
	assert.Equal(t, "github", opts["authority"])
}

func TestLoad_OutsideRepository(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	r, err := Load(t.TempDir())

	require.NoError(t, err)
	require.NotNil(t, r)
}
