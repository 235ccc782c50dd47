package cli

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/git-credential-broker/internal/core/domain"
)

// execute runs the root command with stdin and returns what was written.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}

func withServices(t *testing.T, creds *fakeCredentialService, settings *fakeSettingsService) {
	t.Helper()
	oldCreds, oldSettings := credentialService, settingsService
	credentialService = nil
	settingsService = nil
	if creds != nil {
		credentialService = creds
	}
	if settings != nil {
		settingsService = settings
	}
	t.Cleanup(func() {
		credentialService = oldCreds
		settingsService = oldSettings
	})
}

func TestRootCmd_HasSubcommands(t *testing.T) {
	commands := rootCmd.Commands()
	names := make([]string, 0, len(commands))
	for _, cmd := range commands {
		names = append(names, cmd.Name())
	}

	for _, want := range []string{"get", "store", "erase", "delete", "list", "config", "version"} {
		assert.Contains(t, names, want)
	}
}

func TestSetServices(t *testing.T) {
	withServices(t, nil, nil)
	creds := &fakeCredentialService{}
	settings := newFakeSettingsService()

	SetServices(creds, settings)

	assert.Same(t, creds, credentialService)
	assert.Same(t, settings, settingsService)
}

func TestGetCmd_WritesCredential(t *testing.T) {
	cred := domain.NewCredential("alice", "token")
	creds := &fakeCredentialService{cred: &cred}
	withServices(t, creds, nil)

	out, err := execute(t, "protocol=https\nhost=github.com\nusername=alice\n\n", "get")

	require.NoError(t, err)
	assert.Equal(t, "protocol=https\nhost=github.com\nusername=alice\npassword=token\n", out)
	require.Len(t, creds.calls, 1)
	assert.Equal(t, call{Method: "get", Target: "https://github.com", Username: "alice"}, creds.calls[0])
}

func TestGetCmd_NothingOnAbsence(t *testing.T) {
	creds := &fakeCredentialService{}
	withServices(t, creds, nil)

	out, err := execute(t, "protocol=https\nhost=example.com\n\n", "get")

	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestGetCmd_ServiceErrorIsNotFatal(t *testing.T) {
	creds := &fakeCredentialService{err: errors.New("boom")}
	withServices(t, creds, nil)

	out, err := execute(t, "protocol=https\nhost=example.com\n\n", "get")

	require.NoError(t, err)
	assert.NotContains(t, out, "password=")
}

func TestGetCmd_InvalidRequest(t *testing.T) {
	withServices(t, &fakeCredentialService{}, nil)

	_, err := execute(t, "host=example.com\n\n", "get")

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestGetCmd_ErrorsWithoutServices(t *testing.T) {
	withServices(t, nil, nil)

	_, err := execute(t, "protocol=https\nhost=example.com\n\n", "get")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}

func TestGetCmd_RejectsArgs(t *testing.T) {
	withServices(t, &fakeCredentialService{}, nil)

	_, err := execute(t, "", "get", "extra")

	assert.Error(t, err)
}

func TestStoreCmd(t *testing.T) {
	creds := &fakeCredentialService{}
	withServices(t, creds, nil)

	out, err := execute(t, "url=https://bitbucket.org/team/repo\nusername=bob\npassword=pw\n\n", "store")

	require.NoError(t, err)
	assert.Empty(t, out)
	require.Len(t, creds.calls, 1)
	assert.Equal(t, call{Method: "store", Target: "https://bitbucket.org/team/repo", Username: "bob", Password: "pw"}, creds.calls[0])
}

func TestEraseCmd(t *testing.T) {
	creds := &fakeCredentialService{}
	withServices(t, creds, nil)

	_, err := execute(t, "protocol=https\nhost=dev.azure.com\npath=org/_git/repo\n\n", "erase")

	require.NoError(t, err)
	require.Len(t, creds.calls, 1)
	assert.Equal(t, call{Method: "erase", Target: "https://dev.azure.com/org/_git/repo"}, creds.calls[0])
}

func TestEraseCmd_ServiceErrorIsNotFatal(t *testing.T) {
	creds := &fakeCredentialService{err: errors.New("locked")}
	withServices(t, creds, nil)

	_, err := execute(t, "protocol=https\nhost=example.com\n\n", "erase")

	assert.NoError(t, err)
}
