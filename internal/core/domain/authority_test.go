package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAuthorityType(t *testing.T) {
	tests := []struct {
		input    string
		expected AuthorityType
	}{
		{"", AuthorityAuto},
		{"Auto", AuthorityAuto},
		{"basic", AuthorityBasic},
		{"integrated", AuthorityNTLM},
		{"NTLM", AuthorityNTLM},
		{"aad", AuthorityAzureDirectory},
		{"azure-directory", AuthorityAzureDirectory},
		{"msa", AuthorityMicrosoftAccount},
		{"live", AuthorityMicrosoftAccount},
		{" github ", AuthorityGitHub},
		{"bitbucket", AuthorityBitbucket},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseAuthorityType(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestParseAuthorityType_Unknown(t *testing.T) {
	_, err := ParseAuthorityType("gitlab")

	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestAuthorityType_IsVSTS(t *testing.T) {
	assert.True(t, AuthorityAzureDirectory.IsVSTS())
	assert.True(t, AuthorityMicrosoftAccount.IsVSTS())
	assert.False(t, AuthorityGitHub.IsVSTS())
	assert.False(t, AuthorityBasic.IsVSTS())
}

func TestParseInteractivity(t *testing.T) {
	tests := []struct {
		input    string
		expected Interactivity
	}{
		{"", InteractivityAuto},
		{"true", InteractivityAuto},
		{"always", InteractivityAlways},
		{"force", InteractivityAlways},
		{"never", InteractivityNever},
		{"FALSE", InteractivityNever},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseInteractivity(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}

	_, err := ParseInteractivity("sometimes")
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestInteractivity_Allows(t *testing.T) {
	assert.True(t, InteractivityAuto.AllowsCache())
	assert.True(t, InteractivityAuto.AllowsPrompt())
	assert.False(t, InteractivityAlways.AllowsCache())
	assert.True(t, InteractivityAlways.AllowsPrompt())
	assert.True(t, InteractivityNever.AllowsCache())
	assert.False(t, InteractivityNever.AllowsPrompt())
}
