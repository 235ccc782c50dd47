package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenType_String(t *testing.T) {
	tests := []struct {
		typ      TokenType
		expected string
	}{
		{TokenPersonal, "PersonalAccessToken"},
		{TokenAccess, "AzureAccessToken"},
		{TokenFederated, "AzureFederatedToken"},
		{TokenBitbucketAccess, "BitbucketAccessToken"},
		{TokenBitbucketRefresh, "BitbucketRefreshToken"},
		{TokenRefresh, "RefreshToken"},
		{TokenUnknown, "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.typ.String())
		})
	}
}

func TestToken_ToCredential_RealUsername(t *testing.T) {
	token := NewToken("abc123", TokenPersonal)

	cred := token.ToCredential("alice")

	assert.Equal(t, "alice", cred.Username)
	assert.Equal(t, "abc123", cred.Password)
}

func TestToken_ToCredential_BlankUsernameUsesTypeName(t *testing.T) {
	token := NewToken("abc123", TokenBitbucketAccess)

	cred := token.ToCredential("   ")

	assert.Equal(t, "BitbucketAccessToken", cred.Username)
	assert.Equal(t, "abc123", cred.Password)
}

func TestToken_IsValid(t *testing.T) {
	var nilToken *Token

	assert.False(t, nilToken.IsValid())
	assert.False(t, NewToken("  ", TokenPersonal).IsValid())
	assert.True(t, NewToken("x", TokenPersonal).IsValid())
}

func TestAuthenticationResult_IsSuccess(t *testing.T) {
	assert.True(t, Success(NewToken("t", TokenPersonal), nil, "").IsSuccess())
	assert.False(t, Success(nil, nil, "").IsSuccess(), "success without a token is not usable")
	assert.False(t, Failure().IsSuccess())
	assert.False(t, AuthenticationResult{}.IsSuccess())
}

func TestAuthenticationResult_IsTwoFactor(t *testing.T) {
	tests := []struct {
		typ      ResultType
		expected bool
	}{
		{ResultNone, false},
		{ResultSuccess, false},
		{ResultFailure, false},
		{ResultTwoFactor, true},
		{ResultTwoFactorApp, true},
		{ResultTwoFactorSms, true},
	}

	for _, tt := range tests {
		t.Run(tt.typ.String(), func(t *testing.T) {
			assert.Equal(t, tt.expected, TwoFactor(tt.typ).IsTwoFactor())
		})
	}
}

func TestCredential_Validate(t *testing.T) {
	assert.NoError(t, NewCredential("bob", "secret").Validate())
	assert.ErrorIs(t, NewCredential("", "secret").Validate(), ErrInvalidInput)
	assert.ErrorIs(t, NewCredential("bob", "").Validate(), ErrInvalidInput)
	assert.ErrorIs(t, NTLMCredential().Validate(), ErrInvalidInput)
}

func TestCredential_StringHidesSecret(t *testing.T) {
	cred := NewCredential("bob", "hunter2")

	assert.NotContains(t, cred.String(), "hunter2")
	assert.Contains(t, cred.String(), "bob")
}
