package domain

import "strings"

// TokenType classifies a token value.
type TokenType int

// Known token types.
const (
	TokenUnknown TokenType = iota
	// TokenPersonal is a personal access token.
	TokenPersonal
	// TokenAccess is an Azure Directory access token.
	TokenAccess
	// TokenFederated is a federated (session) token.
	TokenFederated
	// TokenBitbucketAccess is a Bitbucket OAuth access token.
	TokenBitbucketAccess
	// TokenBitbucketRefresh is a Bitbucket OAuth refresh token.
	TokenBitbucketRefresh
	// TokenRefresh is a generic OAuth2 refresh token.
	TokenRefresh
)

// String returns the type name. The name doubles as the placeholder
// username when a token is turned into a credential with no real user.
func (t TokenType) String() string {
	switch t {
	case TokenPersonal:
		return "PersonalAccessToken"
	case TokenAccess:
		return "AzureAccessToken"
	case TokenFederated:
		return "AzureFederatedToken"
	case TokenBitbucketAccess:
		return "BitbucketAccessToken"
	case TokenBitbucketRefresh:
		return "BitbucketRefreshToken"
	case TokenRefresh:
		return "RefreshToken"
	default:
		return "Unknown"
	}
}

// Token is a secret minted by a provider.
type Token struct {
	Value string
	Type  TokenType
}

// NewToken creates a token of the given type.
func NewToken(value string, typ TokenType) *Token {
	return &Token{Value: value, Type: typ}
}

// IsValid returns true when the token carries a value.
func (t *Token) IsValid() bool {
	return t != nil && strings.TrimSpace(t.Value) != ""
}

// ToCredential converts the token to a credential. When username is blank
// the token type name is used in its place.
func (t *Token) ToCredential(username string) Credential {
	if strings.TrimSpace(username) == "" {
		username = t.Type.String()
	}
	return Credential{Username: username, Password: t.Value}
}
