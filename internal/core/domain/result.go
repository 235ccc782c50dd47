package domain

// ResultType is the outcome of a single authority call.
type ResultType int

// Result types returned by provider authorities.
const (
	ResultNone ResultType = iota
	ResultSuccess
	ResultFailure
	// ResultTwoFactor means the password is valid but a second factor is required.
	ResultTwoFactor
	// ResultTwoFactorApp means an authenticator app code is required.
	ResultTwoFactorApp
	// ResultTwoFactorSms means a code was sent by text message.
	ResultTwoFactorSms
)

// String returns the result type name.
func (r ResultType) String() string {
	switch r {
	case ResultSuccess:
		return "success"
	case ResultFailure:
		return "failure"
	case ResultTwoFactor:
		return "two-factor"
	case ResultTwoFactorApp:
		return "two-factor-app"
	case ResultTwoFactorSms:
		return "two-factor-sms"
	default:
		return "none"
	}
}

// AuthenticationResult is what every provider authority call returns.
// It is created per call and never mutated.
type AuthenticationResult struct {
	Type ResultType
	// Token is the access token or password-equivalent on success.
	Token *Token
	// RefreshToken is set when the provider issued one.
	RefreshToken *Token
	// RemoteUsername is the account name reported by the server, when it
	// differs from or replaces the one supplied.
	RemoteUsername string
}

// Success builds a successful result.
func Success(token *Token, refresh *Token, remoteUsername string) AuthenticationResult {
	return AuthenticationResult{
		Type:           ResultSuccess,
		Token:          token,
		RefreshToken:   refresh,
		RemoteUsername: remoteUsername,
	}
}

// Failure builds a failed result.
func Failure() AuthenticationResult {
	return AuthenticationResult{Type: ResultFailure}
}

// TwoFactor builds a step-up result of the given kind.
func TwoFactor(kind ResultType) AuthenticationResult {
	return AuthenticationResult{Type: kind}
}

// IsSuccess returns true only for a success carrying a usable token.
func (r AuthenticationResult) IsSuccess() bool {
	return r.Type == ResultSuccess && r.Token.IsValid()
}

// IsTwoFactor returns true for any second-factor result.
func (r AuthenticationResult) IsTwoFactor() bool {
	return r.Type.IsTwoFactor()
}

// IsTwoFactor returns true for any second-factor result type.
func (r ResultType) IsTwoFactor() bool {
	switch r {
	case ResultTwoFactor, ResultTwoFactorApp, ResultTwoFactorSms:
		return true
	default:
		return false
	}
}
