package connect

import "github.com/goliatone/go-errors"

const (
	TextCodePlatformNotFound = "connect_platform_not_found"
	TextCodeAccountNotFound  = "connect_account_not_found"
	TextCodeInvalidState     = "connect_invalid_state"
	TextCodeStateExpired     = "connect_state_expired"
	TextCodeDecodeFailed     = "connect_decode_failed"
	TextCodeNoData           = "connect_no_data"
	TextCodeProviderDenied   = "connect_provider_denied"
)

// User-facing messages rendered by the dashboard verbatim. The CSRF rejection
// and no-data strings are part of the UI contract; keep them stable.
const (
	MsgInvalidState = "Invalid OAuth state. Please try again."
	MsgNoData       = "No connection data found"
	MsgDecodeFailed = "Failed to read connection data. Please try again."
	MsgSaveFailed   = "Failed to save connected account. Please try again."
)

// ErrPlatformNotFound is returned when a requested platform is not supported.
var ErrPlatformNotFound = errors.New("social platform not supported", errors.CategoryNotFound).
	WithTextCode(TextCodePlatformNotFound).
	WithCode(errors.CodeNotFound)

// ErrAccountNotFound is returned when no connected account matches an id.
var ErrAccountNotFound = errors.New("connected account not found", errors.CategoryNotFound).
	WithTextCode(TextCodeAccountNotFound).
	WithCode(errors.CodeNotFound)

// ErrInvalidState is returned when the OAuth state is unknown or replayed.
var ErrInvalidState = errors.New("invalid oauth state", errors.CategoryBadInput).
	WithTextCode(TextCodeInvalidState).
	WithCode(errors.CodeBadRequest)

// ErrStateExpired is returned when the OAuth state exceeded its TTL.
var ErrStateExpired = errors.New("oauth state expired", errors.CategoryBadInput).
	WithTextCode(TextCodeStateExpired).
	WithCode(errors.CodeBadRequest)

// ErrDecodeFailed is returned when the callback payload cannot be decoded
// into the expected shape.
var ErrDecodeFailed = errors.New("failed to decode callback payload", errors.CategoryBadInput).
	WithTextCode(TextCodeDecodeFailed).
	WithCode(errors.CodeBadRequest)

// ErrNoConnectionData is returned when a callback carries neither an error
// nor a recognized platform payload.
var ErrNoConnectionData = errors.New("no connection data found", errors.CategoryBadInput).
	WithTextCode(TextCodeNoData).
	WithCode(errors.CodeBadRequest)

// ErrProviderDenied is returned when the provider or relay reported an
// authorization error in the callback.
var ErrProviderDenied = errors.New("provider reported an authorization error", errors.CategoryAuth).
	WithTextCode(TextCodeProviderDenied).
	WithCode(errors.CodeUnauthorized)
