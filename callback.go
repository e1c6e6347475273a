package connect

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/url"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// twitterPKCEParam is an alternate trigger the relay uses for the Twitter
// PKCE flow, equivalent to twitter_connected.
const twitterPKCEParam = "twitter_pkce_callback"

// CallbackData is the decoded payload the authorization endpoint relays back
// through the `data` query parameter.
type CallbackData struct {
	State             string   `json:"state"`
	PlatformAccountID string   `json:"platformAccountId"`
	DisplayName       string   `json:"displayName"`
	Username          string   `json:"username,omitempty"`
	Email             string   `json:"email,omitempty"`
	AvatarURL         string   `json:"avatarUrl,omitempty"`
	AccessToken       string   `json:"accessToken"`
	RefreshToken      string   `json:"refreshToken,omitempty"`
	ExpiresIn         int64    `json:"expiresIn,omitempty"`
	Scopes            []string `json:"scopes,omitempty"`
	Followers         int      `json:"followers,omitempty"`
}

// Validate enforces the payload schema. Missing required fields are a decode
// failure, not a partially connected account.
func (d CallbackData) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.State, validation.Required),
		validation.Field(&d.PlatformAccountID, validation.Required),
		validation.Field(&d.DisplayName, validation.Required),
		validation.Field(&d.AccessToken, validation.Required),
		validation.Field(&d.Email, is.Email),
		validation.Field(&d.ExpiresIn, validation.Min(0)),
	)
}

// DecodeCallbackData decodes the base64 JSON payload into a validated
// CallbackData. Unknown fields and schema violations are rejected so a
// malformed relay payload can never finalize an account.
func DecodeCallbackData(raw string) (*CallbackData, error) {
	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		if decoded, err = base64.URLEncoding.DecodeString(raw); err != nil {
			return nil, wrapDecodeErr("invalid base64 payload", err)
		}
	}

	dec := json.NewDecoder(bytes.NewReader(decoded))
	dec.DisallowUnknownFields()

	var data CallbackData
	if err := dec.Decode(&data); err != nil {
		return nil, wrapDecodeErr("invalid json payload", err)
	}

	if err := data.Validate(); err != nil {
		return nil, wrapDecodeErr("payload schema violation", err)
	}

	return &data, nil
}

func wrapDecodeErr(reason string, err error) error {
	clone := ErrDecodeFailed.Clone()
	clone.Source = err
	clone.WithMetadata(map[string]any{"reason": reason})
	return clone
}

// FindCallbackPayload scans callback query parameters for a recognized
// platform flag and returns the raw data payload alongside it.
func FindCallbackPayload(params url.Values) (Platform, string, bool) {
	for _, p := range Platforms() {
		if params.Get(p.ConnectedParam()) != "" {
			return p, params.Get("data"), true
		}
	}

	if params.Get(twitterPKCEParam) != "" {
		return PlatformTwitter, params.Get("data"), true
	}

	return "", "", false
}

// CallbackParamKeys lists every query parameter the callback contract uses.
// Transport adapters that cannot enumerate query parameters probe these.
func CallbackParamKeys() []string {
	keys := []string{"error", "data", twitterPKCEParam}
	for _, p := range Platforms() {
		keys = append(keys, p.ConnectedParam())
	}
	return keys
}
