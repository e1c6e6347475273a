package connect

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type silentLogger struct{}

func (silentLogger) Debug(string, ...any) {}
func (silentLogger) Info(string, ...any)  {}
func (silentLogger) Error(string, ...any) {}

func newTestConnector(t *testing.T) (*Connector, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	connector := NewConnector(store, Config{
		BaseURL: "https://app.brandflow.test",
	}, WithLogger(silentLogger{}))
	return connector, store
}

func callbackFor(t *testing.T, platform Platform, payload map[string]any) url.Values {
	t.Helper()
	params := url.Values{}
	params.Set(platform.ConnectedParam(), "1")
	params.Set("data", encodePayload(t, payload))
	return params
}

func TestConnectPersistsPendingState(t *testing.T) {
	ctx := context.Background()
	connector, store := newTestConnector(t)

	redirect, err := connector.Connect(ctx, PlatformLinkedIn, WithReturnURL("/dashboard/create"))
	require.NoError(t, err)
	require.NotNil(t, redirect)

	parsed, err := url.Parse(redirect.URL)
	require.NoError(t, err)
	assert.Equal(t, "/api/auth/linkedin", parsed.Path)
	assert.Equal(t, redirect.State, parsed.Query().Get("state"))
	assert.Empty(t, parsed.Query().Get("code_challenge"))

	pending, err := store.ReadPendingState(ctx, redirect.State)
	require.NoError(t, err)
	require.NotNil(t, pending)
	assert.Equal(t, PlatformLinkedIn, pending.Platform)
	assert.Equal(t, "/dashboard/create", pending.ReturnURL)
	assert.Empty(t, pending.CodeVerifier)
}

func TestConnectTwitterUsesPKCE(t *testing.T) {
	ctx := context.Background()
	connector, store := newTestConnector(t)

	redirect, err := connector.Connect(ctx, PlatformTwitter)
	require.NoError(t, err)

	pending, err := store.ReadPendingState(ctx, redirect.State)
	require.NoError(t, err)
	require.NotNil(t, pending)
	require.NotEmpty(t, pending.CodeVerifier)

	parsed, err := url.Parse(redirect.URL)
	require.NoError(t, err)
	challenge := parsed.Query().Get("code_challenge")
	require.NotEmpty(t, challenge)

	// only the derived challenge leaves the process, never the verifier
	assert.Equal(t, ComputeCodeChallenge(pending.CodeVerifier), challenge)
	assert.NotContains(t, redirect.URL, pending.CodeVerifier)
}

func TestConnectRejectsUnknownPlatform(t *testing.T) {
	connector, _ := newTestConnector(t)

	_, err := connector.Connect(context.Background(), Platform("myspace"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPlatformNotFound)
}

func TestProcessCallbackHappyPath(t *testing.T) {
	ctx := context.Background()
	connector, _ := newTestConnector(t)

	redirect, err := connector.Connect(ctx, PlatformLinkedIn, WithReturnURL("/dashboard/create"))
	require.NoError(t, err)

	result := connector.ProcessCallback(ctx, callbackFor(t, PlatformLinkedIn, map[string]any{
		"state":             redirect.State,
		"platformAccountId": "abc123",
		"displayName":       "Jane Doe",
		"accessToken":       "tok_xyz",
	}))

	require.True(t, result.Success, "unexpected error: %s", result.Error)
	assert.Equal(t, "/dashboard/create", result.ReturnURL)
	require.Len(t, result.Accounts, 1)

	account := result.Accounts[0]
	assert.Equal(t, PlatformLinkedIn, account.Platform)
	assert.Equal(t, "https://www.linkedin.com/in/abc123", account.ProfileURL)
	assert.Equal(t, StatusConnected, account.Status)
	assert.Equal(t, "Just now", account.LastSync)
	assert.True(t, strings.HasPrefix(account.ID, "linkedin_abc123_"))
	assert.Nil(t, account.TokenExpiresAt)
}

func TestProcessCallbackComputesTokenExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore(WithMemoryClock(func() time.Time { return now }))
	connector := NewConnector(store, Config{BaseURL: "https://app.brandflow.test"},
		WithLogger(silentLogger{}),
		WithClock(func() time.Time { return now }),
	)

	redirect, err := connector.Connect(ctx, PlatformLinkedIn)
	require.NoError(t, err)

	result := connector.ProcessCallback(ctx, callbackFor(t, PlatformLinkedIn, map[string]any{
		"state":             redirect.State,
		"platformAccountId": "abc123",
		"displayName":       "Jane Doe",
		"accessToken":       "tok_xyz",
		"expiresIn":         3600,
	}))

	require.True(t, result.Success)
	require.NotNil(t, result.Account)
	require.NotNil(t, result.Account.TokenExpiresAt)
	assert.Equal(t, now.Add(time.Hour), *result.Account.TokenExpiresAt)
}

func TestProcessCallbackRejectsUnknownState(t *testing.T) {
	ctx := context.Background()
	connector, _ := newTestConnector(t)

	result := connector.ProcessCallback(ctx, callbackFor(t, PlatformLinkedIn, map[string]any{
		"state":             "unknown-state-999",
		"platformAccountId": "abc123",
		"displayName":       "Jane Doe",
		"accessToken":       "tok_xyz",
	}))

	require.False(t, result.Success)
	assert.Equal(t, MsgInvalidState, result.Error)
	assert.Empty(t, result.Accounts)
}

func TestProcessCallbackRejectsReplay(t *testing.T) {
	ctx := context.Background()
	connector, store := newTestConnector(t)

	redirect, err := connector.Connect(ctx, PlatformLinkedIn)
	require.NoError(t, err)

	params := callbackFor(t, PlatformLinkedIn, map[string]any{
		"state":             redirect.State,
		"platformAccountId": "abc123",
		"displayName":       "Jane Doe",
		"accessToken":       "tok_xyz",
	})

	first := connector.ProcessCallback(ctx, params)
	require.True(t, first.Success)

	second := connector.ProcessCallback(ctx, params)
	require.False(t, second.Success)
	assert.Equal(t, MsgInvalidState, second.Error)

	// the first connection is untouched by the replay
	accounts, err := store.ListAccounts(ctx)
	require.NoError(t, err)
	assert.Len(t, accounts, 1)
}

func TestProcessCallbackRejectsPlatformMismatch(t *testing.T) {
	ctx := context.Background()
	connector, _ := newTestConnector(t)

	redirect, err := connector.Connect(ctx, PlatformLinkedIn)
	require.NoError(t, err)

	// state issued for linkedin presented under the twitter flag
	result := connector.ProcessCallback(ctx, callbackFor(t, PlatformTwitter, map[string]any{
		"state":             redirect.State,
		"platformAccountId": "abc123",
		"displayName":       "Jane Doe",
		"accessToken":       "tok_xyz",
	}))

	require.False(t, result.Success)
	assert.Equal(t, MsgInvalidState, result.Error)
}

func TestProcessCallbackProviderError(t *testing.T) {
	ctx := context.Background()
	connector, store := newTestConnector(t)

	params := url.Values{}
	params.Set("error", "access_denied")

	result := connector.ProcessCallback(ctx, params)
	require.False(t, result.Success)
	assert.Equal(t, "access_denied", result.Error)

	accounts, err := store.ListAccounts(ctx)
	require.NoError(t, err)
	assert.Empty(t, accounts)
}

func TestProcessCallbackNoData(t *testing.T) {
	connector, _ := newTestConnector(t)

	result := connector.ProcessCallback(context.Background(), url.Values{})
	require.False(t, result.Success)
	assert.Equal(t, MsgNoData, result.Error)

	// platform flag without a payload is still no data
	params := url.Values{}
	params.Set(PlatformLinkedIn.ConnectedParam(), "1")

	result = connector.ProcessCallback(context.Background(), params)
	require.False(t, result.Success)
	assert.Equal(t, MsgNoData, result.Error)
	assert.Equal(t, PlatformLinkedIn, result.Platform)
}

func TestProcessCallbackDecodeFailure(t *testing.T) {
	ctx := context.Background()
	connector, store := newTestConnector(t)

	redirect, err := connector.Connect(ctx, PlatformLinkedIn)
	require.NoError(t, err)

	params := url.Values{}
	params.Set(PlatformLinkedIn.ConnectedParam(), "1")
	params.Set("data", "!!!garbage!!!")

	result := connector.ProcessCallback(ctx, params)
	require.False(t, result.Success)
	assert.Equal(t, MsgDecodeFailed, result.Error)

	// decode failures happen before state lookup; the handshake survives
	pending, err := store.ReadPendingState(ctx, redirect.State)
	require.NoError(t, err)
	assert.NotNil(t, pending)
}

func TestProcessCallbackUpsertsSameIdentity(t *testing.T) {
	ctx := context.Background()
	connector, _ := newTestConnector(t)

	for _, token := range []string{"old", "new"} {
		redirect, err := connector.Connect(ctx, PlatformLinkedIn)
		require.NoError(t, err)

		result := connector.ProcessCallback(ctx, callbackFor(t, PlatformLinkedIn, map[string]any{
			"state":             redirect.State,
			"platformAccountId": "abc123",
			"displayName":       "Jane Doe",
			"accessToken":       token,
		}))
		require.True(t, result.Success)
	}

	accounts, err := connector.store.ListAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "new", accounts[0].AccessToken)
}
