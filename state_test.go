package connect

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateStateUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 256; i++ {
		state, err := GenerateState()
		require.NoError(t, err)
		require.NotEmpty(t, state)
		require.False(t, seen[state], "state %q generated twice", state)
		seen[state] = true
	}
}

func TestGenerateStateEncoding(t *testing.T) {
	state, err := GenerateState()
	require.NoError(t, err)

	raw, err := base64.RawURLEncoding.DecodeString(state)
	require.NoError(t, err)
	assert.Len(t, raw, tokenBytes)
	assert.NotContains(t, state, "=")
	assert.NotContains(t, state, "+")
	assert.NotContains(t, state, "/")
}

func TestComputeCodeChallengeDeterministic(t *testing.T) {
	verifier, err := GenerateCodeVerifier()
	require.NoError(t, err)

	first := ComputeCodeChallenge(verifier)
	second := ComputeCodeChallenge(verifier)
	assert.Equal(t, first, second)

	other, err := GenerateCodeVerifier()
	require.NoError(t, err)
	assert.NotEqual(t, first, ComputeCodeChallenge(other))
}

func TestComputeCodeChallengeKnownVector(t *testing.T) {
	// RFC 7636 appendix B.
	challenge := ComputeCodeChallenge("dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk")
	assert.Equal(t, "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM", challenge)
}
