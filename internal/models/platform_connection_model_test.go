package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlatformConnection_Status(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	var missing *PlatformConnection
	assert.Equal(t, ConnectionStatus{}, missing.Status(now))

	future := now.Add(time.Hour)
	c := &PlatformConnection{AccountName: "primary", ConnectedAt: now.Add(-time.Hour), TokenExpiresAt: &future}
	st := c.Status(now)
	assert.True(t, st.Connected)
	assert.True(t, st.IsValid)
	assert.Equal(t, "primary", st.Account)

	past := now.Add(-time.Minute)
	c.TokenExpiresAt = &past
	assert.False(t, c.Status(now).IsValid)

	c.TokenExpiresAt = nil
	assert.False(t, c.Status(now).IsValid)
}

func TestPlatformConnection_TokensNeverSerialised(t *testing.T) {
	out, err := json.Marshal(PlatformConnection{AccessToken: "secret-a", RefreshToken: "secret-r", AccountName: "primary"})
	require.NoError(t, err)
	assert.NotContains(t, string(out), "secret")
}
