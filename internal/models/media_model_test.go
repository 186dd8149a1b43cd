package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMediaRef_Validate(t *testing.T) {
	assert.NoError(t, MediaRef{}.Validate())
	assert.NoError(t, LocalMedia("/tmp/a.mp4").Validate())
	assert.NoError(t, ObjectMedia("videos/a.mp4").Validate())
	assert.NoError(t, RemoteMedia("https://cdn.example.com/a.mp4").Validate())

	assert.Error(t, MediaRef{Kind: MediaURL}.Validate())
	assert.Error(t, MediaRef{Kind: "ftp", Value: "x"}.Validate())
}

func TestMediaRef_JSON(t *testing.T) {
	out, err := json.Marshal(Post{ID: 1})
	require.NoError(t, err)
	assert.Contains(t, string(out), `"media":null`)

	out, err = json.Marshal(Post{ID: 1, Media: ObjectMedia("videos/a.mp4")})
	require.NoError(t, err)
	assert.Contains(t, string(out), `"media":{"kind":"object","value":"videos/a.mp4"}`)
	assert.NotContains(t, string(out), "user_id")
}
