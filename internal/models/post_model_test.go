package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{PostStatusDraft, PostStatusScheduled, true},
		{PostStatusDraft, PostStatusPublishing, true},
		{PostStatusScheduled, PostStatusPublishing, true},
		{PostStatusPublishing, PostStatusPosted, true},
		{PostStatusPublishing, PostStatusFailed, true},
		{PostStatusPosted, PostStatusScheduled, true},
		{PostStatusFailed, PostStatusScheduled, true},
		{PostStatusScheduled, PostStatusScheduled, true},

		{PostStatusFailed, PostStatusPublishing, false},
		{PostStatusPosted, PostStatusFailed, false},
		{PostStatusScheduled, PostStatusPosted, false},
		{PostStatusDraft, PostStatusPosted, false},
		{"unknown", PostStatusPosted, false},
	}

	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestIsValidStatus(t *testing.T) {
	assert.True(t, IsValidStatus(PostStatusPublishing))
	assert.False(t, IsValidStatus("all"))
	assert.False(t, IsValidStatus(""))
}

func TestPostUpdate_IsEmpty(t *testing.T) {
	assert.True(t, PostUpdate{}.IsEmpty())

	title := "x"
	assert.False(t, PostUpdate{Title: &title}.IsEmpty())
	assert.False(t, PostUpdate{Media: &MediaRef{}}.IsEmpty())
}
