package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestActivityIsEditable(t *testing.T) {
	cases := map[string]bool{
		ActivityStatusDraft:       true,
		ActivityStatusRejected:    true,
		ActivityStatusPending:     false,
		ActivityStatusUnderReview: false,
		ActivityStatusApproved:    false,
	}

	for status, want := range cases {
		activity := Activity{Status: status}
		require.Equal(t, want, activity.IsEditable(), "status %q", status)
	}
}

func TestValidCategory(t *testing.T) {
	for _, category := range ActivityCategories {
		require.True(t, ValidCategory(category))
	}
	require.False(t, ValidCategory("gaming"))
	require.False(t, ValidCategory(""))
}
