package link

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amirk1998/secret-notes/pkg/errors"
)

const testID = "3f1c2a9e-6b7d-4e2f-9a01-5c8d7e6f4b32"

func TestBuild(t *testing.T) {
	tests := []struct {
		name string
		base string
		want string
	}{
		{"origin only", "https://notes.example.com", "https://notes.example.com/#/note/" + testID},
		{"trailing slash", "https://notes.example.com/", "https://notes.example.com/#/note/" + testID},
		{"base path", "https://example.com/secret/", "https://example.com/secret/#/note/" + testID},
		{"many slashes", "http://localhost:8080/app///", "http://localhost:8080/app/#/note/" + testID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Build(tt.base, testID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuild_Errors(t *testing.T) {
	_, err := Build("https://example.com", "")
	assert.ErrorIs(t, err, errors.ErrInvalidNoteID)

	_, err = Build("not a url", testID)
	assert.ErrorIs(t, err, errors.ErrInvalidBaseURL)

	_, err = Build("/relative/only", testID)
	assert.ErrorIs(t, err, errors.ErrInvalidBaseURL)
}

func TestParseID(t *testing.T) {
	built, err := Build("https://example.com/secret", testID)
	require.NoError(t, err)

	for _, in := range []string{built, testID, "  " + built + "  ", built + "/"} {
		id, err := ParseID(in)
		require.NoError(t, err, in)
		assert.Equal(t, testID, id)
	}
}

func TestParseID_Errors(t *testing.T) {
	for _, in := range []string{
		"",
		"https://example.com/",
		"https://example.com/#/other/" + testID,
		"https://example.com/#/note/not-a-uuid",
		"garbage",
	} {
		_, err := ParseID(in)
		assert.ErrorIs(t, err, errors.ErrInvalidLink, in)
	}
}
