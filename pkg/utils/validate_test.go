package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateIdentifier(t *testing.T) {
	assert.NoError(t, ValidateIdentifier("3f1c-task"))
	assert.Error(t, ValidateIdentifier("  "))
	assert.Error(t, ValidateIdentifier("../etc"))
	assert.Error(t, ValidateIdentifier("a/b"))
	assert.Error(t, ValidateIdentifier(`a\b`))
}

func TestParseEmailList(t *testing.T) {
	got, err := ParseEmailList("a@x.com, b@y.org;\nA@X.com,, ")
	require.NoError(t, err)
	assert.Equal(t, []string{"a@x.com", "b@y.org"}, got)

	got, err = ParseEmailList("")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = ParseEmailList("a@x.com, not-an-email")
	assert.ErrorContains(t, err, "not-an-email")
}
