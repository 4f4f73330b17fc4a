package issuekey

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"bare key", "RTDEV-55950", "RTDEV-55950"},
		{"bare key with spaces", "  APP-12345  ", "APP-12345"},
		{"browse URL", "https://company.atlassian.net/browse/RTDEV-55950", "RTDEV-55950"},
		{"browse path", "/browse/TEST-999", "TEST-999"},
		{"selected issue param", "https://company.atlassian.net/jira/software/projects/RT/boards/1?selectedIssue=RTDEV-777", "RTDEV-777"},
		{"issuekey param", "https://company.atlassian.net/sr/jira.issueviews?issuekey=APP-42", "APP-42"},
		{"key embedded in text", "please look at RTDEV-100 today", "RTDEV-100"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Extract(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtract_Errors(t *testing.T) {
	for _, input := range []string{"", "   ", "no key here", "lowercase-123"} {
		_, err := Extract(input)
		assert.ErrorIs(t, err, ErrNoKey, "input %q", input)
	}
}

func TestValid(t *testing.T) {
	assert.True(t, Valid("RTDEV-12345"))
	assert.True(t, Valid(" APP-1 "))
	assert.False(t, Valid("invalid-key"))
	assert.False(t, Valid("RTDEV-"))
	assert.False(t, Valid("RTDEV12345"))
	assert.False(t, Valid(""))
}

func TestProjectKey(t *testing.T) {
	p, err := ProjectKey("RTDEV-12345")
	require.NoError(t, err)
	assert.Equal(t, "RTDEV", p)

	_, err = ProjectKey("bogus")
	assert.ErrorIs(t, err, ErrNoKey)
}

func TestIssueNumber(t *testing.T) {
	n, err := IssueNumber("RTDEV-12345")
	require.NoError(t, err)
	assert.Equal(t, 12345, n)

	_, err = IssueNumber("bogus")
	assert.ErrorIs(t, err, ErrNoKey)
}
