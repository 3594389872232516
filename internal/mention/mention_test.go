package mention_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsdeck/opsdeck/internal/mention"
)

func TestEncodeMarkers(t *testing.T) {
	tests := []struct {
		name   string
		buffer string
		want   string
	}{
		{
			name:   "plain text passes through",
			buffer: "no mentions here",
			want:   "no mentions here",
		},
		{
			name:   "single mention mid-sentence",
			buffer: "Hello " + mention.MarkerRun("u123", "Ahmet Yılmaz") + " can you help",
			want:   "Hello @[u123:Ahmet Yılmaz] can you help",
		},
		{
			name: "two mentions back to back",
			buffer: mention.MarkerRun("u1", "Ada") + " and " +
				mention.MarkerRun("u2", "Grace"),
			want: "@[u1:Ada] and @[u2:Grace]",
		},
		{
			name:   "unterminated run degrades to visible characters",
			buffer: "hey " + string(mention.Marker) + "u1" + string(mention.Marker) + "Ada",
			want:   "hey u1Ada",
		},
		{
			name:   "lone delimiter is dropped",
			buffer: "a" + string(mention.Marker) + "b",
			want:   "ab",
		},
		{
			name:   "empty buffer",
			buffer: "",
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mention.EncodeMarkers(tt.buffer))
		})
	}
}

func TestDisplayText(t *testing.T) {
	buffer := "ping " + mention.MarkerRun("u42", "Deniz Kaya") + " now"
	assert.Equal(t, "ping Deniz Kaya now", mention.DisplayText(buffer))
	assert.Equal(t, "plain", mention.DisplayText("plain"))
}

func TestSplit(t *testing.T) {
	segments := mention.Split("Hello @[u123:Ahmet Yılmaz] can you help")
	require.Len(t, segments, 3)

	assert.Equal(t, "Hello ", segments[0].Text)
	assert.Nil(t, segments[0].Mention)

	require.NotNil(t, segments[1].Mention)
	assert.Equal(t, "u123", segments[1].Mention.UserID)
	assert.Equal(t, "Ahmet Yılmaz", segments[1].Mention.DisplayName)

	assert.Equal(t, " can you help", segments[2].Text)
	assert.Nil(t, segments[2].Mention)
}

func TestSplitMalformedStaysLiteral(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing colon", "hi @[u123 Ahmet]"},
		{"unclosed bracket", "hi @[u123:Ahmet"},
		{"empty id", "hi @[:Ahmet]"},
		{"nested bracket", "hi @[u1:[x]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			segments := mention.Split(tt.content)
			require.Len(t, segments, 1)
			assert.Nil(t, segments[0].Mention)
			assert.Equal(t, tt.content, segments[0].Text)
		})
	}
}

func TestTokens(t *testing.T) {
	tokens := mention.Tokens("@[u1:Ada] met @[u2:Grace] at @[u1:Ada]'s desk")
	require.Len(t, tokens, 3)
	assert.Equal(t, "u1", tokens[0].UserID)
	assert.Equal(t, "u2", tokens[1].UserID)
	assert.Equal(t, "u1", tokens[2].UserID)

	assert.Empty(t, mention.Tokens("no tokens"))
}

func TestEncodeDisplayRoundTrip(t *testing.T) {
	// Insert, encode, split: the decoded token must match the user the
	// run was built for.
	buffer := "cc " + mention.MarkerRun("u7", "Mete Öz") + " asap"
	wire := mention.EncodeMarkers(buffer)

	tokens := mention.Tokens(wire)
	require.Len(t, tokens, 1)
	assert.Equal(t, "u7", tokens[0].UserID)
	assert.Equal(t, "Mete Öz", tokens[0].DisplayName)
	assert.Equal(t, "cc @[u7:Mete Öz] asap", wire)
}

func TestTokenIsSelf(t *testing.T) {
	token := mention.Token{UserID: "u9", DisplayName: "Nil"}
	assert.True(t, token.IsSelf("u9"))
	assert.False(t, token.IsSelf("u1"))
	assert.False(t, token.IsSelf(""))
}
