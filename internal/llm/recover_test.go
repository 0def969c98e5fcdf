package llm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const goodResult = `{
	"percentage": 72.5,
	"category_scores": {"structure": 70, "argument": 75, "language": 72},
	"strengths": ["clear thesis"],
	"improvements": ["cite sources"],
	"language_tips": ["vary sentence openings"]
}`

func TestRecoverFencedJSON(t *testing.T) {
	err := &Error{
		Kind:    KindMalformedOutput,
		Model:   "gemini-2.5-flash",
		RawText: "```json\n" + goodResult + "\n```",
	}
	res := Recover(err)
	require.NotNil(t, res)
	assert.True(t, res.Recovered)
	assert.Equal(t, 72.5, res.Percentage)
	assert.Equal(t, []string{"clear thesis"}, res.Strengths)
}

func TestRecoverWhitespaceOnly(t *testing.T) {
	err := &Error{Kind: KindMalformedOutput, Model: "m", RawText: "\n\n  " + goodResult + "  \n"}
	res := Recover(err)
	require.NotNil(t, res)
	assert.True(t, res.Recovered)
}

func TestRecoverNotApplicable(t *testing.T) {
	// Wrong kind.
	assert.Nil(t, Recover(&Error{Kind: KindTimeout, Model: "m"}))
	// No raw text to repair.
	assert.Nil(t, Recover(&Error{Kind: KindMalformedOutput, Model: "m"}))
	// Not a provider error at all.
	assert.Nil(t, Recover(errors.New("boom")))
}

func TestRecoverStillMalformed(t *testing.T) {
	err := &Error{Kind: KindMalformedOutput, Model: "m", RawText: "```json\n{\"percentage\": \"high\"}\n```"}
	assert.Nil(t, Recover(err))
}

func TestRecoverMissingRequiredFields(t *testing.T) {
	err := &Error{Kind: KindMalformedOutput, Model: "m",
		RawText: `{"percentage": 80, "category_scores": {}}`}
	assert.Nil(t, Recover(err))
}

func TestFailureReason(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"truncated", &Error{Kind: KindMalformedOutput, RawText: `{"percentage": 72, "cat`}, ReasonTruncated},
		{"parse", &Error{Kind: KindMalformedOutput, RawText: `{"percentage": "high"}`}, ReasonParse},
		{"api", &Error{Kind: KindRateLimited}, ReasonAPI},
		{"unknown kind", &Error{Kind: KindUnknown}, ReasonUnknown},
		{"foreign error", errors.New("boom"), ReasonUnknown},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, FailureReason(c.err))
		})
	}
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(&Error{Kind: KindTimeout}))
	assert.True(t, IsTransient(&Error{Kind: KindRateLimited}))
	assert.True(t, IsTransient(&Error{Kind: KindUnavailable}))
	assert.False(t, IsTransient(&Error{Kind: KindUnauthorized}))
	assert.False(t, IsTransient(&Error{Kind: KindBadRequest}))
	assert.False(t, IsTransient(&Error{Kind: KindMalformedOutput}))
	// Unrecognized errors default to permanent.
	assert.False(t, IsTransient(errors.New("mystery")))
}

func TestParseResultRoundsOutRaw(t *testing.T) {
	res, err := ParseResult([]byte(goodResult))
	require.NoError(t, err)
	assert.JSONEq(t, goodResult, string(res.Raw))
	assert.False(t, res.Recovered)
}

func TestParseResultRejectsOutOfRange(t *testing.T) {
	_, err := ParseResult([]byte(`{"percentage": 140, "category_scores": {"a": 1}, "strengths": [], "improvements": []}`))
	require.Error(t, err)
}
