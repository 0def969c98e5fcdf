package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddExact(t *testing.T) {
	// The motivating case: 0.1+0.2 must not come out as 0.30000000000000004.
	assert.Equal(t, "0.30", Add("0.10", "0.20"))
	assert.Equal(t, "2.00", Add("1.00", "1.00"))
	assert.Equal(t, "0.00", Add("1.50", "-1.50"))
}

func TestSubtractRoundTrip(t *testing.T) {
	cases := []struct{ a, b string }{
		{"0.10", "0.20"},
		{"10.00", "0.01"},
		{"999.99", "123.45"},
		{"0.00", "0.00"},
	}
	for _, c := range cases {
		assert.Equal(t, c.a, Subtract(Add(c.a, c.b), c.b), "subtract(add(%s,%s),%s)", c.a, c.b, c.b)
	}
}

func TestAccumulationDrift(t *testing.T) {
	// 100 additions of 0.10 must land on exactly 10.00.
	sum := "0.00"
	for i := 0; i < 100; i++ {
		sum = Add(sum, "0.10")
	}
	assert.Equal(t, "10.00", sum)
}

func TestCompare(t *testing.T) {
	assert.Equal(t, -1, Compare("9.99", "10.00"))
	assert.Equal(t, 0, Compare("10.00", "10.00"))
	assert.Equal(t, 1, Compare("10.01", "10.00"))
}

func TestSignPredicates(t *testing.T) {
	assert.True(t, IsPositive("0.01"))
	assert.True(t, IsNegative("-0.01"))
	assert.True(t, IsZero("0.00"))
	assert.False(t, IsPositive("0.00"))
}

func TestCentsConversion(t *testing.T) {
	c, err := ToCents("1.00")
	require.NoError(t, err)
	assert.Equal(t, int64(100), c)

	c, err = ToCents("0.30")
	require.NoError(t, err)
	assert.Equal(t, int64(30), c)

	assert.Equal(t, "12.34", FromCents(1234))
	assert.Equal(t, "-0.05", FromCents(-5))
}

func TestMalformedInput(t *testing.T) {
	_, err := ToCents("not money")
	require.Error(t, err)

	// Internal arithmetic must fail loudly, never coerce to zero.
	assert.Panics(t, func() { Add("garbage", "1.00") })
}
