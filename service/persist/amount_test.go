package persist

import (
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAmount_Arithmetic(t *testing.T) {
	a := assert.New(t)

	t.Run("multiplies price by days", func(t *testing.T) {
		total, err := NewAmount(100).MulInt64(3)
		a.NoError(err)
		a.Equal("300", total.String())
	})

	t.Run("adds and subtracts", func(t *testing.T) {
		sum, err := NewAmount(250).Add(NewAmount(50))
		a.NoError(err)
		a.Equal("300", sum.String())

		diff, err := sum.Sub(NewAmount(300))
		a.NoError(err)
		a.True(diff.IsZero())
	})

	t.Run("rejects subtraction below zero", func(t *testing.T) {
		_, err := NewAmount(1).Sub(NewAmount(2))
		a.Error(err)
	})

	t.Run("integer division truncates", func(t *testing.T) {
		q, err := NewAmount(333).DivInt64(100)
		a.NoError(err)
		a.Equal("3", q.String())
	})
}

func TestAmount_Overflow(t *testing.T) {
	a := assert.New(t)

	// 2^256 - 1, the largest representable amount
	max := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

	atMax, err := NewAmountFromString(max.String())
	require.NoError(t, err)

	t.Run("holds the maximum value", func(t *testing.T) {
		a.Equal(max.String(), atMax.String())
	})

	t.Run("rejects results wider than 256 bits", func(t *testing.T) {
		_, err := atMax.Add(NewAmount(1))
		a.Error(err)
		a.IsType(ErrAmountOverflow{}, err)

		_, err = atMax.MulInt64(2)
		a.Error(err)
		a.IsType(ErrAmountOverflow{}, err)
	})

	t.Run("rejects parsing beyond 256 bits", func(t *testing.T) {
		over := new(big.Int).Add(max, big.NewInt(1))
		_, err := NewAmountFromString(over.String())
		a.Error(err)
	})

	t.Run("rejects negative strings", func(t *testing.T) {
		_, err := NewAmountFromString("-1")
		a.Error(err)
	})
}

func TestAmount_JSON(t *testing.T) {
	a := assert.New(t)

	amt := NewAmount(12345)
	b, err := amt.MarshalJSON()
	a.NoError(err)
	a.Equal(`"12345"`, strings.TrimSpace(string(b)))

	var parsed Amount
	a.NoError(parsed.UnmarshalJSON(b))
	a.Zero(parsed.Cmp(amt))
}
