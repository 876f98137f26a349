package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDice(t *testing.T) {
	tests := []struct {
		in      string
		want    Dice
		wantErr bool
	}{
		{in: "d20", want: Dice{Count: 1, Sides: 20}},
		{in: "2d6", want: Dice{Count: 2, Sides: 6}},
		{in: "3D8-2", want: Dice{Count: 3, Sides: 8, Modifier: -2}},
		{in: "1d4+10", want: Dice{Count: 1, Sides: 4, Modifier: 10}},
		{in: "0d6", wantErr: true},
		{in: "2d1", wantErr: true},
		{in: "101d6", wantErr: true},
		{in: "1d1001", wantErr: true},
		{in: "1d6+10000", want: Dice{Count: 1, Sides: 6, Modifier: 10000}},
		{in: "1d6-10001", wantErr: true},
		{in: "2d6+99999999999999999999", wantErr: true},
		{in: "99999999999999999999d6", wantErr: true},
		{in: "1d99999999999999999999", wantErr: true},
		{in: "six", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDice(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDiceOverflowMessages(t *testing.T) {
	_, err := ParseDice("2d6+99999999999999999999")
	assert.EqualError(t, err, "modifier too big: max ±10000")

	_, err = ParseDice("99999999999999999999d6")
	assert.EqualError(t, err, "too big: max 100 dice, 1000 sides")
}

func TestDiceRoll(t *testing.T) {
	orig := rollDie
	t.Cleanup(func() { rollDie = orig })
	rollDie = func(sides int) int { return sides }

	rolls, total := Dice{Count: 3, Sides: 6, Modifier: -2}.Roll()
	assert.Equal(t, []int{6, 6, 6}, rolls)
	assert.Equal(t, 16, total)
	assert.Equal(t, "3d6-2", Dice{Count: 3, Sides: 6, Modifier: -2}.String())
	assert.Equal(t, "1d20", Dice{Count: 1, Sides: 20}.String())
}
