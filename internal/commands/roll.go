package commands

import (
	"context"
	"fmt"
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"

	"github.com/keshon/prefixbot/pkg/cmd"
)

const (
	maxDice     = 100
	maxSides    = 1000
	maxModifier = 10000
)

var diceRegex = regexp.MustCompile(`(?i)^(\d*)d(\d+)(?:([+-])(\d+))?$`)

// Dice is one roll expression such as 2d6+1.
type Dice struct {
	Count    int
	Sides    int
	Modifier int
}

func (d Dice) String() string {
	s := fmt.Sprintf("%dd%d", d.Count, d.Sides)
	switch {
	case d.Modifier > 0:
		s += "+" + strconv.Itoa(d.Modifier)
	case d.Modifier < 0:
		s += strconv.Itoa(d.Modifier)
	}
	return s
}

// ParseDice reads NdS, dS, NdS+M and NdS-M.
func ParseDice(s string) (Dice, error) {
	m := diceRegex.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return Dice{}, fmt.Errorf("%q is not a dice expression", s)
	}
	// the regex only lets digits through, so Atoi fails on overflow alone
	var countErr, sidesErr, modErr error
	d := Dice{Count: 1}
	if m[1] != "" {
		d.Count, countErr = strconv.Atoi(m[1])
	}
	d.Sides, sidesErr = strconv.Atoi(m[2])
	if m[4] != "" {
		d.Modifier, modErr = strconv.Atoi(m[4])
		if m[3] == "-" {
			d.Modifier = -d.Modifier
		}
	}
	switch {
	case countErr != nil || sidesErr != nil || d.Count > maxDice || d.Sides > maxSides:
		return Dice{}, fmt.Errorf("too big: max %d dice, %d sides", maxDice, maxSides)
	case modErr != nil || d.Modifier > maxModifier || d.Modifier < -maxModifier:
		return Dice{}, fmt.Errorf("modifier too big: max ±%d", maxModifier)
	case d.Count < 1 || d.Sides < 2:
		return Dice{}, fmt.Errorf("invalid dice %q", s)
	}
	return d, nil
}

// DiceConverter accepts dice expressions. Oversized dice are reported as a
// conversion error rather than a mismatch.
type DiceConverter struct {
	cmd.ConverterOf[Dice]
}

func (DiceConverter) Convert(_ context.Context, cc *cmd.ConversionContext) (Dice, bool, error) {
	raw := cc.Argument()
	if !diceRegex.MatchString(strings.TrimSpace(raw)) {
		return Dice{}, false, nil
	}
	d, err := ParseDice(raw)
	if err != nil {
		return Dice{}, false, err
	}
	return d, true, nil
}

var rollDie = func(sides int) int { return rand.IntN(sides) + 1 }

// Roll throws the dice and returns each die and the total including the
// modifier.
func (d Dice) Roll() ([]int, int) {
	rolls := make([]int, d.Count)
	total := d.Modifier
	for i := range rolls {
		rolls[i] = rollDie(d.Sides)
		total += rolls[i]
	}
	return rolls, total
}

func rollCommand() *cmd.Command {
	return &cmd.Command{
		Name:        "roll",
		Aliases:     []string{"r", "dice"},
		Description: "Roll dice like `2d6+1 d20`",
		Group:       GroupFun.String(),
		Category:    categoryFun,
		Parameters: []*cmd.Parameter{
			cmd.Param[[]Dice]("dice", cmd.Variadic(1, 10), cmd.Describe("up to 10 expressions such as 2d6, d20 or 3d8-2")),
		},
		Handler: roll,
	}
}

func roll(ctx context.Context, c *cmd.Context) error {
	var (
		b     strings.Builder
		grand int
	)
	all := cmd.MustArg[[]Dice](c, "dice")
	for _, d := range all {
		rolls, total := d.Roll()
		parts := make([]string, len(rolls))
		for i, r := range rolls {
			parts[i] = strconv.Itoa(r)
		}
		fmt.Fprintf(&b, "`%s` [%s] = **%d**\n", d, strings.Join(parts, ", "), total)
		grand += total
	}
	if len(all) > 1 {
		fmt.Fprintf(&b, "Total: **%d**", grand)
	}
	return c.Reply(ctx, "🎲 "+strings.TrimRight(b.String(), "\n"))
}

func sumCommand() *cmd.Command {
	return &cmd.Command{
		Name:        "sum",
		Aliases:     []string{"add"},
		Description: "Add numbers together",
		Group:       GroupUtility.String(),
		Category:    categoryUtility,
		Parameters: []*cmd.Parameter{
			cmd.Param[[]float64]("numbers", cmd.Variadic(2, cmd.Unbounded)),
		},
		Handler: func(ctx context.Context, c *cmd.Context) error {
			var total float64
			for _, n := range cmd.MustArg[[]float64](c, "numbers") {
				total += n
			}
			return c.Reply(ctx, "Sum: "+strconv.FormatFloat(total, 'f', -1, 64))
		},
	}
}
