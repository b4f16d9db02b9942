package lieability

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seeded(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed+1))
}

// poolDraw serves fillers from a fixed list, skipping taken ones.
func poolDraw(pool ...string) fillerDraw {
	return func(taken map[string]bool) (string, bool) {
		for _, l := range pool {
			if !taken[normalize(l)] {
				return l, true
			}
		}

		return "", false
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, normalize("Paris"), normalize("  PARIS "))
	assert.Equal(t, normalize("new   york"), normalize("New York"))
	assert.Equal(t, normalize("STRASSE"), normalize("strasse"))
	assert.NotEqual(t, normalize("Paris"), normalize("Pariss"))
}

func TestCompileOptionsMergesIdenticalLies(t *testing.T) {
	lies := []authoredLie{
		{author: "a", text: "Paris"},
		{author: "b", text: "  paris "},
		{author: "c", text: "Rome"},
	}

	opts, truth := compileOptions(lies, "Lyon", 0, poolDraw(), seeded(1))
	require.Len(t, opts, 3)

	assert.Equal(t, OptionTruth, opts[truth].Kind)
	assert.Equal(t, "Lyon", opts[truth].Text)

	for _, o := range opts {
		if normalize(o.Text) == "paris" {
			assert.ElementsMatch(t, []string{"a", "b"}, o.Authors)
		}
	}
}

func TestCompileOptionsPadsToTarget(t *testing.T) {
	lies := []authoredLie{{author: "a", text: "Paris"}}

	opts, truth := compileOptions(lies, "Lyon", 4, poolDraw("paris", "lyon", "Nice", "Lille", "Metz"), seeded(2))
	require.Len(t, opts, 5)

	fillers := 0
	for i, o := range opts {
		if i == truth {
			continue
		}

		assert.Equal(t, OptionLie, o.Kind)
		assert.NotEqual(t, "lyon", normalize(o.Text))

		if len(o.Authors) == 0 {
			fillers++
		}
	}
	assert.Equal(t, 3, fillers)
}

func TestCompileOptionsStopsWhenFillersRunOut(t *testing.T) {
	opts, truth := compileOptions(nil, "Lyon", 5, poolDraw("Nice"), seeded(3))

	require.Len(t, opts, 2)
	assert.Equal(t, "Lyon", opts[truth].Text)
}

func TestCompileOptionsIDsAreUnique(t *testing.T) {
	for seed := range uint64(20) {
		lies := []authoredLie{
			{author: "a", text: "one"},
			{author: "b", text: "two"},
			{author: "c", text: "three"},
		}

		opts, truth := compileOptions(lies, "four", 6, poolDraw("five", "six", "seven"), seeded(seed))

		ids := map[string]bool{}
		truths := 0
		for _, o := range opts {
			assert.NotEmpty(t, o.ID)
			assert.False(t, ids[o.ID])
			ids[o.ID] = true

			if o.Kind == OptionTruth {
				truths++
			}
		}

		assert.Equal(t, 1, truths)
		assert.Equal(t, "four", opts[truth].Text)
	}
}

func TestMysteryFiller(t *testing.T) {
	taken := map[string]bool{}
	blocked := func(key string) bool { return taken[key] }

	assert.Equal(t, "Mystery answer", mysteryFiller(blocked))

	taken[normalize("Mystery answer")] = true
	taken[normalize("Mystery answer 2")] = true
	assert.Equal(t, "Mystery answer 3", mysteryFiller(blocked))
}

func TestDrawFillerFallsBackWhenPoolIsExhausted(t *testing.T) {
	h := newHarness(t, DefaultRules())
	h.join("Alice")
	h.join("Bob")
	h.toLies()

	h.inspect(func(s *Session) {
		taken := s.takenLies()

		var got []string
		for range 6 {
			got = append(got, s.drawFiller(taken))
		}

		assert.ElementsMatch(t, []string{
			"filler one", "filler two", "filler three", "filler four",
			"Mystery answer", "Mystery answer 2",
		}, got)
	})
}
