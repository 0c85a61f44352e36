package saga

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ok(ctx context.Context) error { return nil }

func TestRunAllSucceed(t *testing.T) {
	var order []string
	step := func(name string) Step {
		return Step{Name: name, Run: func(context.Context) error {
			order = append(order, name)
			return nil
		}}
	}

	require.NoError(t, Run(context.Background(), step("one"), step("two"), step("three")))
	assert.Equal(t, []string{"one", "two", "three"}, order)
}

func TestRunFirstStepFailureIsNotPartial(t *testing.T) {
	boom := errors.New("boom")
	ranSecond := false

	err := Run(context.Background(),
		Step{Name: "create identity", Run: func(context.Context) error { return boom }},
		Step{Name: "create profile", Run: func(context.Context) error { ranSecond = true; return nil }},
	)

	assert.ErrorIs(t, err, boom)
	_, partial := AsPartial(err)
	assert.False(t, partial)
	assert.False(t, ranSecond)
}

func TestRunLaterStepFailureIsPartial(t *testing.T) {
	boom := errors.New("boom")

	err := Run(context.Background(),
		Step{Name: "charge", Run: ok},
		Step{Name: "record booking", Run: func(context.Context) error { return boom }, Partial: "payment captured, booking not recorded"},
		Step{Name: "notify", Run: ok},
	)

	pf, partial := AsPartial(err)
	require.True(t, partial)
	assert.Equal(t, []string{"charge"}, pf.Completed)
	assert.Equal(t, "record booking", pf.Failed)
	assert.Equal(t, "payment captured, booking not recorded", pf.Message)
	assert.ErrorIs(t, err, boom)
}

func TestRunDefaultPartialMessage(t *testing.T) {
	err := Run(context.Background(),
		Step{Name: "a", Run: ok},
		Step{Name: "b", Run: func(context.Context) error { return errors.New("x") }},
	)

	pf, partial := AsPartial(err)
	require.True(t, partial)
	assert.Equal(t, "b failed after a succeeded", pf.Message)
}
