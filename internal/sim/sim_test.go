package sim

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuffrabit/tinygo-eggbot-rp2040/pkg/config"
	"github.com/tuffrabit/tinygo-eggbot-rp2040/pkg/echo"
	"github.com/tuffrabit/tinygo-eggbot-rp2040/pkg/engine"
	"github.com/tuffrabit/tinygo-eggbot-rp2040/pkg/macros"
)

func shortRun() config.Settings {
	return config.Settings{
		Version:             config.CurrentVersion,
		Species:             129,
		Flags:               config.FlagFlameBody,
		InitialEggChecks:    2,
		SubsequentEggChecks: 2,
		Boxes:               1,
		SavePolicy:          config.SaveWhenExhausted,
	}
}

func TestRunReachesDone(t *testing.T) {
	m := engine.New(shortRun(), nil)

	res, err := Run(context.Background(), m, Options{Interval: 8 * time.Millisecond, Logger: zerolog.Nop()})
	require.NoError(t, err)

	assert.True(t, res.Done)
	assert.Equal(t, engine.Done, res.Status.State)
	assert.Equal(t, uint32(1), res.Status.BoxesDone)
	assert.Equal(t, int(res.Ticks)*(echo.Repeats+1)-echo.Repeats, res.Frames)
	assert.Equal(t, time.Duration(res.Frames)*8*time.Millisecond, res.Estimated)

	total := 0
	for _, n := range res.StateTicks {
		total += n
	}
	assert.Equal(t, int(res.Ticks), total)
	assert.Positive(t, res.StateTicks[engine.Save])
	assert.Positive(t, res.StateTicks[engine.Sleep])
	assert.Positive(t, res.StateTicks[engine.CircleCW])
	assert.Positive(t, res.Transitions)
	assert.Nil(t, m.OnTransition)
}

func TestRunFrameLimit(t *testing.T) {
	m := engine.New(shortRun(), nil)

	res, err := Run(context.Background(), m, Options{MaxFrames: 10, Logger: zerolog.Nop()})
	assert.ErrorIs(t, err, ErrFrameLimit)
	require.NotNil(t, res)
	assert.Equal(t, 10, res.Frames)
	assert.Equal(t, uint32(4), res.Ticks)
	assert.False(t, res.Done)
}

func TestRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := Run(ctx, engine.New(shortRun(), nil), Options{Logger: zerolog.Nop()})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, res.Frames)
}

func TestRunKeepsTransitionHook(t *testing.T) {
	m := engine.New(shortRun(), nil)
	seen := 0
	m.OnTransition = func(from, to engine.State) { seen++ }

	res, err := Run(context.Background(), m, Options{MaxFrames: 3000, Logger: zerolog.Nop()})
	assert.ErrorIs(t, err, ErrFrameLimit)
	assert.Equal(t, res.Transitions, seen)
	assert.NotNil(t, m.OnTransition)
}

func TestTrace(t *testing.T) {
	m := engine.New(shortRun(), macros.Builtin())
	var trace bytes.Buffer

	res, err := Run(context.Background(), m, Options{MaxFrames: 300, Trace: &trace, Logger: zerolog.Nop()})
	assert.ErrorIs(t, err, ErrFrameLimit)
	assert.Equal(t, res.Frames*8, trace.Len())

	reports, err := ReadTrace(&trace)
	require.NoError(t, err)
	require.Len(t, reports, res.Frames)
	for i := 0; i+2 < len(reports); i += echo.Repeats + 1 {
		assert.Equal(t, reports[i], reports[i+1], "frame %d", i+1)
		assert.Equal(t, reports[i], reports[i+2], "frame %d", i+2)
	}
}

func TestReadTraceTruncated(t *testing.T) {
	_, err := ReadTrace(bytes.NewReader(make([]byte, 12)))
	assert.Error(t, err)
}
