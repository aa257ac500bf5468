package eef

import (
	"bytes"
	"log/slog"
	"math/rand"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var stormStart = time.Date(2015, 3, 17, 4, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func stormInput(n int) Input {
	r := rand.New(rand.NewSource(1))
	in := Input{
		Speed: make([]float64, n),
		By:    make([]float64, n),
		Bz:    make([]float64, n),
	}
	for i := 0; i < n; i++ {
		in.Speed[i] = 450 + r.Float64()*200
		in.By[i] = r.Float64()*20 - 10
		in.Bz[i] = r.Float64()*30 - 20
	}
	return in
}

func gainConfig(lon float64) Config {
	cfg := DefaultConfig().WithLongitude(lon)
	cfg.Start = stormStart
	cfg.Logger = discardLogger()
	return cfg
}

func TestRunEndToEndWithoutGain(t *testing.T) {
	in := Input{
		Speed: []float64{400, 400, 400},
		By:    []float64{0, 0, 0},
		Bz:    []float64{-5, -5, -5},
	}
	cfg := DefaultConfig()
	cfg.ApplyGain = false
	cfg.Logger = discardLogger()

	res, err := Run(in, cfg)
	require.NoError(t, err)

	assert.Equal(t, []float64{2, 2, 2}, res.IEFEy)
	assert.Equal(t, []float64{0, 0, 0}, res.IEFEz)
	assert.Equal(t, Filter(EyTransfer(), []float64{2, 2, 2}), res.FilteredEy)
	assert.Equal(t, []float64{0, 0, 0}, res.FilteredEz)
	assert.InDeltaSlice(t, []float64{0, 0, 0.06}, res.EEF, 1e-12)
	assert.Empty(t, res.Gain)
	assert.Empty(t, res.Times)
}

func TestRunZeroInput(t *testing.T) {
	n := 48
	in := Input{Speed: make([]float64, n), By: make([]float64, n), Bz: make([]float64, n)}

	res, err := Run(in, gainConfig(75))
	require.NoError(t, err)

	for name, s := range map[string][]float64{
		"ief_ey": res.IEFEy, "ief_ez": res.IEFEz,
		"filtered_ey": res.FilteredEy, "filtered_ez": res.FilteredEz,
		"eef": res.EEF,
	} {
		require.Len(t, s, n, name)
		for _, v := range s {
			assert.Zero(t, v, name)
		}
	}
}

func TestRunOutputLengths(t *testing.T) {
	in := stormInput(100)
	configs := map[string]Config{
		"default": gainConfig(-75),
		"no delay": func() Config {
			c := gainConfig(-75)
			c.ApplyDelay = false
			return c
		}(),
		"no gain": func() Config {
			c := gainConfig(-75)
			c.ApplyGain = false
			return c
		}(),
		"odd cadence": func() Config {
			c := gainConfig(-75)
			c.Cadence = time.Minute
			return c
		}(),
	}
	for name, cfg := range configs {
		t.Run(name, func(t *testing.T) {
			res, err := Run(in, cfg)
			require.NoError(t, err)
			assert.Equal(t, 100, res.Len())
			assert.Len(t, res.IEFEy, 100)
			assert.Len(t, res.IEFEz, 100)
			assert.Len(t, res.FilteredEy, 100)
			assert.Len(t, res.FilteredEz, 100)
			assert.Len(t, res.Times, 100)
			if cfg.ApplyGain {
				assert.Len(t, res.Gain, 100)
			} else {
				assert.Empty(t, res.Gain)
			}
		})
	}
}

func TestRunErrors(t *testing.T) {
	good := stormInput(10)

	tests := []struct {
		name string
		in   Input
		cfg  func() Config
		want error
	}{
		{
			name: "length mismatch",
			in:   Input{Speed: good.Speed, By: good.By[:9], Bz: good.Bz},
			cfg:  func() Config { return gainConfig(0) },
			want: ErrLengthMismatch,
		},
		{
			name: "missing longitude",
			in:   good,
			cfg: func() Config {
				c := DefaultConfig()
				c.Start = stormStart
				return c
			},
			want: ErrMissingLongitude,
		},
		{
			name: "missing start",
			in:   good,
			cfg:  func() Config { return DefaultConfig().WithLongitude(10) },
			want: ErrMissingStart,
		},
		{
			name: "zero cadence",
			in:   good,
			cfg: func() Config {
				c := gainConfig(0)
				c.Cadence = 0
				return c
			},
			want: ErrInvalidCadence,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Run(tt.in, tt.cfg())
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, res)
		})
	}
}

func TestRunWithoutGainNeedsNoLocation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ApplyGain = false
	cfg.Logger = discardLogger()

	_, err := Run(stormInput(5), cfg)
	assert.NoError(t, err)
}

func TestRunIsIdempotent(t *testing.T) {
	in := stormInput(288)
	a, err := Run(in, gainConfig(-75))
	require.NoError(t, err)
	b, err := Run(in, gainConfig(-75))
	require.NoError(t, err)

	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("repeated run differs (-first +second):\n%s", diff)
	}
}

func TestRunConcurrentCallsAgree(t *testing.T) {
	in := stormInput(288)
	want, err := Run(in, gainConfig(30))
	require.NoError(t, err)

	results := make(chan *Result, 8)
	for i := 0; i < cap(results); i++ {
		go func() {
			res, err := Run(in, gainConfig(30))
			if err != nil {
				results <- nil
				return
			}
			results <- res
		}()
	}
	for i := 0; i < cap(results); i++ {
		assert.Equal(t, want, <-results)
	}
}

func TestRunDelayShiftsTimeAndGain(t *testing.T) {
	in := stormInput(120)

	delayed := gainConfig(-75)
	delayed.Delay = 1020 * time.Second

	plain := gainConfig(-75)
	plain.ApplyDelay = false

	withDelay, err := Run(in, delayed)
	require.NoError(t, err)
	withoutDelay, err := Run(in, plain)
	require.NoError(t, err)

	require.Len(t, withDelay.Times, 120)
	for i := range withDelay.Times {
		assert.Equal(t, withoutDelay.Times[i].Add(1020*time.Second), withDelay.Times[i])
	}
	assert.Equal(t, stormStart.Add(17*time.Minute), withDelay.Times[0])
	assert.Equal(t, stormStart.Add(17*time.Minute+119*5*time.Minute), withDelay.Times[119])

	advanced := gainConfig(-75)
	advanced.ApplyDelay = false
	advanced.Start = stormStart.Add(1020 * time.Second)
	shifted, err := Run(in, advanced)
	require.NoError(t, err)

	assert.Equal(t, shifted.Gain, withDelay.Gain)
	assert.Equal(t, shifted.EEF, withDelay.EEF)
}

func TestRunNonPositiveDelayIsIgnored(t *testing.T) {
	in := stormInput(12)
	cfg := gainConfig(10)
	cfg.Delay = -time.Hour

	res, err := Run(in, cfg)
	require.NoError(t, err)
	assert.Equal(t, stormStart, res.Times[0])
}

func TestRunUniformGainIsNoOp(t *testing.T) {
	in := stormInput(200)
	unity, err := NewLocalTimeTable([]float64{-1, 25}, []float64{1, 1})
	require.NoError(t, err)

	withGain := gainConfig(120)
	withGain.Table = unity
	gained, err := Run(in, withGain)
	require.NoError(t, err)

	noGain := gainConfig(120)
	noGain.ApplyGain = false
	plain, err := Run(in, noGain)
	require.NoError(t, err)

	assert.Equal(t, plain.EEF, gained.EEF)
	for _, g := range gained.Gain {
		assert.Equal(t, 1.0, g)
	}
}

func TestRunGainWeightsSum(t *testing.T) {
	in := stormInput(50)
	res, err := Run(in, gainConfig(-40))
	require.NoError(t, err)

	for i := range res.EEF {
		want := res.Gain[i] * (res.FilteredEy[i] + res.FilteredEz[i])
		assert.InDelta(t, want, res.EEF[i], 1e-12, "sample %d", i)
	}
}

func TestRunWarnsOnNonStandardCadence(t *testing.T) {
	var buf bytes.Buffer
	cfg := gainConfig(0)
	cfg.Cadence = time.Minute
	cfg.Logger = slog.New(slog.NewTextHandler(&buf, nil))

	res, err := Run(stormInput(10), cfg)
	require.NoError(t, err)
	assert.Len(t, res.EEF, 10)
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "cadence differs")
	assert.Equal(t, stormStart.Add(17*time.Minute+time.Minute), res.Times[1])
}

func TestRunVerboseSummary(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.ApplyGain = false
	cfg.Verbose = true
	cfg.Logger = slog.New(slog.NewTextHandler(&buf, nil))

	in := Input{
		Speed: []float64{400, 400, 400},
		By:    []float64{0, 0, 0},
		Bz:    []float64{-5, -5, -5},
	}
	_, err := Run(in, cfg)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "eef processing summary")
	assert.Contains(t, out, "ief_ey_mV_m.min=2")
	assert.Contains(t, out, "lt_gain.n=0")
	assert.NotContains(t, out, "level=WARN")
}

func TestSummarize(t *testing.T) {
	res := &Result{
		IEFEy: []float64{1, -2, 3},
		EEF:   []float64{0.5},
	}
	s := Summarize(res)
	assert.Equal(t, Range{N: 3, Min: -2, Max: 3}, s.IEFEy)
	assert.Equal(t, Range{N: 1, Min: 0.5, Max: 0.5}, s.EEF)
	assert.Equal(t, Range{}, s.Gain)
}
