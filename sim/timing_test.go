package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetronomes(t *testing.T) {
	kernel := NewKernel()
	log := &emitter{}

	metronome := func(period VTimeInSec, sound string) Activity {
		return func(p *Proc) (any, error) {
			beat := EachDelay(period)
			for {
				if _, err := beat.Next(p); err != nil {
					return nil, err
				}
				log.emit(p, "%s", sound)
			}
		}
	}

	err := kernel.RunUntil(5,
		metronome(1, "tick"),
		metronome(2, "TOCK"),
	)

	require.NoError(t, err)
	assert.Equal(t, []emission{
		{"tick", 1},
		{"TOCK", 2},
		{"tick", 2},
		{"tick", 3},
		{"TOCK", 4},
		{"tick", 4},
		{"tick", 5},
	}, log.emissions)
}

func TestIntervalIsIndependentOfWork(t *testing.T) {
	kernel := NewKernel()

	var resumptions []VTimeInSec

	err := kernel.RunUntil(35, func(p *Proc) (any, error) {
		series := EachInterval(10)
		for {
			now, err := series.Next(p)
			if err != nil {
				return nil, err
			}
			resumptions = append(resumptions, now)

			// in-block work shorter than the interval
			if err := p.Hold(1); err != nil {
				return nil, err
			}
		}
	})

	require.NoError(t, err)
	assert.Equal(t, []VTimeInSec{10, 20, 30}, resumptions)
}

func TestDelayMeasuresFromLastResumption(t *testing.T) {
	kernel := NewKernel()

	var resumptions []VTimeInSec

	err := kernel.RunUntil(40, func(p *Proc) (any, error) {
		series := EachDelay(10)
		for {
			now, err := series.Next(p)
			if err != nil {
				return nil, err
			}
			resumptions = append(resumptions, now)

			if err := p.Hold(1); err != nil {
				return nil, err
			}
		}
	})

	require.NoError(t, err)
	assert.Equal(t, []VTimeInSec{10, 21, 32}, resumptions)
}

func TestReachFiresAtTheMoment(t *testing.T) {
	kernel := NewKernel()

	var reachedAt VTimeInSec

	err := kernel.Run(
		func(p *Proc) (any, error) {
			if err := p.Wait(p.Time().Reach(7)); err != nil {
				return nil, err
			}
			reachedAt = p.Now()
			return nil, nil
		},
		func(p *Proc) (any, error) {
			return nil, p.Hold(20)
		},
	)

	require.NoError(t, err)
	assert.Equal(t, VTimeInSec(7), reachedAt)
}

func TestBeforeFiresOnlyBeforeTheMoment(t *testing.T) {
	kernel := NewKernel()

	early := false
	late := false

	err := kernel.Run(
		func(p *Proc) (any, error) {
			if err := p.Wait(p.Time().Before(5)); err != nil {
				return nil, err
			}
			early = true
			return nil, nil
		},
		func(p *Proc) (any, error) {
			if err := p.Hold(6); err != nil {
				return nil, err
			}
			return nil, p.Scope(func(s *Scope) error {
				s.Do(func(p *Proc) (any, error) {
					if err := p.Wait(p.Time().Before(5)); err != nil {
						return nil, err
					}
					late = true
					return nil, nil
				}, Volatile())
				return p.Hold(1)
			})
		},
	)

	require.NoError(t, err)
	assert.True(t, early)
	assert.False(t, late)
}

func TestMomentCondition(t *testing.T) {
	kernel := NewKernel()

	var atMoment VTimeInSec

	err := kernel.Run(
		func(p *Proc) (any, error) {
			if err := p.Wait(p.Time().At(3)); err != nil {
				return nil, err
			}
			atMoment = p.Now()
			return nil, nil
		},
		func(p *Proc) (any, error) {
			return nil, p.Hold(10)
		},
	)

	require.NoError(t, err)
	assert.Equal(t, VTimeInSec(3), atMoment)
}

func TestEternityNeverFires(t *testing.T) {
	kernel := NewKernel()

	woken := false

	err := kernel.RunUntil(100, func(p *Proc) (any, error) {
		return nil, p.Scope(func(s *Scope) error {
			s.Do(func(p *Proc) (any, error) {
				if err := p.Wait(Eternity); err != nil {
					return nil, err
				}
				woken = true
				return nil, nil
			}, Volatile())
			return p.Hold(50)
		})
	})

	require.NoError(t, err)
	assert.False(t, woken)
	assert.False(t, Eternity.Value())
	assert.True(t, Instant.Value())
	assert.Equal(t, Instant, Eternity.Not())
	assert.Equal(t, Eternity, Instant.Not())
}
