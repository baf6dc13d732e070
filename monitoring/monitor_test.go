package monitoring

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sarchlab/musim/sim"
)

func TestProgressBarLifecycle(t *testing.T) {
	m := NewMonitor()

	bar := m.CreateProgressBar("loading", 100)
	bar.IncrementInProgress(10)
	bar.MoveInProgressToFinished(4)
	bar.IncrementFinished(1)

	assert.Equal(t, uint64(6), bar.InProgress)
	assert.Equal(t, uint64(5), bar.Finished)

	recorder := httptest.NewRecorder()
	m.listProgressBars(recorder, nil)

	var bars []ProgressBar
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &bars))
	require.Len(t, bars, 1)
	assert.Equal(t, "loading", bars[0].Name)

	m.CompleteProgressBar(bar)

	recorder = httptest.NewRecorder()
	m.listProgressBars(recorder, nil)
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &bars))
	assert.Empty(t, bars)
}

func TestStatusEndpointReportsKernelState(t *testing.T) {
	m := NewMonitor()
	kernel := sim.NewKernel()
	m.RegisterKernel(kernel)

	err := kernel.Run(func(p *sim.Proc) (any, error) {
		return nil, p.Hold(2)
	})
	require.NoError(t, err)

	recorder := httptest.NewRecorder()
	m.status(recorder, nil)

	var status sim.KernelStatus
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &status))
	assert.Equal(t, sim.VTimeInSec(2), status.Now)
	assert.NotZero(t, status.Turns)
}

func TestNowEndpoint(t *testing.T) {
	m := NewMonitor()
	kernel := sim.NewKernel()
	m.RegisterKernel(kernel)

	recorder := httptest.NewRecorder()
	m.now(recorder, nil)

	var payload struct {
		Now float64 `json:"now"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &payload))
	assert.Equal(t, 0.0, payload.Now)
}
