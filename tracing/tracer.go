// Package tracing records the lifetime of simulation tasks into a data
// recorder, so that a finished run can be inspected offline.
package tracing

import (
	"github.com/sarchlab/musim/sim"
)

// A Recorder is the backend a tracer writes into. It is satisfied by
// datarecording.DataRecorder.
type Recorder interface {
	CreateTable(tableName string, sampleEntry any)
	InsertData(tableName string, entry any)
	Flush()
}

// A TaskTraceEntry is one row of the task trace table: the full lifetime of
// one task.
type TaskTraceEntry struct {
	TaskID    string
	State     string
	Volatile  bool
	StartTime float64
	EndTime   float64
	Turns     int64
}

const taskTableName = "task_trace"

// A DBTracer hooks into a kernel and records a row per task once the task
// reaches a terminal state.
type DBTracer struct {
	timeTeller sim.TimeTeller
	recorder   Recorder

	startTimes map[string]float64
	turnCounts map[string]int64
}

// NewDBTracer creates a DBTracer writing into the given recorder.
func NewDBTracer(timeTeller sim.TimeTeller, recorder Recorder) *DBTracer {
	t := &DBTracer{
		timeTeller: timeTeller,
		recorder:   recorder,
		startTimes: make(map[string]float64),
		turnCounts: make(map[string]int64),
	}

	recorder.CreateTable(taskTableName, TaskTraceEntry{})

	return t
}

// Func records task resumptions and terminations.
func (t *DBTracer) Func(ctx sim.HookCtx) {
	switch ctx.Pos {
	case sim.HookPosBeforeTurn:
		t.taskResumed(ctx)
	case sim.HookPosTaskTerminate:
		t.taskTerminated(ctx)
	}
}

func (t *DBTracer) taskResumed(ctx sim.HookCtx) {
	task, ok := ctx.Item.(*sim.Task)
	if !ok {
		return
	}

	id := task.ID()
	if _, seen := t.startTimes[id]; !seen {
		t.startTimes[id] = float64(t.timeTeller.CurrentTime())
	}
	t.turnCounts[id]++
}

func (t *DBTracer) taskTerminated(ctx sim.HookCtx) {
	task, ok := ctx.Item.(*sim.Task)
	if !ok {
		return
	}

	id := task.ID()
	t.recorder.InsertData(taskTableName, TaskTraceEntry{
		TaskID:    id,
		State:     task.Status().String(),
		Volatile:  task.Volatile(),
		StartTime: t.startTimes[id],
		EndTime:   float64(t.timeTeller.CurrentTime()),
		Turns:     t.turnCounts[id],
	})

	delete(t.startTimes, id)
	delete(t.turnCounts, id)
}
