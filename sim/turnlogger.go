package sim

import "log"

// LogHookBase provides the logger shared by logging hooks.
type LogHookBase struct {
	*log.Logger
}

// TurnLogger is a hook that prints every task resumption.
type TurnLogger struct {
	LogHookBase
}

// NewTurnLogger returns a TurnLogger which writes into the given logger.
func NewTurnLogger(logger *log.Logger) *TurnLogger {
	h := new(TurnLogger)
	h.Logger = logger
	return h
}

// Func writes the turn information into the logger.
func (h *TurnLogger) Func(ctx HookCtx) {
	if ctx.Pos != HookPosBeforeTurn {
		return
	}

	kernel, ok := ctx.Domain.(*Kernel)
	if !ok {
		return
	}

	task, ok := ctx.Item.(*Task)
	if !ok {
		h.Printf("%.10f, internal trigger", kernel.CurrentTime())
		return
	}

	h.Printf("%.10f, task %s resumes", kernel.CurrentTime(), task.ID())
}
