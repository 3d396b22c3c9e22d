// Package timer implements the study-session countdown: a focus/break state machine driven by an
// injectable [Scheduler], the consecutive-day streak bookkeeping, and the JSON record persisted under
// the "timer-storage" namespace.
//
// A [Timer] is constructed once by the composition root (see cmd) and shared by whichever view hosts
// it: the foreground CLI countdown, the TUI, or the dashboard server.
//
// Lifecycle:
//
//	Idle(Focus) --Start--> Running(Focus) --Tick x1500--> Running(Break) --Tick x300--> Running(Focus)
//	     ^                        |
//	     +-------Pause/Reset------+
//
// Phase completion is the only place counters change. Focus completions add a session, credit 25
// minutes and update the streak; break completions only flip the phase.
package timer
