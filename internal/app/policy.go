package app

import "github.com/zonecast/synchub/internal/config"

// EscalationAction tells the caller what to do after a failed broadcast.
type EscalationAction int

const (
	LogAndContinue EscalationAction = iota
	Abort
)

func (a EscalationAction) String() string {
	switch a {
	case Abort:
		return "abort"
	default:
		return "log_and_continue"
	}
}

type Policy interface {
	OnBroadcastError(err error) EscalationAction
}

// ModePolicy aborts in debug mode and degrades in release mode.
type ModePolicy struct {
	Mode string
}

func (p ModePolicy) OnBroadcastError(error) EscalationAction {
	if p.Mode == config.ModeDebug {
		return Abort
	}
	return LogAndContinue
}

// LenientPolicy always degrades.
type LenientPolicy struct{}

func (LenientPolicy) OnBroadcastError(error) EscalationAction { return LogAndContinue }
