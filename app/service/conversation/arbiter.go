package conversation

import "loveoracle/app/service/memory"

// Decision is the fate of an inbound turn.
type Decision int

const (
	// DecisionInvoke: ask the automated responder for a reply.
	DecisionInvoke Decision = iota
	// DecisionSuppress: keep the message, generate nothing; a live answer
	// from the teacher is pending.
	DecisionSuppress
	// DecisionDirect: the turn is itself the reply (live teacher speaking),
	// it is never routed through the dialogue service.
	DecisionDirect
)

// route decides who answers an inbound turn. A teacher turn is always the
// reply itself, regardless of whether the automated responder is enabled.
func route(sender memory.Sender, aiEnabled bool) Decision {
	if sender == memory.SenderOperator {
		return DecisionDirect
	}

	if aiEnabled {
		return DecisionInvoke
	}

	return DecisionSuppress
}
