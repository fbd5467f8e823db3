// Package fsm defines the lifecycle of one recognition session.
package fsm

import "fmt"

type State string

type Event string

const (
	StateIdle        State = "idle"
	StateCreating    State = "creating"
	StateRecognizing State = "recognizing"
	StateDestroying  State = "destroying"
	StateFinished    State = "finished"
	StateFailed      State = "failed"
)

const (
	EventStart     Event = "start"
	EventCreated   Event = "created"
	EventPassed    Event = "passed"
	EventDestroy   Event = "destroy"
	EventDestroyed Event = "destroyed"
	EventFail      Event = "fail"
)

// Transition returns the state reached from current on event.
func Transition(current State, event Event) (State, error) {
	if event == EventFail {
		return StateFailed, nil
	}

	switch current {
	case StateIdle:
		switch event {
		case EventStart:
			return StateCreating, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateCreating:
		switch event {
		case EventCreated:
			return StateRecognizing, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateRecognizing:
		switch event {
		case EventPassed:
			return StateRecognizing, nil
		case EventDestroy:
			return StateDestroying, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateDestroying:
		switch event {
		case EventDestroyed:
			return StateFinished, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateFinished, StateFailed:
		return current, invalidTransition(current, event)
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
