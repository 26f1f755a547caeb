package session

import "fmt"

// State is a phase of the voice turn lifecycle.
type State string

const (
	StateIdle         State = "idle"
	StateRecording    State = "recording"
	StateTranscribing State = "transcribing"
	StateGenerating   State = "generating"
	StateSynthesizing State = "synthesizing"
	StateSpeaking     State = "speaking"
	StateCancelling   State = "cancelling"
)

// Event drives state transitions.
type Event string

const (
	EventStartVoice  Event = "start_voice"
	EventStartText   Event = "start_text"
	EventCaptured    Event = "captured"
	EventTranscribed Event = "transcribed"
	EventGenerated   Event = "generated"
	EventSynthesized Event = "synthesized"
	EventPlayed      Event = "played"
	EventSpokeLocal  Event = "spoke_local"
	EventCancel      Event = "cancel"
	EventFail        Event = "fail"
	EventResolved    Event = "resolved"
)

// Transition returns the state that follows event from current, or an
// error when the pair is not a legal move. Cancel is legal from every
// active state; fail and cancel both resolve through their terminal
// event back to idle.
func Transition(current State, event Event) (State, error) {
	switch event {
	case EventCancel:
		if current == StateIdle {
			return current, invalidTransition(current, event)
		}
		return StateCancelling, nil
	case EventFail:
		if current == StateIdle || current == StateCancelling {
			return current, invalidTransition(current, event)
		}
		return StateIdle, nil
	}

	switch current {
	case StateIdle:
		switch event {
		case EventStartVoice:
			return StateRecording, nil
		case EventStartText:
			return StateGenerating, nil
		}
	case StateRecording:
		if event == EventCaptured {
			return StateTranscribing, nil
		}
	case StateTranscribing:
		if event == EventTranscribed {
			return StateGenerating, nil
		}
	case StateGenerating:
		if event == EventGenerated {
			return StateSynthesizing, nil
		}
	case StateSynthesizing:
		switch event {
		case EventSynthesized:
			return StateSpeaking, nil
		case EventSpokeLocal:
			return StateSpeaking, nil
		}
	case StateSpeaking:
		if event == EventPlayed {
			return StateIdle, nil
		}
	case StateCancelling:
		if event == EventResolved {
			return StateIdle, nil
		}
	default:
		return current, fmt.Errorf("session: unknown state %q", current)
	}
	return current, invalidTransition(current, event)
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("session: invalid transition: %s --(%s)--> ?", state, event)
}
