package session

// Callbacks are invoked as a turn moves through its lifecycle. All
// callbacks run on the turn's goroutine; a nil callback is skipped.
// Exactly one of OnResponse-then-terminal or OnError fires per turn:
// a cancelled turn resolves through OnError(ErrCancelled).
type Callbacks struct {
	// OnStateChange fires on every lifecycle transition.
	OnStateChange func(from, to State)

	// OnTranscript fires once the user's speech is transcribed.
	OnTranscript func(text string)

	// OnResponse fires once the assistant reply text is generated.
	OnResponse func(text string)

	// OnSpeakingStart fires when playback of the reply begins.
	OnSpeakingStart func()

	// OnSpeakingEnd fires when playback completes. It does not fire
	// for turns interrupted mid-playback.
	OnSpeakingEnd func()

	// OnError fires when the turn fails or is cancelled. Use
	// IsCancelled to tell the two apart.
	OnError func(err error)
}

func (c *Callbacks) stateChange(from, to State) {
	if c != nil && c.OnStateChange != nil {
		c.OnStateChange(from, to)
	}
}

func (c *Callbacks) transcript(text string) {
	if c != nil && c.OnTranscript != nil {
		c.OnTranscript(text)
	}
}

func (c *Callbacks) response(text string) {
	if c != nil && c.OnResponse != nil {
		c.OnResponse(text)
	}
}

func (c *Callbacks) speakingStart() {
	if c != nil && c.OnSpeakingStart != nil {
		c.OnSpeakingStart()
	}
}

func (c *Callbacks) speakingEnd() {
	if c != nil && c.OnSpeakingEnd != nil {
		c.OnSpeakingEnd()
	}
}

func (c *Callbacks) fail(err error) {
	if c != nil && c.OnError != nil {
		c.OnError(err)
	}
}
