package event

// Frame events. Emitted during tick N, delivered at the start of tick N+1.

type FrameSubmitted struct {
	Frame     uint64
	DrawCalls int
}

type SubmitFailed struct {
	Frame uint64
	Err   error
}

type EngineStopped struct {
	Frame uint64
}
