package control

// Device brackets controller transitions with firmware-specific
// behavior. A hook returning an error aborts the transition, except the
// close hooks whose queue flush always happens.
//
// Hooks are invoked from the controller's serialized context:
// implementations must not call back into controller operations from
// them. Dispatch helpers (DispatchStatus, Console) are safe.
type Device interface {
	// ReadyToStream reports whether the device can accept a new stream.
	ReadyToStream() error

	PauseStreaming() error
	ResumeStreaming() error

	CancelBefore() error
	CancelAfter() error

	CloseBefore() error
	CloseAfter() error

	// RawResponse receives every line the transport reads, for
	// firmware-specific parsing (status reports, push messages).
	RawResponse(line string)
}

// Optional device capabilities, discovered by type assertion. Missing
// capabilities surface as ErrUnsupported from the facade.

type Opener interface {
	OpenAfter() error
}

type StatusConfig interface {
	StatusUpdatesChanged(enabled bool)
	StatusRateChanged(ms int)
}

type Homer interface {
	HomingCycle() error
	ReturnToHome() error
}

type Zeroer interface {
	ResetCoordinatesToZero() error
}

type AlarmControl interface {
	KillAlarmLock() error
}

type CheckModer interface {
	ToggleCheckMode() error
}

type ParserStateViewer interface {
	ViewParserState() error
}

type SoftResetter interface {
	SoftReset() error
}
