package domain

// TransportEvent is the closed set of events a transport delivers to the
// session controller. Consumers switch on the concrete type.
type TransportEvent interface {
	isTransportEvent()
}

// Connected: handshake completed, connection open.
type Connected struct{}

// ConnectionError: one connection attempt failed; another will follow.
type ConnectionError struct {
	Attempt int
	Err     error
}

// ConnectionFailed is terminal: attempts exhausted or the server rejected the handshake.
type ConnectionFailed struct {
	Attempts int
	Err      error
	Rejected bool
}

// Disconnected: an open connection closed. Terminal closes are not retried.
type Disconnected struct {
	Reason   string
	Terminal bool
}

// ProctoringAlert carries one inbound proctoring_alert.
type ProctoringAlert struct {
	Message AlertMessage
}

// TransportError reports a non-fatal protocol problem.
type TransportError struct {
	Err error
}

func (Connected) isTransportEvent()        {}
func (ConnectionError) isTransportEvent()  {}
func (ConnectionFailed) isTransportEvent() {}
func (Disconnected) isTransportEvent()     {}
func (ProctoringAlert) isTransportEvent()  {}
func (TransportError) isTransportEvent()   {}
