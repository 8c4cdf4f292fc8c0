package marshal

import "sync"

// syncCommands are the primitives that produce a synchronous response in
// the same request/response exchange (RESET, GET, SET). This package
// defines no RX-ENABLE command id. Every other command id produces its
// confirm/indication asynchronously, later, on its own frame.
var syncCommands = map[uint8]bool{
	CmdResetReq: true,
	CmdGetReq:   true,
	CmdSetReq:   true,
}

// IsSynchronous reports whether commandID belongs to the synchronous
// request/response class.
func IsSynchronous(commandID uint8) bool { return syncCommands[commandID] }

// SyncHandler answers a synchronous request with its response frame. The
// returned bool signals whether the surrogate wishes to keep ownership of
// the callback stream (true) or hand it back to the caller (false).
type SyncHandler func(req Frame) (resp Frame, keepOwnership bool)

// AsyncHandler processes an asynchronous confirm/indication frame.
type AsyncHandler func(ind Frame)

// Dispatcher routes inbound frames to registered handlers, keyed by
// (subsystem, command id), implementing the surrogate's sync/async split.
type Dispatcher struct {
	mu    sync.Mutex
	sync  map[dispatchKey]SyncHandler
	async map[dispatchKey]AsyncHandler
	owned bool
}

type dispatchKey struct {
	sub Subsystem
	cmd uint8
}

// NewDispatcher constructs an empty dispatcher. Ownership of the callback
// stream starts with the caller.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		sync:  make(map[dispatchKey]SyncHandler),
		async: make(map[dispatchKey]AsyncHandler),
	}
}

// RegisterSync installs the handler for a synchronous command.
func (d *Dispatcher) RegisterSync(sub Subsystem, cmd uint8, h SyncHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sync[dispatchKey{sub, cmd}] = h
}

// RegisterAsync installs the handler for an asynchronous confirm/indication.
func (d *Dispatcher) RegisterAsync(sub Subsystem, cmd uint8, h AsyncHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.async[dispatchKey{sub, cmd}] = h
}

// OwnsCallbackStream reports whether the surrogate currently owns the
// callback stream (per the most recent synchronous handler's return).
func (d *Dispatcher) OwnsCallbackStream() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.owned
}

// Dispatch routes one inbound frame. For a synchronous command it returns
// the response frame and ok=true. For an asynchronous command it invokes
// the registered async handler (if any) and returns ok=false with a zero
// Frame, since no reply is produced in this exchange.
func (d *Dispatcher) Dispatch(f Frame) (resp Frame, ok bool) {
	key := dispatchKey{f.Subsystem, f.CommandID}

	d.mu.Lock()
	sh, isSync := d.sync[key]
	ah, isAsync := d.async[key]
	d.mu.Unlock()

	if isSync {
		r, keep := sh(f)
		d.mu.Lock()
		d.owned = keep
		d.mu.Unlock()
		return r, true
	}
	if isAsync {
		ah(f)
	}
	return Frame{}, false
}
