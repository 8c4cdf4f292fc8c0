// Package npi implements the network-processor-interface transport: the
// framed byte stream that carries marshal.Frame primitives between the
// application processor and the radio/network processor, with a
// synchronous request/confirm RPC pattern layered over an asynchronous
// read loop. The read-loop/done-channel/WaitGroup shutdown shape mirrors
// the SSH tunnel's forwarding loop, generalized from a Redis port forward
// to a primitive-carrying byte stream.
package npi

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rf4ce/remoti/internal/obs"
	"github.com/rf4ce/remoti/pkg/marshal"
)

// Transport reads and writes marshal.Frame values over a byte stream
// (a serial port, a TCP socket, an SSH-forwarded connection, or a
// net.Pipe in tests).
type Transport struct {
	conn io.ReadWriteCloser

	mu      sync.Mutex
	waiting map[uint8]chan marshal.Frame

	indicationHandler func(marshal.Frame)

	done chan struct{}
	wg   sync.WaitGroup

	readErrMu sync.Mutex
	readErr   error
}

// Open wraps conn as an NPI transport. Call Start to begin the read loop.
func Open(conn io.ReadWriteCloser) *Transport {
	return &Transport{
		conn:    conn,
		waiting: make(map[uint8]chan marshal.Frame),
		done:    make(chan struct{}),
	}
}

// SetIndicationHandler installs the callback invoked for every inbound
// frame that is not the confirm of an in-flight Call.
func (t *Transport) SetIndicationHandler(h func(marshal.Frame)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.indicationHandler = h
}

// Start begins the background read loop.
func (t *Transport) Start() {
	t.wg.Add(1)
	go t.readLoop()
}

func (t *Transport) readLoop() {
	defer t.wg.Done()
	for {
		f, err := marshal.ReadFrame(t.conn)
		if err != nil {
			select {
			case <-t.done:
				return
			default:
			}
			t.readErrMu.Lock()
			t.readErr = err
			t.readErrMu.Unlock()
			obs.WithField("error", err.Error()).Warn("npi: read loop terminating")
			return
		}

		t.mu.Lock()
		ch, isWaited := t.waiting[f.CommandID]
		if isWaited {
			delete(t.waiting, f.CommandID)
		}
		handler := t.indicationHandler
		t.mu.Unlock()

		if isWaited {
			ch <- f
			continue
		}
		if handler != nil {
			handler(f)
		}
	}
}

// Call writes req and blocks until a frame with CommandID == confirmCmd
// arrives, or timeout elapses. Only one outstanding Call per confirmCmd is
// supported, matching the cooperative single-threaded model where a task
// never has two requests of the same kind in flight at once.
func (t *Transport) Call(req marshal.Frame, confirmCmd uint8, timeout time.Duration) (marshal.Frame, error) {
	ch := make(chan marshal.Frame, 1)

	t.mu.Lock()
	if _, exists := t.waiting[confirmCmd]; exists {
		t.mu.Unlock()
		return marshal.Frame{}, fmt.Errorf("npi: a call awaiting confirm 0x%02x is already in flight", confirmCmd)
	}
	t.waiting[confirmCmd] = ch
	t.mu.Unlock()

	if err := marshal.WriteFrame(t.conn, req); err != nil {
		t.mu.Lock()
		delete(t.waiting, confirmCmd)
		t.mu.Unlock()
		return marshal.Frame{}, err
	}

	select {
	case f := <-ch:
		return f, nil
	case <-time.After(timeout):
		t.mu.Lock()
		delete(t.waiting, confirmCmd)
		t.mu.Unlock()
		return marshal.Frame{}, fmt.Errorf("npi: timed out waiting for confirm 0x%02x", confirmCmd)
	}
}

// Send writes a frame without waiting for any reply, for fire-and-forget
// indications/responses the local side sends back.
func (t *Transport) Send(f marshal.Frame) error {
	return marshal.WriteFrame(t.conn, f)
}

// Close stops the read loop and closes the underlying connection.
func (t *Transport) Close() error {
	close(t.done)
	err := t.conn.Close()
	t.wg.Wait()
	return err
}

// ReadErr returns the error that terminated the read loop, if any.
func (t *Transport) ReadErr() error {
	t.readErrMu.Lock()
	defer t.readErrMu.Unlock()
	return t.readErr
}
