package reactor

import (
	"fmt"
	"io"
	"sync"

	"github.com/mosaicnetworks/reactor/src/effect"
	"github.com/ugorji/go/codec"
)

// Record is one dispatch call as written by a Recorder.
type Record struct {
	Seq       uint64      `codec:"seq"`
	Component string      `codec:"component"`
	Kind      effect.Kind `codec:"kind"`
	External  bool        `codec:"external,omitempty"`
	Event     interface{} `codec:"event"`
	State     interface{} `codec:"state,omitempty"`
}

// Recorder writes every dispatch call, with the event delivered and the
// component's snapshot after it, as one line of canonical JSON. Two runs with
// the same input trace, completion order and seed write identical bytes.
type Recorder struct {
	mu  sync.Mutex
	w   io.Writer
	jh  *codec.JsonHandle
	seq uint64
	err error
}

// NewRecorder returns a Recorder writing to w.
func NewRecorder(w io.Writer) *Recorder {
	jh := new(codec.JsonHandle)
	jh.Canonical = true

	return &Recorder{
		w:  w,
		jh: jh,
	}
}

func (rec *Recorder) record(component string, ev effect.Event, external bool, state interface{}) {
	rec.mu.Lock()
	defer rec.mu.Unlock()

	if rec.err != nil {
		return
	}

	rec.seq++
	r := Record{
		Seq:       rec.seq,
		Component: component,
		Kind:      ev.Kind(),
		External:  external,
		Event:     ev,
		State:     state,
	}

	var b []byte
	if err := codec.NewEncoderBytes(&b, rec.jh).Encode(r); err != nil {
		rec.err = fmt.Errorf("encode record %d: %w", r.Seq, err)
		return
	}
	b = append(b, '\n')

	if _, err := rec.w.Write(b); err != nil {
		rec.err = fmt.Errorf("write record %d: %w", r.Seq, err)
	}
}

// Err returns the first encoding or write error. Recording stops after it.
func (rec *Recorder) Err() error {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.err
}
