// Package upload holds the upload form: one selected file, one status, and
// the single POST that moves between them.
package upload

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
)

// Status is the state the form shows to the user.
type Status int

const (
	Idle Status = iota
	Uploading
	Success
	Error
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Uploading:
		return "uploading"
	case Success:
		return "success"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// User-facing messages.
const (
	MsgSelectFile = "Please select a file."
	MsgUploading  = "Uploading..."
	MsgSuccess    = "Upload succeeded!"
	MsgFailure    = "Upload failed. Please try again."
)

// ErrNoFile is returned by Submit when nothing has been selected.
var ErrNoFile = errors.New("no file selected")

// Poster sends one file to the upload endpoint.
type Poster interface {
	Post(ctx context.Context, file *File) error
}

// State is a snapshot of the form.
type State struct {
	Status    Status
	Message   string
	FileName  string
	CanSubmit bool

	seq uint64
}

// Form is safe for concurrent use. Submissions are not serialized; only the
// latest selection or submission is allowed to change the displayed status.
type Form struct {
	poster Poster
	logger *log.Logger

	mu        sync.Mutex
	file      *File
	status    Status
	message   string
	attempt   uuid.UUID
	seq       uint64
	listeners []func(State)

	// notifyMu orders listener calls; notified is the last seq delivered.
	notifyMu sync.Mutex
	notified uint64
}

// NewForm returns an idle form. A nil logger uses the standard logger.
func NewForm(poster Poster, logger *log.Logger) *Form {
	if logger == nil {
		logger = log.Default()
	}
	return &Form{poster: poster, logger: logger}
}

// OnChange registers fn to be called with the new state after every transition.
// Listeners are called one at a time and never with a state older than one
// they have already seen. They must not call Select or Submit.
func (f *Form) OnChange(fn func(State)) {
	f.mu.Lock()
	f.listeners = append(f.listeners, fn)
	f.mu.Unlock()
}

// Select stores file as the current selection and resets the status.
// A nil file clears the selection.
func (f *Form) Select(file *File) {
	f.mu.Lock()
	f.file = file
	f.attempt = uuid.Nil
	f.set(Idle, "")
}

// CanSubmit reports whether the submit control should be enabled.
func (f *Form) CanSubmit() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.file != nil
}

// State returns a snapshot of the form.
func (f *Form) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshot()
}

// Submit posts the selected file and blocks until the request finishes.
// It returns ErrNoFile without touching the network when nothing is selected.
func (f *Form) Submit(ctx context.Context) error {
	f.mu.Lock()
	file := f.file
	if file == nil {
		f.attempt = uuid.Nil
		f.set(Error, MsgSelectFile)
		return ErrNoFile
	}
	attempt := uuid.New()
	f.attempt = attempt
	f.set(Uploading, MsgUploading)

	err := f.poster.Post(ctx, file)

	f.mu.Lock()
	if f.attempt != attempt {
		f.mu.Unlock()
		if err != nil {
			f.logger.Printf("superseded upload %s of %s failed: %v", attempt, file.Name, err)
		}
		return f.result(file, err)
	}
	if err != nil {
		f.logger.Printf("upload %s of %s failed: %v", attempt, file.Name, err)
		f.set(Error, MsgFailure)
		return f.result(file, err)
	}
	f.logger.Printf("upload %s of %s (%d bytes) succeeded", attempt, file.Name, file.Size)
	f.set(Success, MsgSuccess)
	return nil
}

// SubmitAsync starts Submit in the background. The channel receives the
// result and is then closed.
func (f *Form) SubmitAsync(ctx context.Context) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- f.Submit(ctx)
		close(done)
	}()
	return done
}

func (f *Form) result(file *File, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("upload %s: %w", file.Name, err)
}

// set updates the state, releases f.mu and notifies listeners. Callers must
// hold f.mu.
func (f *Form) set(status Status, message string) {
	f.status = status
	f.message = message
	f.seq++
	st := f.snapshot()
	listeners := append([]func(State){}, f.listeners...)
	f.mu.Unlock()

	f.notify(st, listeners)
}

// notify delivers st unless a newer state has already been delivered.
func (f *Form) notify(st State, listeners []func(State)) {
	f.notifyMu.Lock()
	defer f.notifyMu.Unlock()
	if st.seq <= f.notified {
		return
	}
	f.notified = st.seq
	for _, fn := range listeners {
		fn(st)
	}
}

func (f *Form) snapshot() State {
	st := State{
		Status:    f.status,
		Message:   f.message,
		CanSubmit: f.file != nil,
		seq:       f.seq,
	}
	if f.file != nil {
		st.FileName = f.file.Name
	}
	return st
}
