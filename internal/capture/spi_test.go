package capture

import (
	"context"
	"errors"
	"testing"
)

type fakeHandle struct {
	payload []byte
	lastLen int
	err     error
	closed  bool
}

func (f *fakeHandle) Xfer(ctx context.Context, length int) ([]byte, error) {
	f.lastLen = length
	if f.err != nil {
		return nil, f.err
	}
	return f.payload, nil
}

func (f *fakeHandle) Close() error {
	f.closed = true
	return nil
}

func TestPoller_NextReturnsHandleData(t *testing.T) {
	handle := &fakeHandle{payload: []byte{0xFF, 0xFF, 0x00, 0x00}}
	poller := NewPoller(handle, 4)

	chunk, err := poller.Next(context.Background())
	if err != nil {
		t.Fatalf("Next() returned error: %v", err)
	}
	if handle.lastLen != 4 {
		t.Errorf("Xfer length = %d, want 4", handle.lastLen)
	}
	if string(chunk.Data) != string(handle.payload) {
		t.Errorf("chunk.Data = %v, want %v", chunk.Data, handle.payload)
	}
	if chunk.CapturedAt.IsZero() {
		t.Error("chunk.CapturedAt is zero")
	}
}

func TestPoller_NextPropagatesHandleError(t *testing.T) {
	wantErr := errors.New("bus busy")
	handle := &fakeHandle{err: wantErr}
	poller := NewPoller(handle, 4)

	_, err := poller.Next(context.Background())
	if err == nil {
		t.Fatal("expected error from Next()")
	}
	if !errors.Is(err, wantErr) {
		t.Errorf("error = %v, want wrapping %v", err, wantErr)
	}
}
