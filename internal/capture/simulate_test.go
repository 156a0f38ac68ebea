package capture

import (
	"context"
	"testing"

	"github.com/edelmann/spidmx-monitor/internal/dmxframe"
	"github.com/edelmann/spidmx-monitor/internal/spidmx"
)

func TestSimulator_RoundTripsThroughParser(t *testing.T) {
	var want [512]byte
	for i := range want {
		want[i] = byte((i*7 + 3) % 256)
	}

	// Parse starts over at every chunk, so the chunk must hold a whole
	// encoded frame for all 512 channels to come back.
	sim := NewSimulator(want, DefaultEncodeOptions(), 1<<16)
	frame := dmxframe.New()
	completions := 0
	parser := spidmx.NewParser(frame, func() { completions++ })

	ctx := context.Background()
	for i := 0; i < 200; i++ {
		chunk, err := sim.Next(ctx)
		if err != nil {
			t.Fatalf("Next() returned error: %v", err)
		}
		if len(chunk.Data) == 0 {
			t.Fatalf("Next() returned empty chunk at iteration %d", i)
		}
		parser.Parse(chunk.Data)
		if completions >= 1 {
			break
		}
	}

	if completions < 1 {
		t.Fatal("decoder never completed a frame from simulated capture")
	}

	got := frame.RawChannels()
	if got != want {
		t.Fatalf("decoded channels mismatch")
	}
}

func TestSimulator_SetFrameAffectsNextCycle(t *testing.T) {
	var frameA, frameB [512]byte
	frameB[0] = 0xAA

	sim := NewSimulator(frameA, DefaultEncodeOptions(), 1<<20)
	ctx := context.Background()

	first, err := sim.Next(ctx)
	if err != nil {
		t.Fatalf("Next() returned error: %v", err)
	}
	if len(first.Data) == 0 {
		t.Fatal("Next() returned empty chunk")
	}

	// The huge chunk size means one Next() call exhausts the whole
	// encoded cycle, so the very next call starts a fresh one and picks
	// up the new frame immediately.
	sim.SetFrame(frameB)
	second, err := sim.Next(ctx)
	if err != nil {
		t.Fatalf("Next() returned error: %v", err)
	}

	frame := dmxframe.New()
	parser := spidmx.NewParser(frame, nil)
	parser.Parse(second.Data)

	if got := frame.GetChannel(0).Value; got != 0xAA {
		t.Errorf("channel 0 = %d, want 0xAA after SetFrame", got)
	}
}

func TestSimulator_ContextCancellation(t *testing.T) {
	sim := NewSimulator([512]byte{}, DefaultEncodeOptions(), 64)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := sim.Next(ctx)
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
}

func TestBitWidths_SumsToRoundedTotal(t *testing.T) {
	for _, w := range []float64{7.5, 8, 8.5} {
		widths := bitWidths(11, w)
		sum := 0
		for _, x := range widths {
			sum += x
			if x < 1 {
				t.Fatalf("bit width %d at ratio %v is non-positive", x, w)
			}
		}
		want := int(w * 11)
		if diff := sum - want; diff < -1 || diff > 1 {
			t.Errorf("bitWidths(11, %v) sum = %d, want within 1 of %d", w, sum, want)
		}
	}
}
