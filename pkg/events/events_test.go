package events

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestWriterEmitFraming(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.Emit(KindProgress, Progress{BytesReceived: 10, TotalBytes: 100, Percent: 10, DisplayName: "m"}); err != nil {
		t.Fatalf("Emit() error = %v", err)
	}

	out := buf.String()
	if !strings.HasPrefix(out, "event:progress\ndata:") {
		t.Fatalf("unexpected frame: %q", out)
	}
	if !strings.HasSuffix(out, "\n\n") {
		t.Fatalf("frame not terminated by blank line: %q", out)
	}
}

func TestParseErrorFrameRaises(t *testing.T) {
	stream := "event:progress\ndata:{\"bytes_received\":1}\n\nevent:error\ndata:{\"error\":\"boom\"}\n\n"

	var sawProgress bool
	err := Parse(strings.NewReader(stream), nil, func(f Frame) error {
		switch f.Kind {
		case KindProgress:
			sawProgress = true
			return nil
		case KindError:
			var p ErrorPayload
			if err := json.Unmarshal(f.Data, &p); err != nil {
				return err
			}
			return errors.New(p.Error)
		}
		return nil
	})

	if !sawProgress {
		t.Error("expected to observe the progress frame")
	}
	if err == nil || err.Error() != "boom" {
		t.Fatalf("expected error frame to raise \"boom\", got %v", err)
	}
}

func TestParseMalformedNonErrorFrameWarnsAndContinues(t *testing.T) {
	stream := "event:progress\ndata:not-json\n\nevent:complete\ndata:{}\n\n"

	var warnings []string
	var sawComplete bool
	err := Parse(strings.NewReader(stream), func(msg string) { warnings = append(warnings, msg) }, func(f Frame) error {
		if f.Kind == KindComplete {
			sawComplete = true
			return nil
		}
		var p Progress
		return json.Unmarshal(f.Data, &p)
	})

	if err != nil {
		t.Fatalf("Parse() error = %v, want nil (malformed non-error frame must not raise)", err)
	}
	if len(warnings) != 1 {
		t.Fatalf("expected exactly one warning, got %v", warnings)
	}
	if !sawComplete {
		t.Error("expected stream to continue to the complete frame")
	}
}

func TestParseBlankLineResetsToProgress(t *testing.T) {
	stream := "event:error\ndata:{}\n\ndata:{\"bytes_received\":5}\n\n"

	var kinds []Kind
	_ = Parse(strings.NewReader(stream), nil, func(f Frame) error {
		kinds = append(kinds, f.Kind)
		return nil
	})

	if len(kinds) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(kinds))
	}
	if kinds[1] != KindProgress {
		t.Errorf("second frame kind = %q, want progress (reset after blank line)", kinds[1])
	}
}

func TestControlChannelSendToWatcher(t *testing.T) {
	cc := NewControlChannel()
	ch, cancel := cc.Watch("model-a")
	defer cancel()

	cc.Send("model-a", SignalCancel)
	cc.Send("model-b", SignalPause) // different name, must not be observed

	select {
	case sig := <-ch:
		if sig != SignalCancel {
			t.Errorf("got signal %q, want cancel", sig)
		}
	default:
		t.Fatal("expected a buffered signal for model-a")
	}
}
