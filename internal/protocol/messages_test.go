package protocol

import (
	"errors"
	"testing"
)

func TestParseClientMessageHandFrame(t *testing.T) {
	raw := []byte(`{"type":"hand_frame","session_id":"s1","seq":3,"width":640,"height":480,"hands":[{"keypoints":[{"x":10,"y":20}],"handedness":"Left"}],"ts_ms":123}`)
	msg, err := ParseClientMessage(raw)
	if err != nil {
		t.Fatalf("ParseClientMessage() error = %v", err)
	}

	frame, ok := msg.(HandFrame)
	if !ok {
		t.Fatalf("message type = %T, want HandFrame", msg)
	}
	if frame.SessionID != "s1" || frame.Seq != 3 || frame.Width != 640 {
		t.Fatalf("unexpected hand frame: %+v", frame)
	}
	if len(frame.Hands) != 1 || frame.Hands[0].Keypoints[0].Y != 20 {
		t.Fatalf("hands = %+v", frame.Hands)
	}
}

func TestParseClientMessageAcceptsEmptyHands(t *testing.T) {
	msg, err := ParseClientMessage([]byte(`{"type":"hand_frame","session_id":"s1","width":640,"height":480}`))
	if err != nil {
		t.Fatalf("ParseClientMessage() error = %v", err)
	}
	if frame := msg.(HandFrame); len(frame.Hands) != 0 {
		t.Fatalf("hands = %+v, want none", frame.Hands)
	}
}

func TestParseClientMessageRejectsUnknownType(t *testing.T) {
	_, err := ParseClientMessage([]byte(`{"type":"wat"}`))
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("error = %v, want ErrUnsupportedType", err)
	}
}

func TestParseClientMessageControl(t *testing.T) {
	raw := []byte(`{"type":"client_control","session_id":"s1","action":"reset","reason":"camera_restarted"}`)
	msg, err := ParseClientMessage(raw)
	if err != nil {
		t.Fatalf("ParseClientMessage() error = %v", err)
	}

	control, ok := msg.(ClientControl)
	if !ok {
		t.Fatalf("message type = %T, want ClientControl", msg)
	}
	if control.Action != ActionReset || control.Reason != "camera_restarted" {
		t.Fatalf("unexpected client control: %+v", control)
	}
}

func TestParseClientMessageRejectsInvalidFrame(t *testing.T) {
	_, err := ParseClientMessage([]byte(`{"type":"hand_frame","session_id":"","width":0,"height":0}`))
	if err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestParseClientMessageRejectsBadJSON(t *testing.T) {
	if _, err := ParseClientMessage([]byte(`{`)); err == nil {
		t.Fatalf("expected envelope error")
	}
}

func BenchmarkParseClientMessageHandFrame(b *testing.B) {
	raw := []byte(`{"type":"hand_frame","session_id":"s1","seq":7,"width":640,"height":480,"hands":[{"keypoints":[{"x":1,"y":2},{"x":3,"y":4}]}],"ts_ms":123456}`)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		msg, err := ParseClientMessage(raw)
		if err != nil {
			b.Fatalf("ParseClientMessage() error = %v", err)
		}
		if _, ok := msg.(HandFrame); !ok {
			b.Fatalf("message type = %T, want HandFrame", msg)
		}
	}
}
