package protocol

import (
	"bytes"
	"testing"
)

func TestAppendDataFrame_RoundTrip(t *testing.T) {
	payload := []byte{10, 20, 30}
	frame := AppendDataFrame(nil, RspData, 7, 300, payload)

	if len(frame) != DataHeaderLen+len(payload) {
		t.Fatalf("frame length = %d, want %d", len(frame), DataHeaderLen+len(payload))
	}

	got, err := ParseDataFrame(frame)
	if err != nil {
		t.Fatalf("ParseDataFrame: %v", err)
	}
	if got.Type != RspData {
		t.Errorf("Type = %d, want %d", got.Type, RspData)
	}
	if got.Reference != 7 {
		t.Errorf("Reference = %d, want 7", got.Reference)
	}
	if got.Offset != 300 {
		t.Errorf("Offset = %d, want 300", got.Offset)
	}
	if !got.HasOffset {
		t.Error("HasOffset = false, want true")
	}
	if !bytes.Equal(got.Payload, payload) {
		t.Errorf("Payload = %v, want %v", got.Payload, payload)
	}
}

func TestAppendDataFrame_EndMarker(t *testing.T) {
	frame := AppendDataFrame(nil, RspData, 3, 4096, nil)
	if len(frame) != DataHeaderLen {
		t.Fatalf("end marker length = %d, want %d", len(frame), DataHeaderLen)
	}
	got, err := ParseDataFrame(frame)
	if err != nil {
		t.Fatalf("ParseDataFrame: %v", err)
	}
	if len(got.Payload) != 0 {
		t.Errorf("end marker payload = %d bytes, want 0", len(got.Payload))
	}
}

func TestAppendCommandResult(t *testing.T) {
	frame := AppendCommandResult(nil, 9, InsufficientStorageHi, InsufficientStorageLo)
	want := []byte{RspCommandResult, 9, 0x01, 0xFB}
	if !bytes.Equal(frame, want) {
		t.Errorf("frame = %v, want %v", frame, want)
	}

	got, err := ParseDataFrame(frame)
	if err != nil {
		t.Fatalf("ParseDataFrame: %v", err)
	}
	if got.HasOffset {
		t.Error("HasOffset = true for CommandResult, want false")
	}
}

func TestAppendStreamFrame(t *testing.T) {
	frame := AppendStreamFrame(nil, RspData, 4, []byte{0xAA, 0xBB})
	want := []byte{RspData, 4, 0xAA, 0xBB}
	if !bytes.Equal(frame, want) {
		t.Errorf("frame = %v, want %v", frame, want)
	}
}

func TestParseDataFrame_Invalid(t *testing.T) {
	for _, data := range [][]byte{nil, {RspData}, {RspData, 1, 0, 0}, {99, 1, 2, 3, 4, 5}} {
		if _, err := ParseDataFrame(data); err == nil {
			t.Errorf("ParseDataFrame(%v) succeeded, want error", data)
		}
	}
}
