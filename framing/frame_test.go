package framing

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"
)

func TestPaddingLen(t *testing.T) {
	tests := []struct {
		n    int
		want int
	}{
		{0, 0}, {1, 7}, {7, 1}, {8, 0}, {9, 7}, {13, 3}, {16, 0},
	}
	for _, tt := range tests {
		if got := PaddingLen(tt.n); got != tt.want {
			t.Errorf("PaddingLen(%d) = %d, want %d", tt.n, got, tt.want)
		}
	}
}

func TestWriteFrame_RoundTrip(t *testing.T) {
	frames := []Frame{
		{Kind: KindHeader, Payload: []byte("hdr")},
		{Kind: KindCheckpoint, Payload: []byte("12345678")},
		{Kind: KindRegular, Payload: bytes.Repeat([]byte{0xAB}, 13)},
		{Kind: KindEndOfFile, Payload: []byte{}},
	}

	var buf bytes.Buffer
	for _, f := range frames {
		if err := WriteFrame(&buf, f.Kind, f.Payload); err != nil {
			t.Fatalf("WriteFrame failed: %v", err)
		}
		if buf.Len()%Alignment != 0 {
			t.Fatalf("stream length %d not %d-aligned after %s", buf.Len(), Alignment, f.Kind)
		}
	}

	dec := NewDecoder(&buf, 0)
	for i, want := range frames {
		got, err := dec.ReadFrame()
		if err != nil {
			t.Fatalf("ReadFrame[%d] failed: %v", i, err)
		}
		if got.Kind != want.Kind {
			t.Errorf("frame[%d].Kind = %s, want %s", i, got.Kind, want.Kind)
		}
		if !bytes.Equal(got.Payload, want.Payload) {
			t.Errorf("frame[%d].Payload = %x, want %x", i, got.Payload, want.Payload)
		}
	}

	if _, err := dec.ReadFrame(); err != io.EOF {
		t.Errorf("expected io.EOF after last frame, got %v", err)
	}
}

func TestEncodeFrame_Layout(t *testing.T) {
	buf := EncodeFrame(KindRegular, []byte{1, 2, 3})
	if len(buf) != 16 {
		t.Fatalf("len = %d, want 16", len(buf))
	}
	if got := binary.BigEndian.Uint32(buf[0:4]); got != 0xFFFFFFFF {
		t.Errorf("kind = 0x%08X, want 0xFFFFFFFF", got)
	}
	if got := binary.BigEndian.Uint32(buf[4:8]); got != 3 {
		t.Errorf("length = %d, want 3", got)
	}
	if !bytes.Equal(buf[11:], make([]byte, 5)) {
		t.Errorf("padding = %x, want zeros", buf[11:])
	}
}

func TestDecoder_EmptyStream(t *testing.T) {
	dec := NewDecoder(bytes.NewReader(nil), 0)
	if _, err := dec.ReadFrame(); err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestDecoder_Errors(t *testing.T) {
	valid := EncodeFrame(KindRegular, []byte("hello"))

	oversized := make([]byte, HeaderSize)
	binary.BigEndian.PutUint32(oversized[0:4], uint32(KindRegular))
	binary.BigEndian.PutUint32(oversized[4:8], MaxPayloadSize+1)

	dirtyPad := append([]byte(nil), valid...)
	dirtyPad[len(dirtyPad)-1] = 0x01

	tests := []struct {
		name     string
		input    []byte
		wantKind FrameErrorKind
	}{
		{"short header", valid[:5], FrameErrorPartial},
		{"length past input", valid[:10], FrameErrorPartial},
		{"missing padding", valid[:HeaderSize+5], FrameErrorPartial},
		{"oversized", oversized, FrameErrorTooLarge},
		{"dirty padding", dirtyPad, FrameErrorPadding},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dec := NewDecoder(bytes.NewReader(tt.input), 0)
			_, err := dec.ReadFrame()
			var frameErr *FrameError
			if !errors.As(err, &frameErr) {
				t.Fatalf("expected *FrameError, got %T: %v", err, err)
			}
			if frameErr.Kind != tt.wantKind {
				t.Errorf("Kind = %d, want %d", frameErr.Kind, tt.wantKind)
			}
			if !IsFrameError(err) {
				t.Error("IsFrameError = false, want true")
			}
		})
	}
}

func TestDecoder_OffsetInError(t *testing.T) {
	var buf bytes.Buffer
	_ = WriteFrame(&buf, KindHeader, []byte("abc"))
	buf.Write([]byte{0xFF, 0xFF})

	dec := NewDecoder(&buf, 8)
	if _, err := dec.ReadFrame(); err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}
	if dec.Offset() != 24 {
		t.Errorf("Offset = %d, want 24", dec.Offset())
	}
	_, err := dec.ReadFrame()
	var frameErr *FrameError
	if !errors.As(err, &frameErr) {
		t.Fatalf("expected *FrameError, got %v", err)
	}
	if frameErr.Offset != 24 {
		t.Errorf("error Offset = %d, want 24", frameErr.Offset)
	}
}

func TestKind_String(t *testing.T) {
	if KindEndOfFile.String() != "eof" {
		t.Errorf("String() = %q, want %q", KindEndOfFile.String(), "eof")
	}
	if Kind(0x1AAAAAAA).Known() {
		t.Error("0x1AAAAAAA should not be a known kind")
	}
	if got := Kind(0x1AAAAAAA).String(); got != "kind(0x1AAAAAAA)" {
		t.Errorf("String() = %q", got)
	}
}
