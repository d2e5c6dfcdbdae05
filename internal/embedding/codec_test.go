package embedding

import (
	"math"
	"testing"
)

func TestVectorCodecRoundTrip(t *testing.T) {
	vec := []float32{0, 1.5, -2.25, math.Pi, math.MaxFloat32}

	blob := EncodeVector(vec)
	if len(blob) != len(vec)*4 {
		t.Fatalf("blob length = %d, want %d", len(blob), len(vec)*4)
	}

	got, err := DecodeVector(blob)
	if err != nil {
		t.Fatalf("DecodeVector error = %v", err)
	}
	if len(got) != len(vec) {
		t.Fatalf("decoded length = %d, want %d", len(got), len(vec))
	}
	for i := range vec {
		if got[i] != vec[i] {
			t.Errorf("element %d = %v, want %v", i, got[i], vec[i])
		}
	}
}

func TestEncodeVectorIsLittleEndian(t *testing.T) {
	// 1.0 is 0x3f800000; the blob must carry the low byte first so that
	// sqlite-vec and other readers agree on the layout.
	blob := EncodeVector([]float32{1})
	want := []byte{0x00, 0x00, 0x80, 0x3f}
	if len(blob) != 4 {
		t.Fatalf("blob length = %d, want 4", len(blob))
	}
	for i := range want {
		if blob[i] != want[i] {
			t.Errorf("byte %d = %#x, want %#x", i, blob[i], want[i])
		}
	}
}

func TestDecodeVectorRejectsRaggedBlob(t *testing.T) {
	if _, err := DecodeVector(make([]byte, 6)); err == nil {
		t.Fatal("DecodeVector accepted a blob that is not a multiple of 4 bytes")
	}
}

func TestDecodeVectorEmpty(t *testing.T) {
	got, err := DecodeVector(nil)
	if err != nil {
		t.Fatalf("DecodeVector error = %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("decoded length = %d, want 0", len(got))
	}
}
