package corrdist

import (
	"math"
	"testing"
)

// TestNewQuantizer covers the factory.
func TestNewQuantizer(t *testing.T) {
	tests := []struct {
		name    string
		qType   QuantizerType
		wantErr bool
	}{
		{"full precision", FullPrecision, false},
		{"half precision", HalfPrecision, false},
		{"unsupported", QuantizerType("int4"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := NewQuantizer(tt.qType)
			if tt.wantErr {
				if err == nil {
					t.Errorf("NewQuantizer(%v) succeeded, want error", tt.qType)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewQuantizer(%v) error = %v", tt.qType, err)
			}
			if q.Type() != tt.qType {
				t.Errorf("Type() = %v, want %v", q.Type(), tt.qType)
			}
		})
	}
}

// TestFullPrecisionQuantizerIsolation verifies the full-precision path copies
// rather than aliases.
func TestFullPrecisionQuantizerIsolation(t *testing.T) {
	q := &FullPrecisionQuantizer{}

	original := []float32{1, 2, 3}
	stored, err := q.Quantize(original)
	if err != nil {
		t.Fatalf("Quantize() error = %v", err)
	}

	original[0] = 99
	decoded, err := q.Dequantize(stored)
	if err != nil {
		t.Fatalf("Dequantize() error = %v", err)
	}
	if decoded[0] != 1 {
		t.Errorf("decoded[0] = %v; stored representation aliased the input", decoded[0])
	}
}

// TestHalfPrecisionQuantizerRoundTrip verifies float16 encode/decode accuracy
// across magnitudes.
func TestHalfPrecisionQuantizerRoundTrip(t *testing.T) {
	q := &HalfPrecisionQuantizer{}

	vector := []float32{0, 1, -1, 0.333, 1024, -65504}
	stored, err := q.Quantize(vector)
	if err != nil {
		t.Fatalf("Quantize() error = %v", err)
	}

	bits, ok := stored.([]uint16)
	if !ok {
		t.Fatalf("Quantize() returned %T, want []uint16", stored)
	}
	if len(bits) != len(vector) {
		t.Fatalf("Quantize() returned %d components, want %d", len(bits), len(vector))
	}

	decoded, err := q.Dequantize(stored)
	if err != nil {
		t.Fatalf("Dequantize() error = %v", err)
	}
	for i := range vector {
		rel := math.Abs(float64(decoded[i]-vector[i])) / math.Max(math.Abs(float64(vector[i])), 1)
		if rel > 1e-3 {
			t.Errorf("component %d: %v round-tripped to %v", i, vector[i], decoded[i])
		}
	}
}

// TestQuantizerTypeMismatch verifies each Dequantize rejects the other's
// storage representation.
func TestQuantizerTypeMismatch(t *testing.T) {
	full := &FullPrecisionQuantizer{}
	half := &HalfPrecisionQuantizer{}

	if _, err := full.Dequantize([]uint16{1, 2}); err == nil {
		t.Error("FullPrecisionQuantizer.Dequantize([]uint16) succeeded, want error")
	}
	if _, err := half.Dequantize([]float32{1, 2}); err == nil {
		t.Error("HalfPrecisionQuantizer.Dequantize([]float32) succeeded, want error")
	}
}
