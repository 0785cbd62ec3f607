package workload

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/inference-sim/cachesim/sim"
)

func TestParseTraceLine_Valid(t *testing.T) {
	tests := []struct {
		name string
		text string
		base int
		want TraceLine
	}{
		{"decimal read", "r 1994 0", 10, TraceLine{Mode: sim.ModeRead, Address: 1994, Arrival: 0}},
		{"upper-case write", "W 16 7", 10, TraceLine{Mode: sim.ModeWrite, Address: 16, Arrival: 7}},
		{"hex with prefix", "r 0xff 3", 16, TraceLine{Mode: sim.ModeRead, Address: 255, Arrival: 3}},
		{"hex without prefix", "w DEADBEEF 9", 16, TraceLine{Mode: sim.ModeWrite, Address: 0xDEADBEEF, Arrival: 9}},
		{"binary", "r 0b1010 1", 2, TraceLine{Mode: sim.ModeRead, Address: 10, Arrival: 1}},
		{"extra whitespace and tokens", "  r\t8   2  trailing", 10, TraceLine{Mode: sim.ModeRead, Address: 8, Arrival: 2}},
		{"max address", "r 4294967295 0", 10, TraceLine{Mode: sim.ModeRead, Address: 0xFFFFFFFF, Arrival: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTraceLine(tt.text, 1, tt.base)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseTraceLine(%q) = %+v, want %+v", tt.text, got, tt.want)
			}
		})
	}
}

func TestParseTraceLine_Malformed(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"blank", ""},
		{"missing arrival", "r 16"},
		{"unknown mode", "x 16 0"},
		{"address not a number", "r zz 0"},
		{"address overflows 32 bits", "r 4294967296 0"},
		{"arrival not a number", "r 16 soon"},
		{"negative arrival", "r 16 -1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTraceLine(tt.text, 42, 10)
			var malformed *MalformedTraceLineError
			if !errors.As(err, &malformed) {
				t.Fatalf("expected *MalformedTraceLineError, got %v", err)
			}
			if malformed.Line != 42 {
				t.Errorf("Line = %d, want 42", malformed.Line)
			}
			if malformed.Text != tt.text {
				t.Errorf("Text = %q, want %q", malformed.Text, tt.text)
			}
		})
	}
}

func TestReadTrace_NumbersAccessesInFileOrder(t *testing.T) {
	records, err := ReadTrace(strings.NewReader("r 0 0\nw 4 1\nr 0 1\n"), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	for i, r := range records {
		if r.Seq != i {
			t.Errorf("record %d: Seq = %d", i, r.Seq)
		}
		if r.ServeTime != r.ArrivalTime {
			t.Errorf("record %d: ServeTime %d != ArrivalTime %d before replay", i, r.ServeTime, r.ArrivalTime)
		}
	}
	if records[1].Mode != sim.ModeWrite || records[1].Address != 4 {
		t.Errorf("record 1 = %v", records[1])
	}
}

func TestReadTrace_StopsAtFirstMalformedLine(t *testing.T) {
	_, err := ReadTrace(strings.NewReader("r 0 0\nr 4 1\nbogus\nr 8 2\n"), 10)
	var malformed *MalformedTraceLineError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected *MalformedTraceLineError, got %v", err)
	}
	if malformed.Line != 3 {
		t.Errorf("Line = %d, want 3", malformed.Line)
	}
}

func TestReadTrace_RejectsBadBase(t *testing.T) {
	if _, err := ReadTrace(strings.NewReader("r 0 0\n"), 1); err == nil {
		t.Fatal("expected error for base 1")
	}
}

func TestLoadTrace_MissingFile(t *testing.T) {
	if _, err := LoadTrace(filepath.Join(t.TempDir(), "nope.trace"), 10); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestWriteTrace_RoundTripsThroughLoad(t *testing.T) {
	// GIVEN generated lines written in binary
	cfg := DefaultGeneratorConfig()
	cfg.AddressBits = 16
	cfg.NumAccesses = 50
	lines, err := GenerateTrace(cfg)
	if err != nil {
		t.Fatalf("GenerateTrace: %v", err)
	}
	path := filepath.Join(t.TempDir(), "gen.trace")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := WriteTrace(f, lines, 2, 16); err != nil {
		t.Fatalf("WriteTrace: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	// WHEN loaded back with the same base
	records, err := LoadTrace(path, 2)
	if err != nil {
		t.Fatalf("LoadTrace: %v", err)
	}

	// THEN every access matches what was generated
	want := ToAccessRecords(lines)
	if len(records) != len(want) {
		t.Fatalf("got %d records, want %d", len(records), len(want))
	}
	for i := range want {
		if records[i].Mode != want[i].Mode || records[i].Address != want[i].Address || records[i].ArrivalTime != want[i].ArrivalTime {
			t.Errorf("record %d = %v, want %v", i, records[i], want[i])
		}
	}
}

func TestFormatAddress(t *testing.T) {
	tests := []struct {
		addr  uint32
		base  int
		width int
		want  string
	}{
		{5, 2, 8, "00000101"},
		{5, 2, 2, "101"},
		{255, 16, 32, "ff"},
		{1994, 10, 32, "1994"},
	}
	for _, tt := range tests {
		if got := FormatAddress(tt.addr, tt.base, tt.width); got != tt.want {
			t.Errorf("FormatAddress(%d, %d, %d) = %q, want %q", tt.addr, tt.base, tt.width, got, tt.want)
		}
	}
}
