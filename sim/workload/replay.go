package workload

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/inference-sim/cachesim/sim"
)

// MalformedTraceLineError reports a trace line that cannot be parsed.
// Ingestion stops at the first one, since skipping lines would shift every
// later sequence number.
type MalformedTraceLineError struct {
	Line   int    // 1-based line number
	Text   string // the offending line
	Reason string
	Err    error // underlying parse error, if any
}

func (e *MalformedTraceLineError) Error() string {
	return fmt.Sprintf("malformed trace line %d %q: %s", e.Line, e.Text, e.Reason)
}

func (e *MalformedTraceLineError) Unwrap() error { return e.Err }

// TraceLine is one access as written in a trace file: `<mode> <address> <arrival>`.
type TraceLine struct {
	Mode    sim.AccessMode
	Address uint32
	Arrival int64
}

func validBase(base int) error {
	if base < 2 || base > 36 {
		return fmt.Errorf("address base %d out of range [2, 36]", base)
	}
	return nil
}

// parseAddress reads an address token in base. Hex and binary tokens may
// carry their usual 0x / 0b prefix.
func parseAddress(tok string, base int) (uint32, error) {
	lower := strings.ToLower(tok)
	switch {
	case base == 16 && strings.HasPrefix(lower, "0x"):
		tok = tok[2:]
	case base == 2 && strings.HasPrefix(lower, "0b"):
		tok = tok[2:]
	}
	v, err := strconv.ParseUint(tok, base, sim.AddressBits)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}

// ParseTraceLine parses a single trace line. lineNum is only used for error
// reporting. Tokens after the third are ignored.
func ParseTraceLine(text string, lineNum int, base int) (TraceLine, error) {
	malformed := func(reason string, err error) (TraceLine, error) {
		return TraceLine{}, &MalformedTraceLineError{Line: lineNum, Text: text, Reason: reason, Err: err}
	}

	tokens := strings.Fields(text)
	if len(tokens) < 3 {
		return malformed(fmt.Sprintf("expected 3 tokens <mode> <address> <arrival>, got %d", len(tokens)), nil)
	}
	mode, err := sim.ParseAccessMode(tokens[0])
	if err != nil {
		return malformed("unknown mode", err)
	}
	addr, err := parseAddress(tokens[1], base)
	if err != nil {
		return malformed(fmt.Sprintf("unparsable base-%d address", base), err)
	}
	arrival, err := strconv.ParseInt(tokens[2], 10, 64)
	if err != nil {
		return malformed("unparsable arrival time", err)
	}
	if arrival < 0 {
		return malformed("arrival time must be non-negative", nil)
	}
	return TraceLine{Mode: mode, Address: addr, Arrival: arrival}, nil
}

// ReadTrace parses a whole trace into access records numbered from 0 in file
// order. Addresses are read in base.
func ReadTrace(r io.Reader, base int) ([]*sim.AccessRecord, error) {
	if err := validBase(base); err != nil {
		return nil, err
	}
	var records []*sim.AccessRecord
	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line, err := ParseTraceLine(scanner.Text(), lineNum, base)
		if err != nil {
			return nil, err
		}
		records = append(records, sim.NewAccessRecord(len(records), line.Mode, line.Address, line.Arrival))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading trace: %w", err)
	}
	return records, nil
}

// LoadTrace reads the trace file at path.
func LoadTrace(path string, base int) ([]*sim.AccessRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening trace %s: %w", path, err)
	}
	defer file.Close() //nolint:errcheck // read-only file

	records, err := ReadTrace(file, base)
	if err != nil {
		return nil, fmt.Errorf("loading trace %s: %w", path, err)
	}
	return records, nil
}

// FormatAddress renders addr in base. Binary addresses are zero-padded to
// width bits.
func FormatAddress(addr uint32, base int, width int) string {
	s := strconv.FormatUint(uint64(addr), base)
	if base == 2 && len(s) < width {
		s = strings.Repeat("0", width-len(s)) + s
	}
	return s
}

// WriteTrace writes lines in trace format with addresses in base.
func WriteTrace(w io.Writer, lines []TraceLine, base int, width int) error {
	if err := validBase(base); err != nil {
		return err
	}
	bw := bufio.NewWriter(w)
	for _, l := range lines {
		if _, err := fmt.Fprintf(bw, "%s %s %d\n", l.Mode, FormatAddress(l.Address, base, width), l.Arrival); err != nil {
			return fmt.Errorf("writing trace: %w", err)
		}
	}
	return bw.Flush()
}

// ToAccessRecords turns lines into access records numbered from 0 in order.
func ToAccessRecords(lines []TraceLine) []*sim.AccessRecord {
	records := make([]*sim.AccessRecord, len(lines))
	for i, l := range lines {
		records[i] = sim.NewAccessRecord(i, l.Mode, l.Address, l.Arrival)
	}
	return records
}
