package workload

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ConvertTrace rewrites an external trace into the simulator's format:
// addresses in base become decimal, modes are lower-cased, and a missing
// arrival time is filled with the 1-based line number.
func ConvertTrace(r io.Reader, w io.Writer, base int) error {
	if err := validBase(base); err != nil {
		return err
	}
	scanner := bufio.NewScanner(r)
	bw := bufio.NewWriter(w)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		text := scanner.Text()
		tokens := strings.Fields(text)
		if len(tokens) < 2 {
			return &MalformedTraceLineError{Line: lineNum, Text: text,
				Reason: fmt.Sprintf("expected at least <mode> <address>, got %d tokens", len(tokens))}
		}
		if len(tokens) < 3 {
			tokens = append(tokens, strconv.Itoa(lineNum))
		}
		if base != 10 {
			addr, err := parseAddress(tokens[1], base)
			if err != nil {
				return &MalformedTraceLineError{Line: lineNum, Text: text,
					Reason: fmt.Sprintf("unparsable base-%d address", base), Err: err}
			}
			tokens[1] = strconv.FormatUint(uint64(addr), 10)
		}
		tokens[0] = strings.ToLower(tokens[0])

		if _, err := fmt.Fprintln(bw, strings.Join(tokens, " ")); err != nil {
			return fmt.Errorf("writing converted trace: %w", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading trace to convert: %w", err)
	}
	return bw.Flush()
}
