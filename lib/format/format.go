/*package format handles tracedat's miniature language for picking traces out
of a capture, e.g.:

   Traces = 0..100 - 63

Sequence formats are a generic way to specify non-contiguous sequences of
natural numbers. They consist of a series of n tokens separated by "+" or "-".
Each token can be either a number or two numbers separted by "..". E.g.:

  100
  0..100
  0..10 + 100
  0..100 - 63 - 10..20

These strings build up sequences of numbers by adding/removing individual
numbers and contiguous sequences. For example, 0 through 10 would be 0..10,
1, 2, 3, 15, 16, 17 could be written as  1..17 - 4..13. This is useful for
skipping corrupted traces or plotting a handful of traces from a large
capture. Ranges are inclusive and traces are numbered from 0.

All spaces around "-", "+", and "," symbols are ignored.
*/
package format

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/phil-mansfield/tracedat/lib/trsfile"
)

const (
	// Any expanded formats which would have more than BigNumber elements are
	// assumed to be bugs.
	BigNumber = 1<<20
)

// ExpandSequenceFormat expands a sequence format string into a sorted sequence
// of integers.
func ExpandSequenceFormat(format string) ([]int, error) {
	// Parse and error-check the format string.
	tok, err := tokeniseSequenceFormat(format)
	if err != nil { return nil, err }
	adds, subs, err := addsSubsSequenceFormat(tok)
	if err != nil { return nil, err }

	// Add numbers to the sequence.
	m := map[int]int{ }
	for i := range adds {
		ns := parseSequenceFormatToken(adds[i])
		for _, n := range ns {
			if _, ok := m[n]; ok {
				return nil, fmt.Errorf("The number %d is added more than once.", n)
			}
			m[n] = n
		}
	}

	// Remove numbers from the sequence.
	for i := range subs {
		ns := parseSequenceFormatToken(subs[i])
		for _, n := range ns {
			if _, ok := m[n]; !ok {
				return nil, fmt.Errorf("The number %d is removed more times than it was inserted.", n)
			}
			delete(m, n)
		}
	}
	
	if len(m) > BigNumber {
		return nil, fmt.Errorf("This sequence would have %d elements, which is almost certianly a bug.", len(m))
	}

	// Convert to a sorted array of integers.
	out := []int{ }
	for n := range m { out = append(out, n) }
	sort.Ints(out)
	
	return out, nil
}

// tokeniseSequenceFormat tokenizes a SeqeunceFormat string. This means that
// it separates operators from the numbers they act on.
func tokeniseSequenceFormat(format string) ([]string, error) {
	// Make sure all operators are separated by spaces.
	formatClean := strings.ReplaceAll(format, "+", " + ")
	formatClean = strings.ReplaceAll(formatClean, "-", " - ")

	// Tokenize and remove empty tokens.
	tokRaw := strings.Split(formatClean, " ")
	tok := []string{ }
	for i := range tokRaw {
		tokRaw[i] = strings.Trim(tokRaw[i], " ")
		if len(tokRaw[i]) > 0 {
			tok = append(tok, tokRaw[i])
		}
	}
	
	if len(tok) == 0 {
		return nil, fmt.Errorf("The format string is empty.")
	}
	return tok, nil
}

func addsSubsSequenceFormat(tok []string) (adds, subs []string, err error) {
	if len(tok) == 0 {
		return nil, nil, fmt.Errorf("Format string is empty")
	}

	
	// Handle the case where the starting "+" is dropped.
	adds, subs = []string{}, []string{}
	var start int
	if tok[0] == "+" || tok[0] == "-" {
		start = 0
	} else {
		if err := isSequenceFormatToken(tok[0]); err != nil {
			return nil, nil, fmt.Errorf(
				"Element number %d, '%s', cannot be parsed because %s",
				1, tok[0], err.Error(),
			)
		}
		
		adds = append(adds, tok[0])
		start = 1
	}

	for i := start; i < len(tok); i += 2 {
		if tok[i] != "-" && tok[i] != "+" {
			return nil, nil, fmt.Errorf(
				"Element number %d, '%s', should be a '-' or '+', but isn't.",
				i+1, tok[i])
		}

		if i + 1 >= len(tok) {
			return nil, nil, fmt.Errorf(
				"The format string ends in a trailing '%s'", tok[i],
			)
		}

		if err := isSequenceFormatToken(tok[i+1]); err != nil {
			return nil, nil, fmt.Errorf(
				"Element number %d, '%s', cannot be parsed because %s",
				i+2, tok[i+1], err.Error(),
			)
		}
		
		if tok[i] == "+" {
			adds = append(adds, tok[i+1])
		} else {
			subs = append(subs, tok[i+1])
		}
	}

	return adds, subs, nil
}

// isSequenceFormatToken returns a nil error is tok is a valid token for
// a sequence format and an error describing the problem otherwise. The error
// message assumes it is printed after a trailing "beacause"
func isSequenceFormatToken(tok string) error {
	if len(tok) == 0 {
		return fmt.Errorf("the format string is empty.")
	}
	
	bounds := strings.Split(tok, "..")

	switch len(bounds) {
	case 1:
		_, err := strconv.Atoi(bounds[0])
		if err != nil {
			return fmt.Errorf("'%s' is not an integer.", bounds[0])
		}
		return nil
	case 2:
		start, err1 := strconv.Atoi(bounds[0])
		if err1 != nil {
			return fmt.Errorf("'%s' is not an integer.", bounds[0])
		}
		end, err2 := strconv.Atoi(bounds[1])
		if err2 != nil {
			return fmt.Errorf("'%s' is not an integer.", bounds[1])
		}
		if end < start {
			return fmt.Errorf("lower bound %d is larger than upper bound %d.",
				start, end)
		}
		
		return nil
	}
	return fmt.Errorf("it has more than one '..'.")
}

// parseSeqeunceFormatToken parses a single token in a seqeunce format stirng
// and returns the corresponding array of numbers. This function assumes that
// the tests in isSequenceFormatToken have already been run and thus does no
// error checking. This makes sense to do because the calling funciton has
// already removed location information from these tokens, so the error
// message would be less informative.
func parseSequenceFormatToken(tok string) []int {
	bounds := strings.Split(tok, "..")

	switch len(bounds) {
	case 1:
		n, _ := strconv.Atoi(tok)
		return []int{ n }
	case 2:
		start, _ := strconv.Atoi(bounds[0])
		end, _ := strconv.Atoi(bounds[1])
		out := []int{ }
		for n := start; n <= end; n++ {
			out = append(out, n)
		}

		return out
	}

	panic(fmt.Sprintf("Internal error: invalid sequence format token, "+
		"'%s', passed isSeqeunceFormatToken()", tok))
}

// ExpandTraceFormat expands the format string specifying which traces
// tracedat will extract and checks the result against the number of traces
// in the capture.
func ExpandTraceFormat(format string, traceCount int) ([]int, error) {
	traces, err := ExpandSequenceFormat(format)
	if err != nil {
		return nil, &trsfile.ConfigError{
			Param: "Traces",
			Msg: fmt.Sprintf("the format string '%s' is not valid. %s",
				format, err.Error()),
		}
	}

	for _, t := range traces {
		if t < 0 || t >= traceCount {
			return nil, &trsfile.ConfigError{
				Param: "Traces",
				Msg: fmt.Sprintf("the format string '%s' includes trace %d, "+
					"but the capture only has %d traces.", format, t,
					traceCount),
			}
		}
	}
	return traces, nil
}
