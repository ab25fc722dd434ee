package tle

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/liamnightingale/OrbitSim/internal/constants"
	"github.com/liamnightingale/OrbitSim/internal/metrics"
	"github.com/liamnightingale/OrbitSim/internal/orbit"
)

const (
	lineLength     = 69
	lineBufferSize = 4096
)

var (
	// ErrMalformedRecord marks a record group whose layout or checksum is wrong.
	ErrMalformedRecord = errors.New("malformed TLE record")
	// ErrEmptyInput is returned when no record group in the input could be used.
	ErrEmptyInput = errors.New("no valid TLE records")
)

// RecordFailure describes one record group that was skipped.
type RecordFailure struct {
	Line int    // 1-based input line where the group starts
	Name string // name line or catalog field, if known
	Err  error
}

// LoadResult holds the element sets parsed from one input, in input order,
// along with every group that was rejected.
type LoadResult struct {
	Elements []orbit.Elements
	Failures []RecordFailure
}

// Load reads and parses the TLE file at path.
func Load(path string, logger *slog.Logger) (LoadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return LoadResult{}, fmt.Errorf("opening TLE file: %w", err)
	}
	defer f.Close()
	return Parse(f, logger)
}

// ParseString parses TLE text held in memory.
func ParseString(s string, logger *slog.Logger) (LoadResult, error) {
	return Parse(strings.NewReader(s), logger)
}

type numberedLine struct {
	n    int
	text string
}

// Parse reads two-line or three-line TLE groups from r.
//
// A group is an optional name line followed by line 1 and line 2. Groups
// with a bad layout or checksum fail with ErrMalformedRecord and groups
// whose elements are not a bound Earth orbit fail with
// orbit.ErrInvalidElements; both are logged, recorded in
// LoadResult.Failures and skipped. ErrEmptyInput is returned only when
// nothing usable was found.
func Parse(r io.Reader, logger *slog.Logger) (LoadResult, error) {
	if logger == nil {
		logger = slog.Default()
	}

	lines, err := readLines(r)
	if err != nil {
		return LoadResult{}, fmt.Errorf("reading TLE data: %w", err)
	}

	var res LoadResult
	skip := func(line int, name string, err error) {
		logger.Warn("skipping TLE record", "line", line, "name", name, "error", err)
		res.Failures = append(res.Failures, RecordFailure{Line: line, Name: name, Err: err})
	}

	var name string
	nameLine := 0
	for i := 0; i < len(lines); {
		cur := lines[i]

		switch {
		case isLine(cur.text, '1'):
			start := cur.n
			if nameLine > 0 {
				start = nameLine
			}
			if i+1 >= len(lines) || !isLine(lines[i+1].text, '2') {
				skip(start, name, fmt.Errorf("%w: line 1 at input line %d has no line 2", ErrMalformedRecord, cur.n))
				name, nameLine = "", 0
				i++
				continue
			}

			el, err := ParseRecord(name, cur.text, lines[i+1].text)
			if err != nil {
				label := name
				if label == "" {
					label = catalogField(cur.text)
				}
				skip(start, label, err)
			} else {
				res.Elements = append(res.Elements, el)
			}
			name, nameLine = "", 0
			i += 2

		case isLine(cur.text, '2'):
			skip(cur.n, name, fmt.Errorf("%w: line 2 at input line %d has no line 1", ErrMalformedRecord, cur.n))
			name, nameLine = "", 0
			i++

		case len(cur.text) > lineLength:
			skip(cur.n, "", fmt.Errorf("%w: input line %d is longer than %d characters", ErrMalformedRecord, cur.n, lineLength))
			name, nameLine = "", 0
			i++

		default:
			name = strings.TrimSpace(strings.TrimPrefix(cur.text, "0 "))
			nameLine = cur.n
			i++
		}
	}

	metrics.RecordTLEParse(len(res.Elements), len(res.Failures))

	if len(res.Elements) == 0 {
		return res, ErrEmptyInput
	}

	logger.Debug("parsed TLE data", "records", len(res.Elements), "skipped", len(res.Failures))
	return res, nil
}

// readLines returns the non-blank lines of r with trailing whitespace
// removed. Lines of any length are accepted; only the first
// lineBufferSize bytes of an oversized line are kept, which is enough for
// the length checks downstream to reject it.
func readLines(r io.Reader) ([]numberedLine, error) {
	br := bufio.NewReaderSize(r, lineBufferSize)
	var lines []numberedLine
	for n := 1; ; n++ {
		chunk, more, err := br.ReadLine()
		if errors.Is(err, io.EOF) {
			return lines, nil
		}
		if err != nil {
			return nil, err
		}
		text := string(chunk)
		for more {
			if _, more, err = br.ReadLine(); err != nil {
				if errors.Is(err, io.EOF) {
					break
				}
				return nil, err
			}
		}
		if text = strings.TrimRight(text, "\r\n\t "); text != "" {
			lines = append(lines, numberedLine{n: n, text: text})
		}
	}
}

func isLine(s string, num byte) bool {
	return len(s) >= 2 && s[0] == num && s[1] == ' '
}

func catalogField(line string) string {
	if len(line) < 7 {
		return ""
	}
	return strings.TrimSpace(line[2:7])
}

// ParseRecord decodes one TLE group. If name is empty the catalog number is
// used instead.
func ParseRecord(name, line1, line2 string) (orbit.Elements, error) {
	line1 = strings.TrimRight(line1, "\r\n\t ")
	line2 = strings.TrimRight(line2, "\r\n\t ")

	if err := validateLine(line1, '1', line1Separators); err != nil {
		return orbit.Elements{}, fmt.Errorf("%w: line 1: %v", ErrMalformedRecord, err)
	}
	if err := validateLine(line2, '2', line2Separators); err != nil {
		return orbit.Elements{}, fmt.Errorf("%w: line 2: %v", ErrMalformedRecord, err)
	}

	cat1 := strings.TrimSpace(line1[2:7])
	cat2 := strings.TrimSpace(line2[2:7])
	if cat1 != cat2 {
		return orbit.Elements{}, fmt.Errorf("%w: catalog number mismatch %q vs %q", ErrMalformedRecord, cat1, cat2)
	}
	catalog, err := strconv.Atoi(cat1)
	if err != nil {
		return orbit.Elements{}, fmt.Errorf("%w: catalog number %q: %v", ErrMalformedRecord, cat1, err)
	}
	if name == "" {
		name = cat1
	}

	p := orbit.Params{Name: name, CatalogNumber: catalog}
	f := fieldParser{}

	p.Epoch = f.epoch(line1[18:32])
	p.MeanMotionDot = f.decimal("mean motion derivative", line1[33:43])
	p.BStar = f.implied("bstar", line1[53:61])
	f.implied("mean motion second derivative", line1[44:52])

	p.Inclination = f.decimal("inclination", line2[8:16]) * constants.DegreesToRadians
	p.RAAN = f.decimal("raan", line2[17:25]) * constants.DegreesToRadians
	p.Eccentricity = f.eccentricity(line2[26:33])
	p.ArgPerigee = f.decimal("argument of perigee", line2[34:42]) * constants.DegreesToRadians
	p.MeanAnomaly = f.decimal("mean anomaly", line2[43:51]) * constants.DegreesToRadians
	p.MeanMotionRevsPerDay = f.decimal("mean motion", line2[52:63])
	p.RevNumber = f.integer("revolution number", line2[63:68])

	if f.err != nil {
		return orbit.Elements{}, fmt.Errorf("%w: catalog %d: %v", ErrMalformedRecord, catalog, f.err)
	}

	return orbit.New(p)
}

// Column indexes (0-based) that must hold a blank in each line.
var (
	line1Separators = []int{1, 8, 17, 32, 43, 52, 61, 63}
	line2Separators = []int{1, 7, 16, 25, 33, 42, 51}
)

func validateLine(line string, num byte, separators []int) error {
	if len(line) != lineLength {
		return fmt.Errorf("length %d, expected %d", len(line), lineLength)
	}
	if line[0] != num {
		return fmt.Errorf("must start with '%c', got '%c'", num, line[0])
	}
	for _, col := range separators {
		if line[col] != ' ' {
			return fmt.Errorf("column %d must be blank, got '%c'", col+1, line[col])
		}
	}
	want, ok := Checksum(line)
	if !ok {
		return fmt.Errorf("checksum column holds '%c', not a digit", line[lineLength-1])
	}
	if got := int(line[lineLength-1] - '0'); got != want {
		return fmt.Errorf("checksum %d, computed %d", got, want)
	}
	return nil
}

// Checksum returns the modulo-10 sum of the digits in the first 68 columns
// of line, with '-' counted as 1. ok is false if the line is too short or
// its last column is not a digit.
func Checksum(line string) (sum int, ok bool) {
	if len(line) < lineLength {
		return 0, false
	}
	for i := 0; i < lineLength-1; i++ {
		switch c := line[i]; {
		case c >= '0' && c <= '9':
			sum += int(c - '0')
		case c == '-':
			sum++
		}
	}
	last := line[lineLength-1]
	return sum % 10, last >= '0' && last <= '9'
}

// fieldParser accumulates the first field error so ParseRecord can decode
// every column before checking.
type fieldParser struct {
	err error
}

func (f *fieldParser) fail(field, raw string, err error) {
	if f.err == nil {
		f.err = fmt.Errorf("field %s %q: %v", field, raw, err)
	}
}

func (f *fieldParser) decimal(field, raw string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		f.fail(field, raw, err)
	}
	return v
}

func (f *fieldParser) integer(field, raw string) int {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		f.fail(field, raw, err)
	}
	return v
}

// eccentricity decodes the seven-digit field with its implied leading "0.".
func (f *fieldParser) eccentricity(raw string) float64 {
	s := strings.TrimSpace(raw)
	if s == "" || strings.Trim(s, "0123456789") != "" {
		f.fail("eccentricity", raw, errors.New("expected digits only"))
		return 0
	}
	v, err := strconv.ParseFloat("0."+s, 64)
	if err != nil {
		f.fail("eccentricity", raw, err)
	}
	return v
}

// implied decodes fields such as " 10270-3" meaning 0.10270e-3.
func (f *fieldParser) implied(field, raw string) float64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0
	}

	sign := ""
	if s[0] == '-' || s[0] == '+' {
		if s[0] == '-' {
			sign = "-"
		}
		s = s[1:]
	}
	if len(s) < 3 {
		f.fail(field, raw, errors.New("too short"))
		return 0
	}

	mantissa, exp := s[:len(s)-2], s[len(s)-2:]
	if exp[0] != '-' && exp[0] != '+' {
		f.fail(field, raw, errors.New("missing exponent sign"))
		return 0
	}
	v, err := strconv.ParseFloat(sign+"0."+mantissa+"e"+exp, 64)
	if err != nil {
		f.fail(field, raw, err)
	}
	return v
}

// epoch converts a YYDDD.DDDDDDDD epoch to UTC.
// Year 57-99 maps to 19xx, 00-56 to 20xx.
func (f *fieldParser) epoch(raw string) time.Time {
	s := strings.TrimSpace(raw)
	if len(s) < 5 {
		f.fail("epoch", raw, errors.New("too short"))
		return time.Time{}
	}

	year, err := strconv.Atoi(s[:2])
	if err != nil {
		f.fail("epoch year", raw, err)
		return time.Time{}
	}
	if year >= 57 {
		year += 1900
	} else {
		year += 2000
	}

	day, err := strconv.ParseFloat(s[2:], 64)
	if err != nil {
		f.fail("epoch day", raw, err)
		return time.Time{}
	}
	if day < 1 || day >= 367 {
		f.fail("epoch day", raw, errors.New("out of range"))
		return time.Time{}
	}

	// Day 1.0 is midnight on January 1.
	start := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	return start.Add(time.Duration((day - 1) * float64(24*time.Hour)))
}
