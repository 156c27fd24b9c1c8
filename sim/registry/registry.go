// Package registry parses delegated-registry statistics files (the NRO
// extended format published by the regional registries) into the build
// records the simulator consumes.
//
// Format, one allocation per line:
//
//	registry|cc|type|start|value|date|status
//	iana|ZZ|ipv4|0.0.0.0|16777216|19830101|ietf
//	iana|US|ipv4|3.0.0.0|16777216|19880223|assigned
//	iana|ZZ|ipv4|7.0.0.0|16777216|19880223|arin
//	lacnic|MX|ipv4|204.126.140.0|512|19950114|assigned
//
// Malformed or non-IPv4 rows are diagnosed and skipped, never fatal: a
// registry dump with one bad line is still worth simulating.
package registry

import (
	"bufio"
	"fmt"
	"io"
	"math/bits"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/simlir/simlir/sim"
)

// DefaultDate replaces the all-zero date some registries publish for
// holdings whose paperwork predates their records.
const DefaultDate = "19930101"

// Allocation is one parsed data-file row.
type Allocation struct {
	Registry string
	Country  string
	Type     string
	Start    string // dotted-quad base address
	Value    uint64 // address count; possibly a sum of powers of two
	Date     string // YYYYMMDD
	Status   string
}

// Parse reads allocations from r. Comment lines, version/summary lines,
// and non-IPv4 rows are skipped silently; rows that should parse but do
// not are skipped with a warning.
func Parse(r io.Reader) ([]Allocation, error) {
	var allocs []Allocation
	scanner := bufio.NewScanner(r)
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "|")
		if len(fields) < 7 {
			// Version and summary lines have fewer fields.
			continue
		}
		if fields[2] != "ipv4" {
			continue
		}
		value, err := strconv.ParseUint(fields[4], 10, 64)
		if err != nil {
			logrus.Warnf("registry line %d: bad size %q: %v", lineno, fields[4], err)
			continue
		}
		date := fields[5]
		if date == "00000000" {
			date = DefaultDate
		}
		allocs = append(allocs, Allocation{
			Registry: fields[0],
			Country:  fields[1],
			Type:     fields[2],
			Start:    fields[3],
			Value:    value,
			Date:     date,
			Status:   strings.TrimSpace(fields[6]),
		})
	}
	return allocs, scanner.Err()
}

// ParseFile opens and parses one delegated-format file.
func ParseFile(path string) ([]Allocation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	allocs, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	logrus.Infof("parsed %d IPv4 allocations from %s", len(allocs), path)
	return allocs, nil
}

// DecomposeSpan splits an address count into descending powers of two.
// Registry rows sometimes cover sums of powers (36864 = 32768 + 4096), and
// the allocator only deals in power-of-two blocks.
func DecomposeSpan(span uint64) []uint64 {
	var out []uint64
	for span != 0 {
		high := uint64(1) << (bits.Len64(span) - 1)
		out = append(out, high)
		span -= high
	}
	return out
}

// SeriesFrom returns the prefixes covering the spans laid end to end
// starting at base.
func SeriesFrom(base uint64, spans []uint64, width int) ([]sim.Prefix, error) {
	var out []sim.Prefix
	for _, sp := range spans {
		length, ok := sim.LengthForSpan(sp, width)
		if !ok {
			return nil, fmt.Errorf("span %d does not fit a %d-bit space", sp, width)
		}
		out = append(out, sim.Prefix{Base: base, Length: length})
		base += sp
	}
	return out, nil
}

// ParseIPv4 converts a dotted-quad address to its numeric value.
func ParseIPv4(s string) (uint64, error) {
	addr, err := netip.ParseAddr(s)
	if err != nil || !addr.Is4() {
		return 0, fmt.Errorf("not an IPv4 address: %q", s)
	}
	b := addr.As4()
	return uint64(b[0])<<24 | uint64(b[1])<<16 | uint64(b[2])<<8 | uint64(b[3]), nil
}

// DayOffset converts a YYYYMMDD date to whole days since the epoch date.
func DayOffset(date, epoch string) (int64, error) {
	d, err := time.Parse("20060102", date)
	if err != nil {
		return 0, fmt.Errorf("bad date %q: %w", date, err)
	}
	e, err := time.Parse("20060102", epoch)
	if err != nil {
		return 0, fmt.Errorf("bad epoch %q: %w", epoch, err)
	}
	return int64(d.Sub(e).Hours() / 24), nil
}
