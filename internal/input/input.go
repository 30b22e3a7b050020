package input

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"strings"

	"golang.org/x/net/idna"
)

// ErrNoDomains is returned when the input holds no usable domain.
var ErrNoDomains = errors.New("no domains in input")

// ReadFile reads domains from the file at path.
func ReadFile(path string) ([]string, error) {
	f, err := os.Open(path) //nolint:gosec // path is given by the user
	if err != nil {
		return nil, fmt.Errorf("failed to open domain list: %w", err)
	}
	defer f.Close()

	domains, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return domains, nil
}

// Read returns the first field of every comma-separated record in r.
//
// Fields are trimmed, converted to their ASCII (punycode) form and lower
// cased. Blank records and lines starting with '#' are skipped. Duplicates
// are dropped, keeping the first occurrence.
func Read(r io.Reader) ([]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	seen := make(map[string]struct{})
	var domains []string
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read domain list: %w", err)
		}
		if len(record) == 0 {
			continue
		}

		domain := Normalize(record[0])
		if domain == "" {
			continue
		}
		if _, ok := seen[domain]; ok {
			continue
		}
		seen[domain] = struct{}{}
		domains = append(domains, domain)
	}

	if len(domains) == 0 {
		return nil, ErrNoDomains
	}
	return domains, nil
}

// Normalize returns the lookup form of a domain name.
// Names that IDNA rejects, such as ones containing an underscore, are kept
// as lower-cased text and left for the probes to fail on.
func Normalize(s string) string {
	s = strings.TrimSuffix(strings.TrimSpace(s), ".")
	if s == "" {
		return ""
	}
	if ascii, err := idna.Lookup.ToASCII(s); err == nil {
		return ascii
	}
	return strings.ToLower(s)
}

// Select returns the domains to scan.
//
// When shuffle is true the list is shuffled with rng first. Then the first
// sample domains are taken; a sample of zero or more than the list length
// selects everything. The input slice is not modified.
func Select(domains []string, sample int, shuffle bool, rng *rand.Rand) []string {
	out := make([]string, len(domains))
	copy(out, domains)

	if shuffle {
		if rng == nil {
			rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())) //nolint:gosec // ordering only
		}
		rng.Shuffle(len(out), func(i, j int) {
			out[i], out[j] = out[j], out[i]
		})
	}

	if sample > 0 && sample < len(out) {
		out = out[:sample]
	}
	return out
}
