package input

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/jmylchreest/bubbleshell/internal/adapter/output"
)

// StdinAdapter reads session ids or URLs from standard input, one per line.
// Lines written by the dmenu formatter are reduced to their trailing id.
type StdinAdapter struct {
	reader    io.Reader
	separator string
}

// NewStdinAdapter creates a new StdinAdapter reading from os.Stdin.
func NewStdinAdapter() *StdinAdapter {
	return &StdinAdapter{reader: os.Stdin}
}

// NewStdinAdapterWithReader creates a new StdinAdapter with a custom reader.
func NewStdinAdapterWithReader(r io.Reader) *StdinAdapter {
	return &StdinAdapter{reader: r}
}

// WithSeparator sets the dmenu field separator used to pick the id out of a line.
func (a *StdinAdapter) WithSeparator(sep string) *StdinAdapter {
	a.separator = sep
	return a
}

// Name returns the adapter identifier.
func (a *StdinAdapter) Name() string {
	return "stdin"
}

// ReadIDs returns the session ids named on stdin, skipping blanks and duplicates.
func (a *StdinAdapter) ReadIDs() ([]string, error) {
	lines, err := a.readLines()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(lines))
	ids := make([]string, 0, len(lines))
	for _, line := range lines {
		id := output.ParseDmenuSelection(line, a.separator)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids, nil
}

// ReadURLs returns the URLs named on stdin, skipping blanks and comments.
func (a *StdinAdapter) ReadURLs() ([]string, error) {
	lines, err := a.readLines()
	if err != nil {
		return nil, err
	}

	urls := make([]string, 0, len(lines))
	for _, line := range lines {
		line = sanitizeString(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	return urls, nil
}

func (a *StdinAdapter) readLines() ([]string, error) {
	scanner := bufio.NewScanner(a.reader)
	const maxSize = 1024 * 1024
	scanner.Buffer(make([]byte, 64*1024), maxSize)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, &AdapterError{
			Source:  "stdin",
			Message: "failed to read stdin",
			Err:     err,
		}
	}
	return lines, nil
}

// sanitizeString removes control characters and surrounding whitespace.
func sanitizeString(s string) string {
	var result strings.Builder
	for _, r := range s {
		if r < 32 && r != '\t' {
			result.WriteRune(' ')
		} else {
			result.WriteRune(r)
		}
	}
	return strings.TrimSpace(result.String())
}
