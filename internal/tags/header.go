package tags

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

const (
	// FormatName identifies the control-byte format in the header.
	FormatName = "tagmanager"

	// FormatVersion is the header layout version written by this package.
	FormatVersion = 1

	headerSentinel = '#'
)

// ErrNotTagFile is returned when a file does not start with a tagmanager header.
var ErrNotTagFile = errors.New("not a tagmanager tag file")

// Header is the metadata block at the top of a tag file.
type Header struct {
	Format    string
	Version   int
	Sorted    bool
	Generator string
	Created   time.Time
}

// NewHeader returns a header for a sorted tagmanager file.
func NewHeader(generator string, created time.Time) Header {
	return Header{
		Format:    FormatName,
		Version:   FormatVersion,
		Sorted:    true,
		Generator: generator,
		Created:   created,
	}
}

// WriteHeader writes the fixed five-line header block.
func WriteHeader(w io.Writer, h Header) error {
	sorted := 0
	if h.Sorted {
		sorted = 1
	}
	generator := strings.ReplaceAll(h.Generator, "\n", " ")
	_, err := fmt.Fprintf(w,
		"# format=%s\n# version=%d\n# sorted=%d\n# generator=%s\n# created=%s\n",
		h.Format, h.Version, sorted, generator, h.Created.Format(time.ANSIC))
	return err
}

// ReadHeader consumes the leading sentinel block from r and returns the parsed
// header and the number of lines consumed. The first line must name the
// tagmanager format; older files carry only that line.
func ReadHeader(r *bufio.Reader) (Header, int, error) {
	var h Header
	lines := 0
	for {
		next, err := r.Peek(1)
		if err != nil || next[0] != headerSentinel {
			break
		}
		line, err := r.ReadString('\n')
		if err != nil && err != io.EOF {
			return h, lines, err
		}
		lines++
		h.parseLine(strings.TrimRight(line, "\r\n"))
		if err == io.EOF {
			break
		}
	}
	if h.Format != FormatName {
		return h, lines, ErrNotTagFile
	}
	return h, lines, nil
}

func (h *Header) parseLine(line string) {
	body := strings.TrimSpace(strings.TrimPrefix(line, string(headerSentinel)))
	key, value, ok := strings.Cut(body, "=")
	if !ok {
		return
	}
	switch key {
	case "format":
		// legacy headers continue with free text after the format name
		h.Format, _, _ = strings.Cut(value, " ")
	case "version":
		h.Version, _ = strconv.Atoi(value)
	case "sorted":
		h.Sorted = value == "1"
	case "generator":
		h.Generator = value
	case "created":
		if t, err := time.Parse(time.ANSIC, value); err == nil {
			h.Created = t
		}
	}
}
