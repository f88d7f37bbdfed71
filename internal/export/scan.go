package export

import "bytes"

// Low-level tag scanning over accumulated bytes. This is a small hand-rolled
// state machine rather than a regex pass: the buffer only ever holds a window
// of the document, and the scanner must distinguish "complete element" from
// "element still arriving" at every chunk boundary.

// element is one scanned XML element: its start-tag attributes and, when the
// element is not self-closing, the inner bytes between start and end tags.
type element struct {
	tag   []byte // full start tag, "<Name ...>" or "<Name .../>"
	inner []byte // nil for self-closing elements
}

// findOpen locates the next occurrence of "<name" followed by a space, '>' or
// '/' in buf starting at from. Returns -1 when absent.
func findOpen(buf []byte, name string, from int) int {
	marker := []byte("<" + name)
	for i := from; ; {
		j := bytes.Index(buf[i:], marker)
		if j < 0 {
			return -1
		}
		pos := i + j
		after := pos + len(marker)
		if after >= len(buf) {
			// Marker runs to the buffer's end; treat as a match so the
			// caller retains it for the next chunk.
			return pos
		}
		switch buf[after] {
		case ' ', '\t', '\n', '\r', '>', '/':
			return pos
		}
		i = pos + 1
	}
}

// scanElement tries to scan one complete element named name starting exactly
// at buf[start] (which must point at '<'). It returns the element and the
// index just past it. complete is false when the element has not fully
// arrived yet.
func scanElement(buf []byte, name string, start int) (el element, end int, complete bool) {
	gt := bytes.IndexByte(buf[start:], '>')
	if gt < 0 {
		return element{}, 0, false
	}
	tagEnd := start + gt + 1
	tag := buf[start:tagEnd]

	if tag[len(tag)-2] == '/' {
		return element{tag: tag}, tagEnd, true
	}

	closing := []byte("</" + name + ">")
	ci := bytes.Index(buf[tagEnd:], closing)
	if ci < 0 {
		return element{}, 0, false
	}
	innerEnd := tagEnd + ci
	return element{tag: tag, inner: buf[tagEnd:innerEnd]}, innerEnd + len(closing), true
}

// attrs extracts attribute key/value pairs from a start tag. Values are
// expected to be double-quoted; anything malformed simply stops the scan,
// leaving the attributes gathered so far.
func attrs(tag []byte) map[string]string {
	out := make(map[string]string, 8)

	i := 0
	// skip "<Name"
	for i < len(tag) && tag[i] != ' ' && tag[i] != '\t' && tag[i] != '\n' && tag[i] != '\r' {
		i++
	}

	for i < len(tag) {
		for i < len(tag) && (tag[i] == ' ' || tag[i] == '\t' || tag[i] == '\n' || tag[i] == '\r') {
			i++
		}
		keyStart := i
		for i < len(tag) && tag[i] != '=' && tag[i] != '>' && tag[i] != '/' {
			i++
		}
		if i >= len(tag) || tag[i] != '=' {
			break
		}
		key := string(bytes.TrimSpace(tag[keyStart:i]))
		i++ // '='
		if i >= len(tag) || tag[i] != '"' {
			break
		}
		i++ // opening quote
		valStart := i
		for i < len(tag) && tag[i] != '"' {
			i++
		}
		if i >= len(tag) {
			break
		}
		out[key] = string(tag[valStart:i])
		i++ // closing quote
	}
	return out
}
