package transport

// FrameParser extracts complete JSON objects from a stream of bytes that
// concatenates objects back-to-back with no length prefix or delimiter
// (§4.A framing). It tracks string state, escape state, and brace depth
// outside strings; a complete object spans from the first unescaped '{'
// at depth 0 to the matching '}' that returns depth to 0.
type FrameParser struct {
	buf []byte
}

// NewFrameParser creates an empty parser.
func NewFrameParser() *FrameParser {
	return &FrameParser{}
}

// Feed appends newly read bytes to the parser's buffer.
func (p *FrameParser) Feed(data []byte) {
	p.buf = append(p.buf, data...)
}

// Next extracts the next complete JSON object from the buffer, if any.
// It returns the object bytes and true, or nil and false when no complete
// object is yet present (the caller should wait for more bytes).
//
// A buffer with no '{' at all is noise and is cleared; a buffer holding
// the start of an incomplete object is left unchanged.
func (p *FrameParser) Next() ([]byte, bool) {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i, b := range p.buf {
		if start == -1 {
			if b == '{' {
				start = i
				depth = 0
				inString = false
				escaped = false
			} else {
				continue
			}
		}

		if inString {
			switch {
			case escaped:
				escaped = false
			case b == '\\':
				escaped = true
			case b == '"':
				inString = false
			}
			continue
		}

		switch b {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				obj := make([]byte, i-start+1)
				copy(obj, p.buf[start:i+1])
				p.buf = p.buf[i+1:]
				return obj, true
			}
		}
	}

	if start == -1 && len(p.buf) > 0 {
		// No '{' anywhere in the buffer: this is noise, drop it all.
		p.buf = nil
		return nil, false
	}

	if len(p.buf) > 0 {
		// A '{' was found but its object isn't complete yet; leave the
		// buffer as-is and wait for more bytes. Malformed frames are
		// handled by Recover, not here.
	}

	return nil, false
}

// Recover is invoked after a JSON syntax error on a frame Next returned:
// it advances the buffer to the next '{' and retries, or clears the
// buffer entirely if none remains. This implements the "advance to next
// brace or clear" recovery rule for malformed frames.
func (p *FrameParser) Recover() {
	for i := 1; i < len(p.buf); i++ {
		if p.buf[i] == '{' {
			p.buf = p.buf[i:]
			return
		}
	}
	p.buf = nil
}

// AdvanceOne drops a single byte from the front of the buffer.
func (p *FrameParser) AdvanceOne() {
	if len(p.buf) > 0 {
		p.buf = p.buf[1:]
	}
}

// Len reports the current buffer length, used by callers to detect
// whether a parse pass made progress.
func (p *FrameParser) Len() int {
	return len(p.buf)
}
