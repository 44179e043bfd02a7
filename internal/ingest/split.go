package ingest

import "bytes"

const maxLineBytes = 1 << 20

// splitter turns raw reads into lines, carrying an unterminated tail over to
// the next read. A tail longer than maxLineBytes is emitted as a line.
type splitter struct {
	partial []byte
}

func (s *splitter) feed(p []byte) []string {
	var out []string
	for len(p) > 0 {
		i := bytes.IndexByte(p, '\n')
		if i < 0 {
			s.partial = append(s.partial, p...)
			if len(s.partial) >= maxLineBytes {
				out = append(out, string(s.partial))
				s.partial = s.partial[:0]
			}
			break
		}
		var line []byte
		if len(s.partial) > 0 {
			line = append(s.partial, p[:i]...)
			s.partial = s.partial[:0]
		} else {
			line = p[:i]
		}
		out = append(out, string(bytes.TrimSuffix(line, []byte{'\r'})))
		p = p[i+1:]
	}
	return out
}

// flush returns the buffered tail, if any.
func (s *splitter) flush() (string, bool) {
	if len(s.partial) == 0 {
		return "", false
	}
	line := string(bytes.TrimSuffix(s.partial, []byte{'\r'}))
	s.partial = nil
	return line, true
}
