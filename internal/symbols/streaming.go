package symbols

import (
	"bufio"
	"bytes"
	"io"

	"sentinel/internal/errors"
)

// stream is the last rung of the ladder. It reads content line by line,
// truncating overlong lines instead of failing, and keeps declarations only.
// The returned count is the number of lines seen.
func (a *heuristicAnalyzer) stream(r io.Reader, maxLine int) (*scanResult, int, error) {
	st := &scanState{
		analyzer: a,
		access:   make(map[string]string),
		res:      &scanResult{},
	}
	br := bufio.NewReaderSize(r, 64*1024)
	ctx := NewParseContext()

	var line bytes.Buffer
	lineNo := 0
	truncated := false
	for {
		frag, isPrefix, err := br.ReadLine()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, lineNo, errors.New(errors.ParserFailure, "streaming read failed", err).WithPath(a.path)
		}
		if room := maxLine - line.Len(); room > 0 {
			if len(frag) > room {
				frag = frag[:room]
				truncated = true
			}
			line.Write(frag)
		} else {
			truncated = true
		}
		if isPrefix {
			continue
		}
		lineNo++
		if truncated {
			st.res.parseErrors++
			truncated = false
		}
		ctx = st.processLine(ctx, line.String(), lineNo)
		line.Reset()
	}
	ctx = st.flushSignature(ctx)
	st.res.ctx = ctx
	st.res.relationships = nil
	return st.res, lineNo, nil
}
