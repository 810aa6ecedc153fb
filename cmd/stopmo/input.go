package main

import (
	"bufio"
	"context"
	"io"
)

// lineSource reads input lines on a goroutine so a blocked read never holds
// up cancellation. It also serves as an io.Reader for the folder prompt,
// handing out at most one line per Read so the REPL and the prompt never
// steal each other's input.
type lineSource struct {
	ctx     context.Context
	lines   chan string
	pending []byte
}

func newLineSource(ctx context.Context, r io.Reader) *lineSource {
	s := &lineSource{ctx: ctx, lines: make(chan string)}
	go func() {
		defer close(s.lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case s.lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return s
}

// Next blocks for the next line. ok is false on EOF or cancellation.
func (s *lineSource) Next() (string, bool) {
	select {
	case line, ok := <-s.lines:
		return line, ok
	case <-s.ctx.Done():
		return "", false
	}
}

func (s *lineSource) Read(p []byte) (int, error) {
	if len(s.pending) == 0 {
		line, ok := s.Next()
		if !ok {
			return 0, io.EOF
		}
		s.pending = append([]byte(line), '\n')
	}
	n := copy(p, s.pending)
	s.pending = s.pending[n:]
	return n, nil
}
