package scope

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// QueryAndShowResponse sends cmd, waits briefly, and writes whatever came back
// to w. Text replies are shown as-is; anything else is shown as decimal byte
// values. It is a debugging aid and never fails on the content of the reply.
func (s *Scope) QueryAndShowResponse(w io.Writer, cmd string) (string, error) {
	if err := s.send(cmd); err != nil {
		return "", err
	}
	time.Sleep(s.settle)
	b, err := s.receive(cmd)
	if err != nil {
		return "", err
	}
	text := Printable(b)
	if _, err := fmt.Fprintln(w, text); err != nil {
		return text, err
	}
	return text, nil
}

// Printable renders b for display: as a string when it is valid UTF-8,
// otherwise as space separated decimal bytes.
func Printable(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	parts := make([]string, len(b))
	for i, c := range b {
		parts[i] = strconv.Itoa(int(c))
	}
	return strings.Join(parts, " ")
}
