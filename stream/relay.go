package stream

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
)

// Relay copies a stream to dst line by line, flushing after each line when
// dst supports it. It returns the number of lines written.
func Relay(dst io.Writer, src io.Reader) (int, error) {
	flusher, _ := dst.(http.Flusher)
	br := bufio.NewReader(src)
	lines := 0
	for {
		line, err := br.ReadBytes('\n')
		if len(line) > 0 {
			if _, werr := dst.Write(line); werr != nil {
				return lines, fmt.Errorf("could not relay stream line: %w", werr)
			}
			if flusher != nil {
				flusher.Flush()
			}
			lines++
		}
		if err == io.EOF {
			return lines, nil
		}
		if err != nil {
			return lines, err
		}
	}
}
