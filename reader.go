package fibsterm

import "io"

// ReadBufferSize is the size of the buffer ReadLoop reads into
const ReadBufferSize = 4096

// ReadLoop reads r until it fails and sends every byte to out in arrival order.
// out is closed when ReadLoop returns, which is how the consumer learns that the
// stream ended. The end of the stream is reported like any other read error.
func ReadLoop(r io.Reader, out chan<- byte) error {
	defer close(out)

	buf := make([]byte, ReadBufferSize)
	for {
		n, err := r.Read(buf)
		for _, b := range buf[:n] {
			out <- b
		}
		if err != nil {
			return IOError("reader", err)
		}
	}
}
