package nbhttp

import (
	"context"
	"math/rand"

	"github.com/lesismal/nbpipe"
)

type splitter func(remaining int) int

func whole(n int) int {
	return n
}

func oneByte(int) int {
	return 1
}

func randomSize(n int) int {
	return rand.Intn(n) + 1
}

var splitters = map[string]splitter{
	"whole":  whole,
	"byte":   oneByte,
	"random": randomSize,
}

// feed delivers data through a producer task, one flush per piece.
func feed(data []byte, split splitter) nbpipe.ByteReadChannel {
	return nbpipe.Writer(context.Background(), func(ctx context.Context, w nbpipe.ByteWriteChannel) error {
		for len(data) > 0 {
			n := split(len(data))
			w.WritablePacket().Write(data[:n])
			data = data[n:]
			if err := w.Flush(); err != nil {
				return err
			}
		}
		return nil
	})
}
