// Copyright 2020 lesismal. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package nbpipe

import (
	"context"
)

// ProgressListener is told the running byte count and the expected total,
// total is negative when unknown.
type ProgressListener func(sent, total int64)

// Observable relays src through a producer task and reports progress after every delivery.
func Observable(ctx context.Context, src ByteReadChannel, total int64, listener ProgressListener) ByteReadChannel {
	return Writer(ctx, func(ctx context.Context, w ByteWriteChannel) error {
		var sent int64
		for {
			ok, err := src.AwaitBytes(nil)
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			sp := src.ReadablePacket()
			sent += int64(sp.AvailableForRead())
			w.WritablePacket().WritePacket(sp)
			if err := w.Flush(); err != nil {
				src.Cancel(err)
				return err
			}
			if listener != nil {
				listener(sent, total)
			}
		}
	})
}
