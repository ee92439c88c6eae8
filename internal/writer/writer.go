// Package writer implements the Writer Pipeline (C7): buffer
// accumulation, block-size selection, and dispatch into the Object
// Gateway (spec.md §4.7).
package writer

import (
	"context"

	"github.com/objectgw/sal/internal/object"
)

// MaxAccSize is the accumulation threshold spec.md §4.7 fixes: the
// atomic writer accumulates arriving buffers until it has at least this
// much, or end-of-stream.
const MaxAccSize = 32 << 20

// Writer is the atomic writer of spec.md §4.7: prepare/process/complete
// (spec.md §6.2 capability set).
type Writer struct {
	h        *object.Handle
	buf      []byte
	offset   int64
	complete bool
}

// Prepare constructs a Writer over an already-created/opened handle.
func Prepare(h *object.Handle) *Writer {
	return &Writer{h: h}
}

// PrepareAt constructs a Writer that starts dispatching at offset instead
// of 0, used by the tiered multipart strategy to append a part at its
// (num-1)*PART_SIZE offset into a composite's top layer (spec.md §4.6.3)
// rather than from the start of the object.
func PrepareAt(h *object.Handle, offset int64) *Writer {
	return &Writer{h: h, offset: offset}
}

// Process accumulates bl into the pending buffer, flushing whole blocks
// as the accumulation threshold is crossed. Passing an empty bl is the
// end-of-stream signal (spec.md §4.7 "process(empty_bl, _)"): Process
// then behaves exactly like Complete.
func (w *Writer) Process(ctx context.Context, bl []byte) error {
	if len(bl) == 0 {
		return w.Complete(ctx)
	}
	w.buf = append(w.buf, bl...)
	if len(w.buf) < MaxAccSize {
		return nil
	}
	return w.flush(ctx, false)
}

// Complete flushes whatever remains with is_last=true, padding the final
// block to the layout's unit size.
func (w *Writer) Complete(ctx context.Context) error {
	if w.complete {
		return nil
	}
	w.complete = true
	return w.flush(ctx, true)
}

// flush slices the pending buffer into block-sized operations (spec.md
// §4.7) via object.OptimalBlockSize, dispatching one Handle.Write per
// block. When isLast is false, the final bytes of the buffer are
// deliberately held back rather than flushed, so a stream whose length
// happens to land on an exact MaxAccSize boundary never loses its
// last-block flag: only a true end-of-stream flush (isLast=true, driven
// by Complete/the empty-process signal) ever marks a chunk last.
func (w *Writer) flush(ctx context.Context, isLast bool) error {
	for len(w.buf) > 0 {
		remaining := int64(len(w.buf))
		bs := object.OptimalBlockSize(w.h.Layout(), remaining, isLast)
		if bs >= remaining {
			if !isLast {
				// Would consume the whole buffer on a non-final flush;
				// hold it back for the eventual last flush instead.
				break
			}
			bs = remaining
		}
		last := isLast && bs >= remaining
		chunk := w.buf[:bs]
		if err := w.h.Write(ctx, w.offset, chunk, last); err != nil {
			return err
		}
		w.offset += int64(len(chunk))
		w.buf = w.buf[bs:]
	}
	return nil
}

// BytesWritten returns the number of bytes written so far.
func (w *Writer) BytesWritten() int64 { return w.offset }
