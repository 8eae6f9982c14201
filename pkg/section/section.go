// Package section implements the append-only growable text buffers used
// for the `.text` and `.data` output sections (spec.md §4.8).
package section

import (
	"fmt"
	"os"
)

const initialCapacity = 4 * 1024 // 4 KiB, doubling on overflow

// buffer is a growable byte buffer that doubles capacity on overflow,
// mirroring the original implementation's section-buffer growth strategy.
type buffer struct {
	data []byte
}

func newBuffer() *buffer {
	return &buffer{data: make([]byte, 0, initialCapacity)}
}

func (b *buffer) writeString(s string) {
	need := len(b.data) + len(s)
	if need > cap(b.data) {
		newCap := cap(b.data)
		if newCap == 0 {
			newCap = initialCapacity
		}
		for newCap < need {
			newCap *= 2
		}
		grown := make([]byte, len(b.data), newCap)
		copy(grown, b.data)
		b.data = grown
	}
	b.data = append(b.data, s...)
}

// Buffer holds the two named sections of one translation unit's output.
type Buffer struct {
	text *buffer
	data *buffer
}

func New() *Buffer {
	return &Buffer{text: newBuffer(), data: newBuffer()}
}

// WriteText appends a formatted line to the .text section.
func (b *Buffer) WriteText(format string, args ...any) {
	b.text.writeString(fmt.Sprintf(format, args...))
}

// WriteData appends a formatted line to the .data section.
func (b *Buffer) WriteData(format string, args ...any) {
	b.data.writeString(fmt.Sprintf(format, args...))
}

// FlushToFile writes `.text` then `.data`, each preceded by
// `.section .<name>`, skipping sections with no content.
func (b *Buffer) FlushToFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if len(b.text.data) > 0 {
		if _, err := fmt.Fprintf(f, ".section .text\n%s", b.text.data); err != nil {
			return err
		}
	}
	if len(b.data.data) > 0 {
		if _, err := fmt.Fprintf(f, ".section .data\n%s", b.data.data); err != nil {
			return err
		}
	}
	return nil
}
