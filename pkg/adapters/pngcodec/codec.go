// Package pngcodec provides a PNG implementation of ports.ImageCodec.
package pngcodec

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"sync"

	"github.com/cubicibo/ass2bdnxml/pkg/ports"
)

// Codec writes bitmaps as PNG files through a FileSystem. It is safe for
// concurrent use.
type Codec struct {
	fs  ports.FileSystem
	enc *png.Encoder
}

// New creates a Codec. Bitmaps favour encoding speed over size.
func New(fs ports.FileSystem) *Codec {
	return &Codec{
		fs: fs,
		enc: &png.Encoder{
			CompressionLevel: png.BestSpeed,
			BufferPool:       &bufferPool{},
		},
	}
}

// Encode returns the PNG encoding of img.
func (c *Codec) Encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.enc.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteRGBA stores a true-color bitmap.
func (c *Codec) WriteRGBA(path string, img *image.NRGBA) error {
	return c.write(path, img)
}

// WritePaletted stores an indexed bitmap. Transparent palette entries are
// kept in the tRNS chunk.
func (c *Codec) WritePaletted(path string, img *image.Paletted) error {
	if len(img.Palette) == 0 {
		return fmt.Errorf("%s: empty palette", path)
	}
	return c.write(path, img)
}

func (c *Codec) write(path string, img image.Image) error {
	data, err := c.Encode(img)
	if err != nil {
		return err
	}
	return c.fs.WriteFile(path, data)
}

var _ ports.ImageCodec = (*Codec)(nil)

type bufferPool struct {
	pool sync.Pool
}

func (p *bufferPool) Get() *png.EncoderBuffer {
	b, _ := p.pool.Get().(*png.EncoderBuffer)
	return b
}

func (p *bufferPool) Put(b *png.EncoderBuffer) {
	p.pool.Put(b)
}
