package dataflow

import (
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"

	"github.com/vk/glgrid/internal/cache"
	"github.com/vk/glgrid/internal/graph"
)

// BufferData is the payload uploaded to a buffer.
type BufferData struct {
	Bytes []byte
	// Stride is the row size of interleaved data, 0 for tightly packed data.
	Stride int
}

func (d *BufferData) Size() int { return len(d.Bytes) }

// BufferOwner adapts a Buffer block to the cache.
type BufferOwner struct {
	Block *graph.Block
	// Dir resolves file-backed data sources.
	Dir string
}

func (o BufferOwner) CacheKey() cache.Key {
	return BufferKey(o.Block)
}

// CreateCacheData streams the buffer's input. Runtime data and broken
// upstream trees produce no payload.
func (o BufferOwner) CreateCacheData() cache.Data {
	data, err := o.Stream()
	if err != nil || data == nil {
		return nil
	}
	return data
}

// Stream computes the payload and reports why it could not.
func (o BufferOwner) Stream() (*BufferData, error) {
	_, runtime, err := bufferKey(o.Block)
	if err != nil {
		return nil, err
	}
	if runtime {
		return nil, nil
	}
	c, _ := bufferInput(o.Block)
	src, err := Resolve(c)
	if err != nil {
		return nil, err
	}

	s := NewStream(o.Dir)
	switch p := src.(type) {
	case DataSourceProducer:
		vals, err := s.load(p)
		if err != nil {
			return nil, err
		}
		n := p.Source.Components
		out := make([]byte, 0, len(vals)*p.Source.ComponentType.Size())
		for off := 0; off+n <= len(vals); off += n {
			out = appendElement(out, vals[off:off+n], p.Source.ComponentType, graph.Conversion{})
		}
		return &BufferData{Bytes: out}, nil
	case UniformProducer:
		comps, err := p.Uniform.Components()
		if err != nil {
			return nil, err
		}
		return &BufferData{Bytes: appendElement(nil, comps, p.Uniform.ComponentType, graph.Conversion{})}, nil
	case MixerProducer:
		stride, err := s.StructWidth(p.Block)
		if err != nil {
			return nil, err
		}
		out, err := s.Mixer(p.Block)
		if err != nil {
			return nil, err
		}
		return &BufferData{Bytes: out, Stride: stride}, nil
	}
	return nil, graph.Errorf(graph.ErrInvalidArgument, "unexpected producer %T", src)
}

// TextureData is a decoded RGBA image.
type TextureData struct {
	Width, Height int
	Pixels        []byte
}

func (d *TextureData) Size() int { return len(d.Pixels) }

// TextureOwner adapts a Texture block fed by an Image to the cache.
type TextureOwner struct {
	Block *graph.Block
	Dir   string
}

func (o TextureOwner) image() (*graph.Image, bool) {
	in := o.Block.Incoming(graph.PortImage)
	if len(in) != 1 {
		return nil, false
	}
	img, ok := in[0].Source().Block().Kind().(*graph.Image)
	return img, ok && img.Path != ""
}

// CacheKey is empty for render-target textures, whose content only exists
// while rendering.
func (o TextureOwner) CacheKey() cache.Key {
	tex, ok := o.Block.Kind().(*graph.Texture)
	if !ok {
		return ""
	}
	img, ok := o.image()
	if !ok {
		return ""
	}
	return cache.Key(fmt.Sprintf("TextureBlock/%s[ImageBlock#%s]", tex.Format, img.Path))
}

func (o TextureOwner) CreateCacheData() cache.Data {
	data, err := o.Decode()
	if err != nil {
		return nil
	}
	return data
}

// Decode reads and converts the image feeding the texture.
func (o TextureOwner) Decode() (*TextureData, error) {
	img, ok := o.image()
	if !ok {
		return nil, graph.Errorf(graph.ErrInvalidArgument, "%s is not fed by an image", o.Block)
	}
	path := img.Path
	if !filepath.IsAbs(path) {
		path = filepath.Join(o.Dir, path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening image %q: %w", img.Path, err)
	}
	defer f.Close()

	decoded, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding image %q: %w", img.Path, err)
	}
	bounds := decoded.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), decoded, bounds.Min, draw.Src)
	return &TextureData{Width: bounds.Dx(), Height: bounds.Dy(), Pixels: rgba.Pix}, nil
}

// Resolver looks payloads up through a shared pool.
type Resolver struct {
	Pool *cache.Pool
	Dir  string
}

// Buffer returns the cached payload of a buffer block.
func (r Resolver) Buffer(b *graph.Block) (*BufferData, bool) {
	obj := r.Pool.Get(BufferOwner{Block: b, Dir: r.Dir})
	if obj == nil {
		return nil, false
	}
	data, ok := obj.Data().(*BufferData)
	return data, ok
}

// Texture returns the cached image of a texture block.
func (r Resolver) Texture(b *graph.Block) (*TextureData, bool) {
	obj := r.Pool.Get(TextureOwner{Block: b, Dir: r.Dir})
	if obj == nil {
		return nil, false
	}
	data, ok := obj.Data().(*TextureData)
	return data, ok
}

// Release drops the claims of a deleted block.
func (r Resolver) Release(b *graph.Block) {
	r.Pool.Release(BufferOwner{Block: b, Dir: r.Dir})
	r.Pool.Release(TextureOwner{Block: b, Dir: r.Dir})
}
