package fonts

import (
	"os"

	xfont "golang.org/x/image/font"
)

type faceKey struct {
	program *Program
	size    float64
}

type programEntry struct {
	program *Program
	err     error
}

// Cache keeps font bytes, parsed programs and raster faces for one run.
// It is not safe for concurrent use.
type Cache struct {
	files    map[string][]byte
	programs map[string]programEntry
	faces    map[faceKey]xfont.Face
}

func NewCache() *Cache {
	return &Cache{
		files:    make(map[string][]byte),
		programs: make(map[string]programEntry),
		faces:    make(map[faceKey]xfont.Face),
	}
}

// ReadFile reads path once per run.
func (c *Cache) ReadFile(path string) ([]byte, error) {
	if data, ok := c.files[path]; ok {
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c.files[path] = data
	return data, nil
}

// Program parses data under key once; failures are cached too.
func (c *Cache) Program(key, name string, load func() ([]byte, error)) (*Program, error) {
	if e, ok := c.programs[key]; ok {
		return e.program, e.err
	}
	data, err := load()
	var p *Program
	if err == nil {
		p, err = LoadProgram(name, data)
	}
	if p != nil {
		p.Source = key
	}
	c.programs[key] = programEntry{program: p, err: err}
	return p, err
}

func (c *Cache) Face(p *Program, size float64) (xfont.Face, error) {
	key := faceKey{program: p, size: size}
	if f, ok := c.faces[key]; ok {
		return f, nil
	}
	f, err := p.RasterFace(size)
	if err != nil {
		return nil, err
	}
	c.faces[key] = f
	return f, nil
}

// Close releases cached faces.
func (c *Cache) Close() error {
	for k, f := range c.faces {
		f.Close()
		delete(c.faces, k)
	}
	return nil
}
