package tree

import (
	"fmt"
	"io"

	"github.com/hupe1980/campie/codec"
)

// Decode parses a model. A nil codec selects codec.Default.
func Decode(data []byte, c codec.Codec) (*Model, error) {
	c = codec.OrDefault(c)

	var m Model
	if err := c.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode model (%s): %w", c.Name(), err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Load reads and parses a model from r.
func Load(r io.Reader, c codec.Codec) (*Model, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}
	return Decode(data, c)
}

// Encode serializes a model.
func Encode(m *Model, c codec.Codec) ([]byte, error) {
	return codec.OrDefault(c).Marshal(m)
}
