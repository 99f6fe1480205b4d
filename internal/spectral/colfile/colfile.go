// Package colfile encodes spectral tables as write-once columnar files.
//
// Container layout: 4-byte magic, format version byte, compression tag
// byte, then the (possibly compressed) CBOR payload. The payload holds the
// table column-major under the fixed schema id / time_ms / particle_count /
// channel_0..channel_{N-1}; that schema is a wire contract shared with
// existing artifacts and must not change shape.
package colfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"

	"github.com/UniversalScientificTechnologies/DOSPORTAL/internal/spectral/entity"
)

const (
	version = 1

	headerSize = 6
)

var magic = [4]byte{'D', 'S', 'P', 'C'}

// CompressionTag identifies the payload compression. Values are stored in
// the container header and are format constants.
type CompressionTag uint8

const (
	CompressionNone CompressionTag = 0
	CompressionZstd CompressionTag = 1
)

func (tag CompressionTag) String() string {
	switch tag {
	case CompressionNone:
		return "none"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", tag)
	}
}

var (
	ErrBadMagic       = errors.New("colfile: not a spectral columnar file")
	ErrBadVersion     = errors.New("colfile: unsupported format version")
	ErrBadCompression = errors.New("colfile: unknown compression tag")
)

// payload is the CBOR document inside the container. Field order is fixed
// by deterministic encoding; decoding ignores unknown fields.
type payload struct {
	Rows          int       `cbor:"rows"`
	Channels      int       `cbor:"channels"`
	IDs           []int64   `cbor:"id"`
	TimeMS        []float64 `cbor:"time_ms"`
	ParticleCount []float64 `cbor:"particle_count"`
	ChannelData   [][]int64 `cbor:"channel_data"`
	ChannelNames  []string  `cbor:"channel_names"`
}

// encMode uses Core Deterministic Encoding so the same table always
// produces identical bytes.
var encMode cbor.EncMode

var decMode cbor.DecMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("colfile: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("colfile: CBOR decoder initialization failed: " + err.Error())
	}
}

// Write encodes the table into w as a zstd-compressed columnar file.
func Write(w io.Writer, table entity.SpectralTable) error {
	names := make([]string, table.ChannelCount())
	for i := range names {
		names[i] = entity.ChannelName(i)
	}

	raw, err := encMode.Marshal(payload{
		Rows:          table.Rows(),
		Channels:      table.ChannelCount(),
		IDs:           table.IDs,
		TimeMS:        table.TimeMS,
		ParticleCount: table.ParticleCount,
		ChannelData:   table.Channels,
		ChannelNames:  names,
	})
	if err != nil {
		return fmt.Errorf("colfile: encode payload: %w", err)
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return fmt.Errorf("colfile: init zstd: %w", err)
	}
	compressed := enc.EncodeAll(raw, make([]byte, 0, len(raw)/2))
	if err := enc.Close(); err != nil {
		return fmt.Errorf("colfile: close zstd: %w", err)
	}

	header := [headerSize]byte{}
	copy(header[:4], magic[:])
	header[4] = version
	header[5] = byte(CompressionZstd)
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("colfile: write header: %w", err)
	}
	if _, err := w.Write(compressed); err != nil {
		return fmt.Errorf("colfile: write payload: %w", err)
	}
	return nil
}

// Read decodes a columnar file back into a spectral table.
func Read(r io.Reader) (entity.SpectralTable, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return entity.SpectralTable{}, fmt.Errorf("colfile: read: %w", err)
	}
	if len(data) < headerSize || !bytes.Equal(data[:4], magic[:]) {
		return entity.SpectralTable{}, ErrBadMagic
	}
	if data[4] != version {
		return entity.SpectralTable{}, ErrBadVersion
	}

	body := data[headerSize:]
	switch CompressionTag(data[5]) {
	case CompressionNone:
	case CompressionZstd:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return entity.SpectralTable{}, fmt.Errorf("colfile: init zstd: %w", err)
		}
		defer dec.Close()
		body, err = dec.DecodeAll(body, nil)
		if err != nil {
			return entity.SpectralTable{}, fmt.Errorf("colfile: decompress: %w", err)
		}
	default:
		return entity.SpectralTable{}, ErrBadCompression
	}

	var doc payload
	if err := decMode.Unmarshal(body, &doc); err != nil {
		return entity.SpectralTable{}, fmt.Errorf("colfile: decode payload: %w", err)
	}

	table := entity.SpectralTable{
		IDs:           doc.IDs,
		TimeMS:        doc.TimeMS,
		ParticleCount: doc.ParticleCount,
		Channels:      doc.ChannelData,
	}
	if table.Channels == nil {
		table.Channels = [][]int64{}
	}
	return table, nil
}
