package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4/pkg/media/oggwriter"
	"gopkg.in/hraban/opus.v2"
)

const (
	opusFrameDuration = 20 // ms
	// Ogg/Opus granule positions always run at 48kHz.
	opusGranuleStep = 48000 * opusFrameDuration / 1000
	opusMaxPacket   = 4000
	opusPayloadType = 111
)

// opusCodec encodes 20ms PCM frames to Opus and muxes them into an Ogg stream.
type opusCodec struct {
	enc *opus.Encoder
	ogg *oggwriter.OggWriter
	out bytes.Buffer

	channels   int
	frameBytes int
	pending    []byte
	samples    []int16
	packet     []byte

	seq       uint16
	timestamp uint32
}

func newOpusCodec(sampleRate, channels int) (*opusCodec, error) {
	if !validOpusRate(sampleRate) {
		return nil, fmt.Errorf("opus does not support %d Hz", sampleRate)
	}
	if channels < 1 || channels > 2 {
		return nil, fmt.Errorf("opus does not support %d channels", channels)
	}

	enc, err := opus.NewEncoder(sampleRate, channels, opus.AppVoIP)
	if err != nil {
		return nil, fmt.Errorf("opus encoder: %w", err)
	}

	frameSamples := sampleRate * opusFrameDuration / 1000
	c := &opusCodec{
		enc:        enc,
		channels:   channels,
		frameBytes: frameSamples * channels * 2,
		samples:    make([]int16, frameSamples*channels),
		packet:     make([]byte, opusMaxPacket),
	}

	ogg, err := oggwriter.NewWith(&c.out, uint32(sampleRate), uint16(channels))
	if err != nil {
		return nil, fmt.Errorf("ogg writer: %w", err)
	}
	c.ogg = ogg
	return c, nil
}

func (c *opusCodec) Write(pcm []byte) error {
	c.pending = append(c.pending, pcm...)

	offset := 0
	for len(c.pending)-offset >= c.frameBytes {
		if err := c.encodeFrame(c.pending[offset : offset+c.frameBytes]); err != nil {
			return err
		}
		offset += c.frameBytes
	}
	c.pending = append(c.pending[:0], c.pending[offset:]...)
	return nil
}

func (c *opusCodec) Flush() []byte {
	if c.out.Len() == 0 {
		return nil
	}
	out := append([]byte(nil), c.out.Bytes()...)
	c.out.Reset()
	return out
}

// Finish pads the trailing partial frame with silence so no captured sample is lost.
func (c *opusCodec) Finish() ([]byte, error) {
	var err error
	if len(c.pending) > 0 {
		frame := make([]byte, c.frameBytes)
		copy(frame, c.pending)
		c.pending = nil
		err = c.encodeFrame(frame)
	}
	if closeErr := c.ogg.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return c.Flush(), err
}

func (c *opusCodec) encodeFrame(frame []byte) error {
	for i := range c.samples {
		c.samples[i] = int16(binary.LittleEndian.Uint16(frame[i*2:]))
	}

	n, err := c.enc.Encode(c.samples, c.packet)
	if err != nil {
		return fmt.Errorf("opus encode: %w", err)
	}

	packet := &rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			PayloadType:    opusPayloadType,
			SequenceNumber: c.seq,
			Timestamp:      c.timestamp,
			SSRC:           1,
		},
		Payload: append([]byte(nil), c.packet[:n]...),
	}
	c.seq++
	c.timestamp += opusGranuleStep

	return c.ogg.WriteRTP(packet)
}

func validOpusRate(rate int) bool {
	switch rate {
	case 8000, 12000, 16000, 24000, 48000:
		return true
	default:
		return false
	}
}
