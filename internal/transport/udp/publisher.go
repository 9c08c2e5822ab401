// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"

	applog "spectra/internal/log"
	"spectra/internal/pipeline"
)

// Packet layout, big endian:
//
//	uint32  sequence number
//	uint8   content (0 = processed, 1 = raw)
//	uint8   flags (bit 0: centered)
//	uint32  sample rate (Hz)
//	uint16  values per channel
//	float32 left values
//	float32 right values
const packetHeaderSize = 4 + 1 + 1 + 4 + 2

// maxValuesPerPacket keeps packets under a typical 64KB UDP payload limit.
const maxValuesPerPacket = 4096

// Publisher packs frames into the binary format above and sends them
// through a Sender. Frames arriving faster than the minimum interval are
// dropped. Publish is only ever called from the coordinator's tick
// goroutine, so the pre-allocated pack buffers are unguarded.
type Publisher struct {
	sender      *Sender
	minInterval time.Duration
	lastSend    time.Time
	sequenceNum uint32

	packetBuffer *bytes.Buffer
}

// NewPublisher creates a publisher over sender. minInterval throttles
// sends; zero sends every frame.
func NewPublisher(sender *Sender, minInterval time.Duration) (*Publisher, error) {
	if sender == nil {
		return nil, fmt.Errorf("UDP publisher: sender cannot be nil")
	}
	return &Publisher{
		sender:       sender,
		minInterval:  minInterval,
		packetBuffer: new(bytes.Buffer),
	}, nil
}

// Publish packs and sends one frame.
func (p *Publisher) Publish(frame pipeline.Frame) error {
	now := time.Now()
	if now.Sub(p.lastSend) < p.minInterval {
		return nil
	}
	p.lastSend = now

	values := len(frame.Data.Left)
	if len(frame.Data.Right) < values {
		values = len(frame.Data.Right)
	}
	if values > maxValuesPerPacket {
		values = maxValuesPerPacket
	}

	p.sequenceNum++
	p.packetBuffer.Reset()
	p.packetBuffer.Grow(packetHeaderSize + 8*values)

	var content uint8
	if frame.Content == pipeline.Raw {
		content = 1
	}
	var flags uint8
	if frame.Centered {
		flags |= 1
	}

	binary.Write(p.packetBuffer, binary.BigEndian, p.sequenceNum)
	p.packetBuffer.WriteByte(content)
	p.packetBuffer.WriteByte(flags)
	binary.Write(p.packetBuffer, binary.BigEndian, uint32(frame.SampleRate))
	binary.Write(p.packetBuffer, binary.BigEndian, uint16(values))
	for i := 0; i < values; i++ {
		binary.Write(p.packetBuffer, binary.BigEndian, float32(frame.Data.Left[i]))
	}
	for i := 0; i < values; i++ {
		binary.Write(p.packetBuffer, binary.BigEndian, float32(frame.Data.Right[i]))
	}

	if err := p.sender.Send(p.packetBuffer.Bytes()); err != nil {
		applog.Errorf("UDP: error sending frame packet: %v", err)
		return err
	}
	return nil
}

// Close closes the underlying sender.
func (p *Publisher) Close() error {
	return p.sender.Close()
}

var _ pipeline.Publisher = (*Publisher)(nil)
