// Package portaudio is the fallback microphone and speaker for platforms
// where miniaudio is unavailable. Playback is blocking, so AwaitMark simply
// drains what is left.
package portaudio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"log"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/koscakluka/ema-guide/core/audio"
)

type Client struct {
	bufferSize    int
	stream        *portaudio.Stream
	leftoverAudio []byte

	in  []int16
	out []int16

	mu sync.Mutex
}

func NewClient(bufferSize int) (*Client, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	in := make([]int16, bufferSize)
	out := make([]int16, bufferSize)
	stream, err := portaudio.OpenDefaultStream(1, 1, audio.DefaultSampleRate, bufferSize, in, out)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("failed to open portaudio stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("failed to start portaudio stream: %w", err)
	}

	return &Client{
		bufferSize: bufferSize,
		stream:     stream,
		in:         in,
		out:        out,
	}, nil
}

// Stream captures microphone audio until ctx is done.
func (c *Client) Stream(ctx context.Context, onAudio func(audio []byte)) error {
	for ctx.Err() == nil {
		c.mu.Lock()
		err := c.stream.Read()
		chunk := bytes.Buffer{}
		_ = binary.Write(&chunk, binary.LittleEndian, c.in)
		c.mu.Unlock()

		if err != nil {
			log.Printf("Failed to read from PortAudio stream: %v", err)
			continue
		}
		onAudio(chunk.Bytes())
	}
	return nil
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.stream.Close()
	_ = portaudio.Terminate()
}

// SendAudio writes every whole buffer and keeps the remainder for later.
func (c *Client) SendAudio(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	bufferSize := c.bufferSize * 2
	data = append(c.leftoverAudio, data...)
	for len(data) >= bufferSize {
		if err := c.write(data[:bufferSize]); err != nil {
			return err
		}
		data = data[bufferSize:]
	}
	c.leftoverAudio = bytes.Clone(data)
	return nil
}

func (c *Client) ClearBuffer() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.leftoverAudio = nil
}

// AwaitMark pads and plays the remainder.
func (c *Client) AwaitMark() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.leftoverAudio) == 0 {
		return nil
	}
	padded := make([]byte, c.bufferSize*2)
	copy(padded, c.leftoverAudio)
	c.leftoverAudio = nil
	return c.write(padded)
}

func (c *Client) write(chunk []byte) error {
	if err := binary.Read(bytes.NewReader(chunk), binary.LittleEndian, c.out); err != nil {
		return fmt.Errorf("failed to decode audio: %w", err)
	}
	if err := c.stream.Write(); err != nil {
		return fmt.Errorf("failed to write to portaudio stream: %w", err)
	}
	return nil
}

func (c *Client) EncodingInfo() audio.EncodingInfo {
	return audio.EncodingInfo{
		SampleRate: audio.DefaultSampleRate,
		Format:     audio.EncodingLinear16,
	}
}
