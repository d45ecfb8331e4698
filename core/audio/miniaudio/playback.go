package miniaudio

import (
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
)

type playbackClient struct {
	device *malgo.Device

	leftoverAudio []byte
	marks         []playbackMark

	mu      sync.Mutex
	audioMu sync.Mutex
}

type playbackMark struct {
	position int
	done     func()
}

func (c *playbackClient) Init(audioContext *malgo.AllocatedContext, sampleRate uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	channels := 1
	format := malgo.FormatS16
	bytesPerFrame := malgo.SampleSizeInBytes(format) * channels

	config := malgo.DefaultDeviceConfig(malgo.Playback)
	config.SampleRate = sampleRate
	config.Playback.Format = format
	config.Playback.Channels = uint32(channels)
	config.Alsa.NoMMap = 1
	config.PeriodSizeInFrames = sampleRate / 10 // ~100ms of audio
	config.Periods = 4

	var err error
	if c.device, err = malgo.InitDevice(
		audioContext.Context,
		config,
		malgo.DeviceCallbacks{Data: c.processAudio(bytesPerFrame)},
	); err != nil {
		return err
	}

	return nil
}

func (c *playbackClient) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.device == nil {
		return fmt.Errorf("device not initialized")
	}

	if err := c.device.Start(); err != nil {
		return fmt.Errorf("failed to start playback device: %w", err)
	}

	return nil
}

func (c *playbackClient) SendAudio(audio []byte) error {
	c.mu.Lock()
	device := c.device
	c.mu.Unlock()
	if device == nil {
		return fmt.Errorf("device not initialized")
	} else if !device.IsStarted() {
		return fmt.Errorf("device not started")
	}

	c.audioMu.Lock()
	defer c.audioMu.Unlock()
	c.leftoverAudio = append(c.leftoverAudio, audio...)
	return nil
}

// ClearBuffer drops unplayed audio and releases every pending mark.
func (c *playbackClient) ClearBuffer() {
	c.audioMu.Lock()
	c.leftoverAudio = nil
	marks := c.marks
	c.marks = nil
	c.audioMu.Unlock()

	for _, mark := range marks {
		mark.done()
	}
}

// AwaitMark blocks until all audio sent so far has been handed to the device.
func (c *playbackClient) AwaitMark() error {
	c.mu.Lock()
	device := c.device
	c.mu.Unlock()
	if device == nil {
		return fmt.Errorf("device not initialized")
	}

	reached := make(chan struct{})
	var once sync.Once
	c.audioMu.Lock()
	c.marks = append(c.marks, playbackMark{
		position: len(c.leftoverAudio),
		done:     func() { once.Do(func() { close(reached) }) },
	})
	c.audioMu.Unlock()

	<-reached
	return nil
}

func (c *playbackClient) Uninit() error {
	c.mu.Lock()
	device := c.device
	c.device = nil
	c.mu.Unlock()

	if device == nil {
		return fmt.Errorf("device not initialized")
	}
	device.Uninit()
	c.ClearBuffer()
	return nil
}

func (c *playbackClient) processAudio(bytesPerFrame int) malgo.DataProc {
	return func(pOutput, _ []byte, frameCount uint32) {
		need := min(int(frameCount)*bytesPerFrame, len(pOutput))

		c.audioMu.Lock()
		n := copy(pOutput[:need], c.leftoverAudio)
		clear(pOutput[n:need])
		c.leftoverAudio = c.leftoverAudio[n:]

		var passed []playbackMark
		kept := c.marks[:0]
		for _, mark := range c.marks {
			if mark.position <= n {
				passed = append(passed, mark)
				continue
			}
			mark.position -= n
			kept = append(kept, mark)
		}
		c.marks = kept
		c.audioMu.Unlock()

		for _, mark := range passed {
			mark.done()
		}
	}
}
