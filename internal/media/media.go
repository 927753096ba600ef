package media

import (
	"fmt"

	"github.com/pion/webrtc/v4"
)

// Constraints selects which local tracks a source should produce.
// Processed asks for the composited variant of the capture (the desk
// mosaic); main rooms publish it, while private sessions acquire a fresh
// raw stream straight from the devices.
type Constraints struct {
	Video     bool
	Audio     bool
	Processed bool
}

// Stream is a bundle of local tracks attached to every peer link in a
// context. Acquire once per context, close when leaving it.
type Stream struct {
	tracks []webrtc.TrackLocal
	closer func() error
}

// Tracks returns the local tracks in stable order.
func (s *Stream) Tracks() []webrtc.TrackLocal {
	return s.tracks
}

// Close releases the underlying devices.
func (s *Stream) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}

// Source produces local media streams. The default is StaticSource, which
// emits silent/black placeholder tracks so the mesh works on machines with
// no capture devices.
type Source interface {
	Acquire(c Constraints) (*Stream, error)
}

// DeviceError reports an unusable capture device. Private-session setup
// treats it as fatal for the session: the caller returns to the main room.
type DeviceError struct {
	Kind string // "video" or "audio"
	Err  error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("%s device unavailable: %v", e.Kind, e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }

// StaticSource produces placeholder tracks that carry no frames. The
// transceivers still negotiate, so remote peers see a muted participant.
type StaticSource struct{}

func (StaticSource) Acquire(c Constraints) (*Stream, error) {
	var tracks []webrtc.TrackLocal

	if c.Video {
		video, err := webrtc.NewTrackLocalStaticSample(
			webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8},
			"video", "videodesk",
		)
		if err != nil {
			return nil, &DeviceError{Kind: "video", Err: err}
		}
		tracks = append(tracks, video)
	}

	if c.Audio {
		audio, err := webrtc.NewTrackLocalStaticSample(
			webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus},
			"audio", "videodesk",
		)
		if err != nil {
			return nil, &DeviceError{Kind: "audio", Err: err}
		}
		tracks = append(tracks, audio)
	}

	return &Stream{tracks: tracks}, nil
}
