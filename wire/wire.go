package wire

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

// Version is carried in every frame so the server contract can evolve.
const Version = 1

// Kind identifies a control event on the wire.
type Kind string

const (
	// client -> server
	KindHello     Kind = "hello"
	KindAudio     Kind = "audio"
	KindCommit    Kind = "commit"
	KindInterrupt Kind = "interrupt"
	KindBye       Kind = "bye"

	// server -> client
	KindReady        Kind = "ready"
	KindTurnStart    Kind = "turn_start"
	KindTurnEnd      Kind = "turn_end"
	KindInterruptAck Kind = "interrupt_ack"
	KindCaption      Kind = "caption"
	KindError        Kind = "error"

	// KindUnknown marks a control event this client does not recognize.
	// Unknown kinds are ignored, never fatal, so newer servers can add
	// events without breaking deployed clients.
	KindUnknown Kind = ""
)

// ErrMalformed wraps any decode failure. One bad frame must never kill the
// conversation; callers discard the frame and log a warning.
var ErrMalformed = errors.New("malformed frame")

// Format is the audio shape negotiated in hello/ready.
type Format struct {
	Encoding     string `json:"encoding"`
	SampleRateHz int    `json:"sample_rate_hz"`
	Channels     int    `json:"channels"`
	ChunkBytes   int    `json:"chunk_bytes"`
}

// Frame is a decoded protocol unit: either a ControlFrame or an AudioFrame.
type Frame interface {
	frameKind() Kind
}

// ControlFrame carries a non-audio event in either direction.
type ControlFrame struct {
	Kind   Kind
	Turn   int64
	Text   string // caption text or error message
	Final  bool   // caption only: text will not be revised
	Code   string // error code
	Format Format // hello/ready only
}

func (f ControlFrame) frameKind() Kind { return f.Kind }

// AudioFrame carries one PCM chunk tagged with its turn and sequence number.
type AudioFrame struct {
	Turn int64
	Seq  int64
	Data []byte
}

func (f AudioFrame) frameKind() Kind { return KindAudio }

type wireFrame struct {
	V       int     `json:"v"`
	Type    Kind    `json:"type"`
	Turn    int64   `json:"turn,omitempty"`
	Seq     *int64  `json:"seq,omitempty"`
	DataB64 string  `json:"data,omitempty"`
	Text    string  `json:"text,omitempty"`
	Final   bool    `json:"final,omitempty"`
	Code    string  `json:"code,omitempty"`
	Message string  `json:"message,omitempty"`
	Format  *Format `json:"format,omitempty"`
}

// EncodeAudio packs one PCM chunk into its wire form.
func EncodeAudio(pcm []byte, turn, seq int64) []byte {
	f := wireFrame{
		V:       Version,
		Type:    KindAudio,
		Turn:    turn,
		Seq:     &seq,
		DataB64: base64.StdEncoding.EncodeToString(pcm),
	}
	data, _ := json.Marshal(f) // fixed struct, cannot fail
	return data
}

// EncodeControl packs a control frame into its wire form.
func EncodeControl(f ControlFrame) []byte {
	wf := wireFrame{
		V:     Version,
		Type:  f.Kind,
		Turn:  f.Turn,
		Text:  f.Text,
		Final: f.Final,
		Code:  f.Code,
	}
	if f.Kind == KindError {
		wf.Message = f.Text
		wf.Text = ""
	}
	if f.Format != (Format{}) {
		fm := f.Format
		wf.Format = &fm
	}
	data, _ := json.Marshal(wf)
	return data
}

// Decode translates one wire message into a Frame. Unknown control kinds
// decode to a ControlFrame with KindUnknown. Anything structurally broken
// returns an error wrapping ErrMalformed.
func Decode(data []byte) (Frame, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: invalid json", ErrMalformed)
	}
	kind := Kind(gjson.GetBytes(data, "type").String())
	if kind == "" {
		return nil, fmt.Errorf("%w: missing type", ErrMalformed)
	}

	var wf wireFrame
	if err := json.Unmarshal(data, &wf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch kind {
	case KindAudio:
		if wf.Seq == nil {
			return nil, fmt.Errorf("%w: audio frame missing seq", ErrMalformed)
		}
		pcm, err := base64.StdEncoding.DecodeString(wf.DataB64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad audio payload: %v", ErrMalformed, err)
		}
		return AudioFrame{Turn: wf.Turn, Seq: *wf.Seq, Data: pcm}, nil
	case KindHello, KindReady:
		cf := ControlFrame{Kind: kind, Turn: wf.Turn}
		if wf.Format != nil {
			cf.Format = *wf.Format
		}
		return cf, nil
	case KindError:
		return ControlFrame{Kind: kind, Turn: wf.Turn, Code: wf.Code, Text: wf.Message}, nil
	case KindCaption:
		return ControlFrame{Kind: kind, Turn: wf.Turn, Text: wf.Text, Final: wf.Final}, nil
	case KindCommit, KindInterrupt, KindBye, KindTurnStart, KindTurnEnd, KindInterruptAck:
		return ControlFrame{Kind: kind, Turn: wf.Turn}, nil
	default:
		return ControlFrame{Kind: KindUnknown, Turn: wf.Turn}, nil
	}
}
