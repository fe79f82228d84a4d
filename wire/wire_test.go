package wire

import (
	"bytes"
	"errors"
	"testing"

	"github.com/tidwall/gjson"
)

func TestAudioRoundTrip(t *testing.T) {
	pcm := []byte{0x01, 0x02, 0x03, 0x04}
	data := EncodeAudio(pcm, 3, 17)

	frame, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	af, ok := frame.(AudioFrame)
	if !ok {
		t.Fatalf("expected AudioFrame, got %T", frame)
	}
	if af.Turn != 3 || af.Seq != 17 {
		t.Errorf("turn/seq = %d/%d, want 3/17", af.Turn, af.Seq)
	}
	if !bytes.Equal(af.Data, pcm) {
		t.Errorf("pcm = %v, want %v", af.Data, pcm)
	}
}

func TestAudioSeqZeroSurvives(t *testing.T) {
	// seq 0 is a real sequence number, not an absent field
	data := EncodeAudio([]byte{0}, 1, 0)
	frame, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if frame.(AudioFrame).Seq != 0 {
		t.Errorf("seq = %d, want 0", frame.(AudioFrame).Seq)
	}
}

func TestHelloCarriesFormat(t *testing.T) {
	f := Format{Encoding: "pcm16", SampleRateHz: 16000, Channels: 1, ChunkBytes: 1024}
	data := EncodeControl(ControlFrame{Kind: KindHello, Format: f})

	frame, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	cf := frame.(ControlFrame)
	if cf.Kind != KindHello {
		t.Fatalf("kind = %q", cf.Kind)
	}
	if cf.Format != f {
		t.Errorf("format = %+v, want %+v", cf.Format, f)
	}
}

func TestErrorFrameUsesMessageField(t *testing.T) {
	data := EncodeControl(ControlFrame{Kind: KindError, Code: "overloaded", Text: "try later"})
	if !gjson.GetBytes(data, "message").Exists() {
		t.Fatalf("error text should travel as message, got %s", data)
	}

	frame, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	cf := frame.(ControlFrame)
	if cf.Code != "overloaded" || cf.Text != "try later" {
		t.Errorf("got %+v", cf)
	}
}

func TestCaptionFinal(t *testing.T) {
	data := EncodeControl(ControlFrame{Kind: KindCaption, Turn: 2, Text: "hello", Final: true})
	frame, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	cf := frame.(ControlFrame)
	if cf.Text != "hello" || !cf.Final {
		t.Errorf("got %+v", cf)
	}
}

func TestDecodeMalformed(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"not json", `{{{`},
		{"missing type", `{"v":1,"turn":1}`},
		{"audio without seq", `{"v":1,"type":"audio","turn":1,"data":"AAAA"}`},
		{"bad base64", `{"v":1,"type":"audio","turn":1,"seq":0,"data":"!!!"}`},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := Decode([]byte(c.data))
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("err = %v, want ErrMalformed", err)
			}
		})
	}
}

func TestDecodeUnknownKind(t *testing.T) {
	frame, err := Decode([]byte(`{"v":2,"type":"mood_lighting","turn":9}`))
	if err != nil {
		t.Fatal(err)
	}
	cf := frame.(ControlFrame)
	if cf.Kind != KindUnknown {
		t.Errorf("kind = %q, want unknown", cf.Kind)
	}
	if cf.Turn != 9 {
		t.Errorf("turn = %d, want 9", cf.Turn)
	}
}

func TestVersionIsStamped(t *testing.T) {
	data := EncodeControl(ControlFrame{Kind: KindCommit, Turn: 1})
	if v := gjson.GetBytes(data, "v").Int(); v != Version {
		t.Errorf("v = %d, want %d", v, Version)
	}
}
