package vo

import (
	"strings"
	"testing"
)

// TestNewTranscodeParams covers validation and defaulting.
func TestNewTranscodeParams(t *testing.T) {
	p, err := NewTranscodeParams("H264", "", "720p", "2000k", "")
	if err != nil {
		t.Fatalf("valid params rejected: %v", err)
	}
	if p.Codec != "h264" {
		t.Fatalf("codec = %s, want lowercased h264", p.Codec)
	}
	if p.Container != "mp4" {
		t.Fatalf("container default = %s, want mp4", p.Container)
	}
	if p.AudioBitrate != "128k" {
		t.Fatalf("audio bitrate default = %s", p.AudioBitrate)
	}
	if p.OutputExt() != ".mp4" {
		t.Fatalf("ext = %s", p.OutputExt())
	}
}

// TestNewTranscodeParamsRejections verifies every allow-list.
func TestNewTranscodeParamsRejections(t *testing.T) {
	cases := []struct {
		name                                            string
		codec, container, resolution, bitrate, audioBitrate string
	}{
		{"empty codec", "", "mp4", "", "", ""},
		{"unknown codec", "not-a-real-codec", "mp4", "", "", ""},
		{"shell injection", "h264; rm -rf /", "mp4", "", "", ""},
		{"unknown container", "h264", "avi", "", "", ""},
		{"unknown resolution", "h264", "mp4", "999p", "", ""},
		{"bad bitrate", "h264", "mp4", "", "fast", ""},
		{"bad audio bitrate", "h264", "mp4", "", "", "-b:v 1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewTranscodeParams(tc.codec, tc.container, tc.resolution, tc.bitrate, tc.audioBitrate); err == nil {
				t.Fatal("expected rejection")
			}
		})
	}
}

// TestFFmpegArgs verifies argv construction stays inside the allow-list.
func TestFFmpegArgs(t *testing.T) {
	p, err := NewTranscodeParams("h264", "mp4", "1080p", "4000k", "192k")
	if err != nil {
		t.Fatalf("params: %v", err)
	}
	args := p.FFmpegArgs("fast", 4)
	joined := strings.Join(args, " ")

	for _, want := range []string{"-c:v libx264", "-preset fast", "-s 1920x1080", "-b:v 4000k", "-c:a aac", "-b:a 192k", "-threads 4"} {
		if !strings.Contains(joined, want) {
			t.Errorf("args missing %q: %s", want, joined)
		}
	}
}

// TestFFmpegArgsCopyCodec verifies copy skips encoder options.
func TestFFmpegArgsCopyCodec(t *testing.T) {
	p, err := NewTranscodeParams("copy", "mkv", "1080p", "4000k", "")
	if err != nil {
		t.Fatalf("params: %v", err)
	}
	joined := strings.Join(p.FFmpegArgs("medium", 0), " ")
	if !strings.Contains(joined, "-c:v copy") {
		t.Fatalf("args = %s", joined)
	}
	for _, banned := range []string{"-preset", "-s ", "-b:v"} {
		if strings.Contains(joined, banned) {
			t.Errorf("copy codec must not carry %q: %s", banned, joined)
		}
	}
}

// TestFFmpegArgsWebmAudio verifies the webm audio codec switch.
func TestFFmpegArgsWebmAudio(t *testing.T) {
	p, err := NewTranscodeParams("vp9", "webm", "", "", "")
	if err != nil {
		t.Fatalf("params: %v", err)
	}
	joined := strings.Join(p.FFmpegArgs("", 0), " ")
	if !strings.Contains(joined, "-c:a libopus") {
		t.Fatalf("webm should use libopus: %s", joined)
	}
}
