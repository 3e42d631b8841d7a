package vo

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// TranscodeParams is the validated transcoding option set. Construction is
// the only validation point: every field maps onto an allow-listed ffmpeg
// flag, raw request strings never reach the command line.
type TranscodeParams struct {
	Codec        string `json:"codec"`
	Container    string `json:"container"`
	Resolution   string `json:"resolution,omitempty"`
	Bitrate      string `json:"bitrate,omitempty"`
	AudioBitrate string `json:"audio_bitrate,omitempty"`
}

// videoEncoders maps request codec names to ffmpeg encoders.
var videoEncoders = map[string]string{
	"h264": "libx264",
	"hevc": "libx265",
	"h265": "libx265",
	"vp9":  "libvpx-vp9",
	"av1":  "libaom-av1",
	"copy": "copy",
}

// containerExtensions maps allowed containers to output extensions.
var containerExtensions = map[string]string{
	"mp4":  ".mp4",
	"mkv":  ".mkv",
	"webm": ".webm",
	"mov":  ".mov",
}

var resolutionSizes = map[string]string{
	"480p":  "854x480",
	"720p":  "1280x720",
	"1080p": "1920x1080",
	"1440p": "2560x1440",
	"2160p": "3840x2160",
}

// NewTranscodeParams validates and normalizes the option set.
func NewTranscodeParams(codec, container, resolution, bitrate, audioBitrate string) (*TranscodeParams, error) {
	codec = strings.ToLower(strings.TrimSpace(codec))
	if codec == "" {
		return nil, errors.New("codec is required")
	}
	if _, ok := videoEncoders[codec]; !ok {
		return nil, fmt.Errorf("codec not allowed: %s", codec)
	}

	container = strings.ToLower(strings.TrimSpace(container))
	if container == "" {
		container = "mp4"
	}
	if _, ok := containerExtensions[container]; !ok {
		return nil, fmt.Errorf("container not allowed: %s", container)
	}

	resolution = strings.TrimSpace(resolution)
	if resolution != "" {
		if _, ok := resolutionSizes[resolution]; !ok {
			return nil, fmt.Errorf("invalid resolution: %s", resolution)
		}
	}

	bitrate = strings.TrimSpace(bitrate)
	if bitrate != "" {
		if err := validateBitrate(bitrate); err != nil {
			return nil, err
		}
	}

	audioBitrate = strings.TrimSpace(audioBitrate)
	if audioBitrate == "" {
		audioBitrate = "128k"
	}
	if err := validateBitrate(audioBitrate); err != nil {
		return nil, err
	}

	return &TranscodeParams{
		Codec:        codec,
		Container:    container,
		Resolution:   resolution,
		Bitrate:      bitrate,
		AudioBitrate: audioBitrate,
	}, nil
}

// validateBitrate accepts 1000, 1000k or 2M style values.
func validateBitrate(bitrate string) error {
	num := bitrate
	switch {
	case strings.HasSuffix(bitrate, "k"), strings.HasSuffix(bitrate, "K"),
		strings.HasSuffix(bitrate, "m"), strings.HasSuffix(bitrate, "M"):
		num = bitrate[:len(bitrate)-1]
	}
	if _, err := strconv.Atoi(num); err != nil {
		return fmt.Errorf("invalid bitrate format: %s", bitrate)
	}
	return nil
}

// OutputExt returns the output file extension for the container.
func (tp *TranscodeParams) OutputExt() string {
	return containerExtensions[tp.Container]
}

// FFmpegArgs returns the encoder flag list derived from the validated
// fields. Input and output paths are appended by the executor.
func (tp *TranscodeParams) FFmpegArgs(preset string, threads int) []string {
	args := []string{
		"-c:v", videoEncoders[tp.Codec],
	}
	if tp.Codec != "copy" {
		if preset == "" {
			preset = "medium"
		}
		// libvpx/libaom use different quality knobs, preset applies to x264/x265
		if tp.Codec == "h264" || tp.Codec == "hevc" || tp.Codec == "h265" {
			args = append(args, "-preset", preset)
		}
		if size, ok := resolutionSizes[tp.Resolution]; ok {
			args = append(args, "-s", size)
		}
		if tp.Bitrate != "" {
			args = append(args, "-b:v", tp.Bitrate)
		}
	}

	if tp.Container == "webm" {
		args = append(args, "-c:a", "libopus")
	} else {
		args = append(args, "-c:a", "aac")
	}
	args = append(args, "-b:a", tp.AudioBitrate)

	if threads > 0 {
		args = append(args, "-threads", strconv.Itoa(threads))
	}

	return args
}
