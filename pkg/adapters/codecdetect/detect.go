// Package codecdetect maps MP4 sample entries to codec families.
package codecdetect

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/Eyevinn/mp4ff/mp4"
)

// Codec represents a video codec family.
type Codec string

const (
	CodecH264    Codec = "h264"
	CodecHEVC    Codec = "hevc"
	CodecAV1     Codec = "av1"
	CodecMJPEG   Codec = "mjpeg"
	CodecUnknown Codec = "unknown"
)

// FromSampleEntry returns the codec family of an MP4 sample entry name
// such as "avc1" or "jpeg".
func FromSampleEntry(name string) Codec {
	switch name {
	case "avc1", "avc3":
		return CodecH264
	case "hvc1", "hev1":
		return CodecHEVC
	case "av01":
		return CodecAV1
	case "jpeg", "mjpa", "mjpb", "mjp2":
		return CodecMJPEG
	default:
		return CodecUnknown
	}
}

// DetectFromFile detects the codec of the first video track in an MP4 file.
func DetectFromFile(path string) (Codec, error) {
	f, err := os.Open(path)
	if err != nil {
		return CodecUnknown, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	return DetectFromReader(f)
}

// DetectFromReader detects the codec from an io.ReadSeeker and rewinds it.
func DetectFromReader(reader io.ReadSeeker) (Codec, error) {
	mp4File, err := mp4.DecodeFile(reader)
	if err != nil {
		return CodecUnknown, fmt.Errorf("decode mp4: %w", err)
	}

	if _, err := reader.Seek(0, io.SeekStart); err != nil {
		return CodecUnknown, fmt.Errorf("seek: %w", err)
	}

	return detectFromMP4File(mp4File)
}

// DetectFromBytes detects the codec from MP4 data bytes.
func DetectFromBytes(data []byte) (Codec, error) {
	return DetectFromReader(bytes.NewReader(data))
}

func detectFromMP4File(mp4File *mp4.File) (Codec, error) {
	moov := mp4File.Moov
	if moov == nil && mp4File.Init != nil {
		moov = mp4File.Init.Moov
	}
	if moov == nil {
		return CodecUnknown, fmt.Errorf("no moov box found")
	}

	for _, trak := range moov.Traks {
		if name := SampleEntry(trak); name != "" && IsVideo(trak) {
			return FromSampleEntry(name), nil
		}
	}

	return CodecUnknown, fmt.Errorf("no video track found")
}

// IsVideo reports whether trak is a video track.
func IsVideo(trak *mp4.TrakBox) bool {
	return trak.Mdia != nil && trak.Mdia.Hdlr != nil && trak.Mdia.Hdlr.HandlerType == "vide"
}

// SampleEntry returns the name of the first sample entry of trak, or "" if
// the track has no sample description.
func SampleEntry(trak *mp4.TrakBox) string {
	if trak.Mdia == nil || trak.Mdia.Minf == nil || trak.Mdia.Minf.Stbl == nil || trak.Mdia.Minf.Stbl.Stsd == nil {
		return ""
	}
	for _, child := range trak.Mdia.Minf.Stbl.Stsd.Children {
		return child.Type()
	}
	return ""
}
