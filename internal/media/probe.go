package media

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"
)

// Prober derives duration from audio payload bytes. It understands WAV
// headers exactly and estimates MP3 duration from the first frame header,
// which is accurate for constant-bitrate files.
type Prober struct{}

// Duration implements Extractor.
func (Prober) Duration(r io.Reader, mediaType string) (int, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	if len(data) == 0 {
		return 0, fmt.Errorf("empty audio payload")
	}

	switch normalizeAudioType(mediaType) {
	case "wav":
		return wavDuration(data)
	case "mp3":
		return mp3Duration(data)
	default:
		return 0, fmt.Errorf("unsupported audio type %q", mediaType)
	}
}

func normalizeAudioType(mediaType string) string {
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))
	if idx := strings.IndexByte(mediaType, ';'); idx >= 0 {
		mediaType = strings.TrimSpace(mediaType[:idx])
	}
	switch mediaType {
	case "audio/wav", "audio/x-wav", "audio/wave", "audio/vnd.wave":
		return "wav"
	case "audio/mpeg", "audio/mp3", "audio/mpeg3":
		return "mp3"
	}
	return ""
}

// wavDuration walks RIFF chunks for the fmt byte rate and data size.
func wavDuration(data []byte) (int, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return 0, fmt.Errorf("not a wav payload")
	}

	var byteRate uint32
	var dataSize uint32
	offset := 12
	for offset+8 <= len(data) {
		chunkID := string(data[offset : offset+4])
		chunkSize := binary.LittleEndian.Uint32(data[offset+4 : offset+8])
		body := offset + 8

		switch chunkID {
		case "fmt ":
			if body+12 > len(data) {
				return 0, fmt.Errorf("truncated wav fmt chunk")
			}
			byteRate = binary.LittleEndian.Uint32(data[body+8 : body+12])
		case "data":
			dataSize = chunkSize
			// The data chunk may be the last and truncated in streams;
			// the declared size is still the duration basis.
		}

		// Chunks are word aligned.
		offset = body + int(chunkSize)
		if chunkSize%2 == 1 {
			offset++
		}
		if byteRate > 0 && dataSize > 0 {
			break
		}
	}

	if byteRate == 0 {
		return 0, fmt.Errorf("wav byte rate missing")
	}
	if dataSize == 0 {
		return 0, fmt.Errorf("wav data chunk missing")
	}
	return int((uint64(dataSize) + uint64(byteRate)/2) / uint64(byteRate)), nil
}

// Layer III bitrates in kbit/s, indexed by the frame header bitrate field.
var mp3BitratesV1 = [16]int{0, 32, 40, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320}
var mp3BitratesV2 = [16]int{0, 8, 16, 24, 32, 40, 48, 56, 64, 80, 96, 112, 128, 144, 160}

// mp3Duration finds the first frame header and estimates duration from the
// frame bitrate against the remaining payload size.
func mp3Duration(data []byte) (int, error) {
	offset := 0
	if len(data) >= 10 && string(data[0:3]) == "ID3" {
		tagSize := synchsafe(data[6:10])
		offset = 10 + tagSize
		if offset >= len(data) {
			return 0, fmt.Errorf("mp3 payload is only an id3 tag")
		}
	}

	for ; offset+4 <= len(data); offset++ {
		if data[offset] != 0xFF || data[offset+1]&0xE0 != 0xE0 {
			continue
		}
		header := data[offset : offset+4]
		versionBits := (header[1] >> 3) & 0x03
		layerBits := (header[1] >> 1) & 0x03
		bitrateIdx := header[2] >> 4

		if versionBits == 1 || layerBits != 1 || bitrateIdx == 0 || bitrateIdx == 15 {
			// Reserved version, non-Layer-III, free or bad bitrate: keep
			// scanning, this was a false sync.
			continue
		}

		var kbps int
		if versionBits == 3 {
			kbps = mp3BitratesV1[bitrateIdx]
		} else {
			kbps = mp3BitratesV2[bitrateIdx]
		}
		if kbps == 0 {
			continue
		}

		audioBytes := len(data) - offset
		return (audioBytes*8 + kbps*1000/2) / (kbps * 1000), nil
	}

	return 0, fmt.Errorf("no mp3 frame header found")
}

func synchsafe(b []byte) int {
	return int(b[0]&0x7F)<<21 | int(b[1]&0x7F)<<14 | int(b[2]&0x7F)<<7 | int(b[3]&0x7F)
}
