package transcriber

import (
	"context"
	"fmt"
	"strings"
	"time"

	"voxentry/audio"
	"voxentry/encoder"
	"voxentry/log"
)

// Run uploads a recording in the given format ("wav" or "flac") and
// returns the trimmed transcript. Metrics are logged per call.
func Run(ctx context.Context, t Transcriber, rec *audio.Recording, format string) (string, error) {
	payload := rec.WAV
	var encodeTime time.Duration
	if format == "flac" {
		data, took, err := encoder.EncodeFLAC(rec.Samples)
		if err != nil {
			return "", err
		}
		payload, encodeTime = data, took
	} else {
		format = "wav"
	}

	result, err := t.Transcribe(ctx, payload, format)
	if err != nil {
		return "", fmt.Errorf("%s transcription: %w", t.Name(), err)
	}

	m := log.Metrics{
		AudioLengthS:     rec.Duration().Seconds(),
		RawSizeKB:        float64(len(rec.WAV)) / 1024,
		CompressedSizeKB: float64(len(payload)) / 1024,
		EncodeTimeMs:     float64(encodeTime.Milliseconds()),
	}
	var reused bool
	var proto string
	if nm := result.Metrics; nm != nil {
		m.DNSTimeMs = float64(nm.DNS.Milliseconds())
		m.TLSTimeMs = float64(nm.TLS.Milliseconds())
		m.TTFBMs = float64(nm.TTFB.Milliseconds())
		m.TotalTimeMs = float64(nm.Sum().Milliseconds())
		reused, proto = nm.ConnReused, nm.TLSProtocol
	}
	log.TranscriptionMetrics(m, format, t.Name(), reused, proto)
	if result.RateLimit != "" {
		log.Debugf("rate limit remaining %s", result.RateLimit)
	}

	return strings.TrimSpace(result.Text), nil
}
