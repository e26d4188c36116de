package audio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/youpy/go-wav"
)

const formatPCM = 1

// Chunk is one fixed-length slice of the source audio written to its own WAV file.
type Chunk struct {
	Index int
	Path  string
	Start time.Duration
	End   time.Duration
}

// Split cuts a PCM WAV file into consecutive chunks of the given length and
// writes them to outDir. The last chunk may be shorter. Chunk ends are capped
// at the whole-second length of the audio, so a trailing partial second gets
// End == Start.
func Split(wavPath string, chunk time.Duration, outDir string) ([]Chunk, error) {
	if chunk <= 0 {
		return nil, errors.New("chunk duration must be > 0")
	}
	f, err := os.Open(wavPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := wav.NewReader(f)
	format, err := r.Format()
	if err != nil {
		return nil, fmt.Errorf("read wav format: %w", err)
	}
	if format.AudioFormat != formatPCM {
		return nil, fmt.Errorf("unsupported wav encoding %d (want PCM)", format.AudioFormat)
	}
	perChunk := int(int64(format.SampleRate) * int64(chunk) / int64(time.Second))
	if perChunk <= 0 {
		return nil, fmt.Errorf("chunk %s is shorter than one sample", chunk)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, err
	}

	var (
		out   []Chunk
		total int
	)
	for i := 0; ; i++ {
		samples, err := readSamples(r, perChunk)
		if err != nil {
			return nil, fmt.Errorf("read wav samples: %w", err)
		}
		if len(samples) == 0 {
			break
		}
		path := filepath.Join(outDir, fmt.Sprintf("chunk_%05d.wav", i))
		if err := writeChunk(path, samples, format); err != nil {
			return nil, err
		}
		total += len(samples)
		out = append(out, Chunk{
			Index: i,
			Path:  path,
			Start: time.Duration(i) * chunk,
			End:   time.Duration(i+1) * chunk,
		})
		if len(samples) < perChunk {
			break
		}
	}

	whole := time.Duration(total/int(format.SampleRate)) * time.Second
	for i := range out {
		if out[i].End > whole {
			out[i].End = whole
		}
		if out[i].End < out[i].Start {
			out[i].End = out[i].Start
		}
	}
	return out, nil
}

// readSamples reads up to n samples, stopping early only at end of data.
func readSamples(r *wav.Reader, n int) ([]wav.Sample, error) {
	out := make([]wav.Sample, 0, n)
	for len(out) < n {
		s, err := r.ReadSamples(uint32(n - len(out)))
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(s) == 0 {
			break
		}
		out = append(out, s...)
	}
	return out, nil
}

func writeChunk(path string, samples []wav.Sample, format *wav.WavFormat) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := wav.NewWriter(f, uint32(len(samples)), format.NumChannels, format.SampleRate, format.BitsPerSample)
	if err := w.WriteSamples(samples); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}
