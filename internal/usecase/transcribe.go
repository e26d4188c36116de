package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/forPelevin/tamilshorts/internal/audio"
	"github.com/forPelevin/tamilshorts/internal/domain/transcript"
	"github.com/forPelevin/tamilshorts/internal/types"
)

const defaultASRWorkers = 2

// transcribe runs ASR over chunks with a bounded number of workers. Lines
// come back in chunk order; the first failure cancels the rest.
func (u Usecase) transcribe(ctx context.Context, chunks []audio.Chunk, workers int, logf func(string, ...any)) ([]types.TranscriptLine, error) {
	if workers <= 0 {
		workers = defaultASRWorkers
	}
	if workers > len(chunks) {
		workers = len(chunks)
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make([]types.TranscriptLine, len(chunks))
	jobs := make(chan int)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
		done     int
	)
	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
			cancel()
		}
		mu.Unlock()
	}

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				c := chunks[i]
				prefix := strings.TrimSuffix(c.Path, ".wav")
				text, err := u.d.ASR.Transcribe(ctx, c.Path, prefix)
				if err != nil {
					fail(fmt.Errorf("transcribe chunk %d: %w", c.Index, err))
					continue
				}
				lines[i] = types.TranscriptLine{
					StartTime: transcript.FormatHMS(c.Start),
					EndTime:   transcript.FormatHMS(c.End),
					Text:      strings.TrimSpace(text),
				}
				mu.Lock()
				done++
				if done%30 == 0 || done == len(chunks) {
					logf("transcribed %d/%d chunks", done, len(chunks))
				}
				mu.Unlock()
			}
		}()
	}

feed:
	for i := range chunks {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}
