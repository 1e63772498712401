// Package medialist inspects the audio files queued for a merge. It
// combines ffprobe stream data with embedded tags so the pipeline can
// size its progress estimates, pick an output sample rate, and carry
// book metadata into the merged file.
package medialist

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/dhowden/tag"

	"bindery/internal/media/ffprobe"
)

// ErrNoAudioStream is returned when an input file contains no audio.
var ErrNoAudioStream = errors.New("file contains no audio stream")

// supportedSampleRates are the output rates the encoder accepts,
// ascending.
var supportedSampleRates = []int{22050, 32000, 44100, 48000}

// FileInfo describes one input file.
type FileInfo struct {
	Path            string
	SizeBytes       int64
	DurationSeconds float64
	SampleRateHz    int
	Channels        int
	Codec           string

	Title  string
	Artist string
	Album  string
	Track  int
}

// Analysis aggregates the inspected inputs in merge order.
type Analysis struct {
	Files                []FileInfo
	TotalDurationSeconds float64
	TotalSizeBytes       int64
}

// Analyze inspects every path in order. onFile, when non-nil, is called
// after each file with the number inspected so far and the total count.
// The first unreadable or audio-free file aborts the whole analysis.
func Analyze(ctx context.Context, probeBinary string, paths []string, onFile func(done, total int)) (Analysis, error) {
	analysis := Analysis{Files: make([]FileInfo, 0, len(paths))}
	if len(paths) == 0 {
		return analysis, errors.New("no input files")
	}

	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			return Analysis{}, err
		}
		info, err := inspectFile(ctx, probeBinary, path)
		if err != nil {
			return Analysis{}, fmt.Errorf("analyze %q: %w", path, err)
		}
		analysis.Files = append(analysis.Files, info)
		analysis.TotalDurationSeconds += info.DurationSeconds
		analysis.TotalSizeBytes += info.SizeBytes
		if onFile != nil {
			onFile(i+1, len(paths))
		}
	}
	return analysis, nil
}

func inspectFile(ctx context.Context, probeBinary, path string) (FileInfo, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return FileInfo{}, err
	}
	if stat.IsDir() {
		return FileInfo{}, errors.New("path is a directory")
	}

	probed, err := ffprobe.Inspect(ctx, probeBinary, path)
	if err != nil {
		return FileInfo{}, err
	}
	audio, ok := probed.AudioStream()
	if !ok {
		return FileInfo{}, ErrNoAudioStream
	}

	info := FileInfo{
		Path:            path,
		SizeBytes:       stat.Size(),
		DurationSeconds: probed.DurationSeconds(),
		SampleRateHz:    audio.SampleRateHz(),
		Channels:        audio.Channels,
		Codec:           audio.CodecName,
	}
	readTags(path, &info)
	return info, nil
}

// readTags fills in embedded metadata. Tag failures are not errors;
// plenty of real-world audiobook files carry no tags at all.
func readTags(path string, info *FileInfo) {
	file, err := os.Open(path)
	if err != nil {
		return
	}
	defer file.Close()

	meta, err := tag.ReadFrom(file)
	if err != nil {
		return
	}
	info.Title = strings.TrimSpace(meta.Title())
	info.Artist = strings.TrimSpace(meta.Artist())
	info.Album = strings.TrimSpace(meta.Album())
	info.Track, _ = meta.Track()
}

// DominantSampleRate picks the output sample rate for "auto" mode: the
// rate most common among the inputs, snapped to the nearest supported
// rate. Ties go to the higher rate so auto mode never downsamples the
// majority of inputs.
func (a Analysis) DominantSampleRate() int {
	counts := make(map[int]int)
	for _, file := range a.Files {
		if file.SampleRateHz > 0 {
			counts[file.SampleRateHz]++
		}
	}
	if len(counts) == 0 {
		return 44100
	}

	best, bestCount := 0, 0
	for rate, count := range counts {
		if count > bestCount || (count == bestCount && rate > best) {
			best, bestCount = rate, count
		}
	}
	return nearestSupportedRate(best)
}

func nearestSupportedRate(rate int) int {
	nearest := supportedSampleRates[0]
	for _, candidate := range supportedSampleRates {
		if abs(candidate-rate) < abs(nearest-rate) {
			nearest = candidate
		}
	}
	return nearest
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// SortPaths orders input paths case-insensitively by name, the order a
// listener expects chapter files to play in.
func SortPaths(paths []string) {
	sort.SliceStable(paths, func(i, j int) bool {
		return strings.ToLower(paths[i]) < strings.ToLower(paths[j])
	})
}
