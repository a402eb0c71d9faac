/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package library

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dhowden/tag"
	"github.com/go-audio/wav"
	"github.com/mewkiz/flac"
	"github.com/tcolgate/mp3"
)

// songMetadata is what can be learned from the uploaded bytes.
type songMetadata struct {
	Title    string
	Artist   string
	Duration float64
}

// extractMetadata reads tags and duration from an audio file on disk.
// Untagged or unreadable files fall back to the original filename, verbatim,
// as the title with an unknown artist. Duration probing is best effort;
// failures leave it at zero.
func extractMetadata(path, originalFilename string) songMetadata {
	meta := songMetadata{
		Title:  originalFilename,
		Artist: "Unknown Artist",
	}

	if f, err := os.Open(path); err == nil {
		if tags, err := tag.ReadFrom(f); err == nil {
			if title := tags.Title(); title != "" {
				meta.Title = title
			}
			if artist := tags.Artist(); artist != "" {
				meta.Artist = artist
			}
		}
		f.Close()
	}

	if d, err := probeDuration(path, filepath.Ext(originalFilename)); err == nil {
		meta.Duration = d
	}

	return meta
}

// probeDuration computes the duration in seconds for known formats.
func probeDuration(path, ext string) (float64, error) {
	switch strings.ToLower(ext) {
	case ".mp3":
		return durationMP3(path)
	case ".flac":
		return durationFLAC(path)
	case ".wav":
		return durationWAV(path)
	default:
		return 0, errors.New("unsupported format")
	}
}

// MP3 duration by walking frames.
func durationMP3(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	dec := mp3.NewDecoder(f)
	var total time.Duration
	var skipped int
	frames := 0
	for {
		var fr mp3.Frame
		if err := dec.Decode(&fr, &skipped); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if frames == 0 {
				return 0, err
			}
			// Partial decode; use what we have
			break
		}
		total += fr.Duration()
		frames++
	}
	return total.Seconds(), nil
}

// FLAC duration via the STREAMINFO metadata block.
func durationFLAC(path string) (float64, error) {
	stream, err := flac.ParseFile(path)
	if err != nil {
		return 0, err
	}
	si := stream.Info
	if si.NSamples > 0 && si.SampleRate > 0 {
		return float64(si.NSamples) / float64(si.SampleRate), nil
	}
	return 0, errors.New("flac stream missing sample info")
}

// WAV duration from the header.
func durationWAV(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	d, err := dec.Duration()
	if err != nil {
		return 0, err
	}
	return d.Seconds(), nil
}
