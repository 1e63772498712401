package main

import (
	"path/filepath"
	"testing"

	"bindery/internal/merge"
)

func TestBuildSettingsPresetWithOverrides(t *testing.T) {
	flags := &mergeFlags{
		output:     "/tmp/book.m4b",
		bitrate:    96,
		sampleRate: 48000,
	}
	settings, err := buildSettings("audiobook", flags)
	if err != nil {
		t.Fatalf("buildSettings: %v", err)
	}
	want := merge.Settings{
		Codec:        "aac",
		BitrateKbps:  96,
		Channels:     1,
		SampleRateHz: 48000,
		OutputPath:   "/tmp/book.m4b",
	}
	if settings != want {
		t.Fatalf("settings = %+v, want %+v", settings, want)
	}
}

func TestBuildSettingsFlagPresetWins(t *testing.T) {
	flags := &mergeFlags{output: "/tmp/book.m4b", preset: "high-quality"}
	settings, err := buildSettings("audiobook", flags)
	if err != nil {
		t.Fatalf("buildSettings: %v", err)
	}
	if settings.BitrateKbps != 128 || settings.Channels != 2 {
		t.Fatalf("expected high-quality baseline, got %+v", settings)
	}
}

func TestCollectInputsRejectsMissingFile(t *testing.T) {
	if _, err := collectInputs([]string{filepath.Join(t.TempDir(), "missing.mp3")}); err == nil {
		t.Fatal("expected error for missing input")
	}
}

func TestCollectInputsRejectsEmptyDirectory(t *testing.T) {
	if _, err := collectInputs([]string{t.TempDir()}); err == nil {
		t.Fatal("expected error for directory without audio files")
	}
}

func TestBookTitle(t *testing.T) {
	if got := bookTitle("", "/books/The Stand.m4b"); got != "The Stand" {
		t.Fatalf("bookTitle = %q", got)
	}
	if got := bookTitle("Override", "/books/book.m4b"); got != "Override" {
		t.Fatalf("bookTitle = %q", got)
	}
}
