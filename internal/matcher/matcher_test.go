package matcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ElectronicCats/uvc-fingerprint-server/internal/config"
	"github.com/ElectronicCats/uvc-fingerprint-server/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeFakeTool drops an executable shell script at path.
func writeFakeTool(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
}

func newTestMatcher(t *testing.T, mindtctBody, bozorth3Body string, threshold int) *Matcher {
	t.Helper()
	dir := t.TempDir()
	mindtctPath := filepath.Join(dir, "mindtct")
	bozorth3Path := filepath.Join(dir, "bozorth3")
	writeFakeTool(t, mindtctPath, mindtctBody)
	writeFakeTool(t, bozorth3Path, bozorth3Body)

	m, err := New(&config.FingerprintConfig{
		MindtctPath:    mindtctPath,
		Bozorth3Path:   bozorth3Path,
		MatchThreshold: threshold,
	}, false)
	require.NoError(t, err)
	return m
}

func TestNewMissingBinary(t *testing.T) {
	_, err := New(&config.FingerprintConfig{
		MindtctPath:  "/nonexistent/mindtct",
		Bozorth3Path: "/nonexistent/bozorth3",
	}, false)
	assert.Error(t, err)
}

func TestExtractFeaturesSuccess(t *testing.T) {
	m := newTestMatcher(t, `
touch "$2.xyt"
echo "Quality: 72"
`, `echo 0`, 40)

	dir := t.TempDir()
	image := filepath.Join(dir, "probe.png")
	require.NoError(t, os.WriteFile(image, []byte("fake"), 0o644))

	ok, xytPath, quality := m.ExtractFeatures(context.Background(), image)
	assert.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "probe.xyt"), xytPath)
	assert.Equal(t, 72, quality)
}

func TestExtractFeaturesDefaultQualityWhenUnparseable(t *testing.T) {
	m := newTestMatcher(t, `
touch "$2.xyt"
echo "no useful output here"
`, `echo 0`, 40)

	dir := t.TempDir()
	image := filepath.Join(dir, "probe.png")
	require.NoError(t, os.WriteFile(image, []byte("fake"), 0o644))

	ok, _, quality := m.ExtractFeatures(context.Background(), image)
	assert.True(t, ok)
	assert.Equal(t, defaultQuality, quality)
}

func TestExtractFeaturesNonzeroExit(t *testing.T) {
	m := newTestMatcher(t, `exit 1`, `echo 0`, 40)

	dir := t.TempDir()
	image := filepath.Join(dir, "probe.png")
	require.NoError(t, os.WriteFile(image, []byte("fake"), 0o644))

	ok, xytPath, quality := m.ExtractFeatures(context.Background(), image)
	assert.False(t, ok)
	assert.Empty(t, xytPath)
	assert.Zero(t, quality)
}

func TestMatchParsesScore(t *testing.T) {
	m := newTestMatcher(t, `true`, `echo 55`, 40)
	score := m.Match(context.Background(), "probe.xyt", "gallery.xyt")
	assert.Equal(t, 55, score)
}

func TestMatchFailureYieldsZero(t *testing.T) {
	m := newTestMatcher(t, `true`, `exit 1`, 40)
	score := m.Match(context.Background(), "probe.xyt", "gallery.xyt")
	assert.Zero(t, score)
}

func TestIdentifyReturnsBestAboveThreshold(t *testing.T) {
	// bozorth3 fixture: score depends on which gallery file is passed as $2.
	m := newTestMatcher(t, `true`, `
case "$2" in
  *good*) echo 55 ;;
  *) echo 10 ;;
esac
`, 40)

	dir := t.TempDir()
	good := filepath.Join(dir, "good.xyt")
	bad := filepath.Join(dir, "bad.xyt")

	gallery := []store.GalleryEntry{
		{TemplateID: 1, UserID: 10, Path: bad},
		{TemplateID: 2, UserID: 20, Path: good},
	}

	result, matched := m.Identify(context.Background(), filepath.Join(dir, "probe.xyt"), gallery)
	require.True(t, matched)
	assert.Equal(t, int64(2), result.TemplateID)
	assert.Equal(t, int64(20), result.UserID)
	assert.Equal(t, 55, result.Score)
}

func TestIdentifyNoMatchBelowThreshold(t *testing.T) {
	m := newTestMatcher(t, `true`, `echo 10`, 40)

	dir := t.TempDir()
	gallery := []store.GalleryEntry{
		{TemplateID: 1, UserID: 10, Path: filepath.Join(dir, "a.xyt")},
	}

	_, matched := m.Identify(context.Background(), filepath.Join(dir, "probe.xyt"), gallery)
	assert.False(t, matched)
}

func TestIdentifyEmptyGallery(t *testing.T) {
	m := newTestMatcher(t, `true`, `echo 99`, 40)
	_, matched := m.Identify(context.Background(), "probe.xyt", nil)
	assert.False(t, matched)
}

func TestIdentifyScoresEveryEntryNoShortCircuit(t *testing.T) {
	// Every gallery entry must be scored even once a high score is seen,
	// since ties favor the first-reached highest score, not the first
	// entry to clear the threshold.
	calls := filepath.Join(t.TempDir(), "calls")
	m := newTestMatcher(t, `true`, `
echo "$2" >> `+calls+`
echo 90
`, 40)

	dir := t.TempDir()
	gallery := []store.GalleryEntry{
		{TemplateID: 1, UserID: 1, Path: filepath.Join(dir, "a.xyt")},
		{TemplateID: 2, UserID: 2, Path: filepath.Join(dir, "b.xyt")},
		{TemplateID: 3, UserID: 3, Path: filepath.Join(dir, "c.xyt")},
	}
	_, matched := m.Identify(context.Background(), filepath.Join(dir, "probe.xyt"), gallery)
	assert.True(t, matched)

	data, err := os.ReadFile(calls)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 3)
}
