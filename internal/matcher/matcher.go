// Package matcher wraps the NBIS mindtct/bozorth3 command-line tools as
// subprocesses and turns them into an identification engine over a
// fingerprint gallery.
package matcher

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ElectronicCats/uvc-fingerprint-server/internal/config"
	"github.com/ElectronicCats/uvc-fingerprint-server/internal/metrics"
	"github.com/ElectronicCats/uvc-fingerprint-server/internal/store"
	"github.com/ElectronicCats/uvc-fingerprint-server/log"
	"github.com/ElectronicCats/uvc-fingerprint-server/utils/parallel"
)

const (
	extractTimeout = 10 * time.Second
	matchTimeout   = 5 * time.Second
	defaultQuality = 50
)

// Matcher extracts minutiae templates and runs 1:N identification over a
// gallery using the external mindtct/bozorth3 binaries.
type Matcher struct {
	mindtctPath    string
	bozorth3Path   string
	matchThreshold int
	parallel       bool
	logger         *log.Logger
}

// New builds a Matcher and verifies both NBIS binaries exist and are
// executable; per the spec a missing tool is a startup failure, never a
// per-call one.
func New(cfg *config.FingerprintConfig, parallelMatch bool) (*Matcher, error) {
	for _, path := range []string{cfg.MindtctPath, cfg.Bozorth3Path} {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("matcher: NBIS tool not found: %s: %w", path, err)
		}
		if info.Mode()&0111 == 0 {
			return nil, fmt.Errorf("matcher: NBIS tool not executable: %s", path)
		}
	}
	return &Matcher{
		mindtctPath:    cfg.MindtctPath,
		bozorth3Path:   cfg.Bozorth3Path,
		matchThreshold: cfg.MatchThreshold,
		parallel:       parallelMatch,
		logger:         log.New("matcher"),
	}, nil
}

// ExtractFeatures runs mindtct against imagePath, producing a sibling .xyt
// template file and a quality score. On any failure (non-zero exit, missing
// XYT, timeout) it reports ok=false and quality=0, never an error: the
// caller treats extraction failure as a structured outcome, not a fault.
func (m *Matcher) ExtractFeatures(ctx context.Context, imagePath string) (ok bool, xytPath string, quality int) {
	xytPath = strings.TrimSuffix(imagePath, filepath.Ext(imagePath)) + ".xyt"
	outputStem := strings.TrimSuffix(xytPath, ".xyt")

	ctx, cancel := context.WithTimeout(ctx, extractTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, m.mindtctPath, imagePath, outputStem)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		m.logger.Warn("mindtct failed", map[string]interface{}{"error": err.Error(), "stderr": stderr.String()})
		return false, "", 0
	}
	if _, err := os.Stat(xytPath); err != nil {
		m.logger.Warn("mindtct produced no xyt file", map[string]interface{}{"xyt_path": xytPath})
		return false, "", 0
	}
	return true, xytPath, parseQuality(stdout.String())
}

// Match scores a probe template against a single gallery template via
// bozorth3. Any failure (non-zero exit, timeout, unparseable output) yields
// score 0 rather than an error.
func (m *Matcher) Match(ctx context.Context, probeXYT, galleryXYT string) int {
	ctx, cancel := context.WithTimeout(ctx, matchTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, m.bozorth3Path, probeXYT, galleryXYT)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		m.logger.Warn("bozorth3 failed", map[string]interface{}{"error": err.Error(), "stderr": stderr.String()})
		return 0
	}
	score, err := strconv.Atoi(strings.TrimSpace(stdout.String()))
	if err != nil {
		m.logger.Warn("bozorth3 output unparseable", map[string]interface{}{"output": stdout.String()})
		return 0
	}
	return score
}

// IdentifyResult is the outcome of a 1:N identification pass.
type IdentifyResult struct {
	TemplateID int64
	UserID     int64
	Score      int
}

// Identify scores probeXYT against every gallery entry, always scoring the
// full gallery (no short-circuiting), and returns the highest-scoring entry
// if it clears the configured match threshold. Ties favor the first entry
// reached, so callers should pass gallery already ordered best-quality-first
// (Store.GetAllTemplates does this).
func (m *Matcher) Identify(ctx context.Context, probeXYT string, gallery []store.GalleryEntry) (*IdentifyResult, bool) {
	if len(gallery) == 0 {
		return nil, false
	}

	start := time.Now()
	defer func() { metrics.MatchLatency.Observe(time.Since(start).Seconds()) }()

	scores := make([]int, len(gallery))
	if m.parallel {
		_ = parallel.ForInt(len(gallery), func(i int) error {
			scores[i] = m.Match(ctx, probeXYT, gallery[i].Path)
			return nil
		})
	} else {
		for i := range gallery {
			scores[i] = m.Match(ctx, probeXYT, gallery[i].Path)
		}
	}

	bestIdx := -1
	bestScore := -1
	for i, score := range scores {
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}

	m.logger.Info("identification pass complete", map[string]interface{}{
		"gallery_size": len(gallery), "best_score": bestScore, "threshold": m.matchThreshold,
	})

	if bestIdx < 0 || bestScore < m.matchThreshold {
		return nil, false
	}
	return &IdentifyResult{
		TemplateID: gallery[bestIdx].TemplateID,
		UserID:     gallery[bestIdx].UserID,
		Score:      bestScore,
	}, true
}

// parseQuality scans mindtct's stdout for a line containing "Quality" or
// "NFIQ" and returns the first integer token on it, defaulting to 50 when
// no such line parses cleanly.
func parseQuality(output string) int {
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.Contains(line, "Quality") && !strings.Contains(line, "NFIQ") {
			continue
		}
		for _, field := range strings.Fields(line) {
			if n, err := strconv.Atoi(field); err == nil {
				return n
			}
		}
	}
	return defaultQuality
}
