// Package translator implements the subtitle.translation consumer: the
// chunked, resumable translation engine that turns a source-language SRT
// file into a target-language one via an LLM, checkpointing progress after
// every chunk so a crash or redelivery resumes instead of restarting.
package translator

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// checkpoint is the on-disk resume state for one (job id, target language)
// translation. It is rewritten in full after every completed chunk.
type checkpoint struct {
	JobID            string              `json:"job_id"`
	SourcePath       string              `json:"source_path"`
	SourceLanguage   string              `json:"source_language"`
	TargetLanguage   string              `json:"target_language"`
	CompletedChunks  []int               `json:"completed_chunks"`
	Translated       map[int][]string   `json:"translated"` // chunk index -> translated texts, in chunk order
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

// matches reports whether an existing checkpoint was written for the exact
// same source file and language pair as the task now being processed; a
// checkpoint from a different source or language pair is ignored rather
// than resumed from.
func (c *checkpoint) matches(sourcePath, sourceLanguage, targetLanguage string) bool {
	return c.SourcePath == sourcePath &&
		c.SourceLanguage == sourceLanguage &&
		c.TargetLanguage == targetLanguage
}

// completedSet renders CompletedChunks as a lookup set.
func (c *checkpoint) completedSet() map[int]bool {
	set := make(map[int]bool, len(c.CompletedChunks))
	for _, idx := range c.CompletedChunks {
		set[idx] = true
	}
	return set
}

// loadCheckpoint reads a checkpoint from path. A missing file is not an
// error: it simply means there is nothing to resume.
func loadCheckpoint(path string) (*checkpoint, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("translator: read checkpoint %s: %w", path, err)
	}
	var cp checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("translator: decode checkpoint %s: %w", path, err)
	}
	return &cp, nil
}

// save rewrites the checkpoint file in full. CreatedAt is preserved across
// rewrites; UpdatedAt is refreshed to now.
func (c *checkpoint) save(path string, now time.Time) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("translator: marshal checkpoint: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("translator: create checkpoint directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("translator: write checkpoint %s: %w", path, err)
	}
	return nil
}

// deleteCheckpoint removes a checkpoint file once its job completes successfully.
// A missing file is not an error.
func deleteCheckpoint(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("translator: delete checkpoint %s: %w", path, err)
	}
	return nil
}

// flattenTranslated renders the accumulated per-chunk translations back
// into one ordered slice, assuming chunks were assembled in order 0..n-1
// with no gaps among the completed set.
func flattenTranslated(cp *checkpoint, chunkCount int) []string {
	var out []string
	for i := 0; i < chunkCount; i++ {
		out = append(out, cp.Translated[i]...)
	}
	return out
}

