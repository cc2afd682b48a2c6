package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"wordhero/internal/models"
	"wordhero/internal/repository"
)

// CacheExport is a JSON dump of the local cache
type CacheExport struct {
	Version       string                 `json:"version"`
	ExportedAt    time.Time              `json:"exported_at"`
	SchemaVersion int                    `json:"schema_version"`
	Degraded      bool                   `json:"degraded"`
	WordList      *models.WordListMeta   `json:"word_list"`
	Words         []models.Word          `json:"words,omitempty"`
	Pending       []models.PendingResult `json:"pending"`
	Snapshots     []SnapshotExport       `json:"snapshots"`
	UsedWords     map[string][]string    `json:"used_words"`
}

// SnapshotExport is a cached account with its variant tag
type SnapshotExport struct {
	UserID      string          `json:"user_id"`
	LastUpdated int64           `json:"last_updated"`
	Account     json.RawMessage `json:"account"`
}

// ExportService dumps the local cache for inspection
type ExportService struct {
	cache *repository.LocalCache
}

// NewExportService creates a new export service
func NewExportService(cache *repository.LocalCache) *ExportService {
	return &ExportService{cache: cache}
}

// Export writes the cache contents as indented JSON. Words are included when withWords is set.
func (s *ExportService) Export(ctx context.Context, w io.Writer, withWords bool) (*CacheExport, error) {
	export := &CacheExport{
		Version:    "1.0",
		ExportedAt: time.Now(),
		Degraded:   s.cache.Degraded(),
		UsedWords:  map[string][]string{},
	}

	var err error
	if export.SchemaVersion, err = s.cache.SchemaVersion(ctx); err != nil {
		return nil, fmt.Errorf("failed to read schema version: %w", err)
	}
	if export.WordList, err = s.cache.WordListMeta(ctx); err != nil {
		return nil, err
	}
	if withWords {
		if export.Words, err = s.cache.LoadWordList(ctx); err != nil {
			return nil, err
		}
	}
	if export.Pending, err = s.cache.ListPendingResults(ctx); err != nil {
		return nil, err
	}

	snapshots, err := s.cache.ListUserSnapshots(ctx)
	if err != nil {
		return nil, err
	}
	export.Snapshots = make([]SnapshotExport, 0, len(snapshots))
	for _, snap := range snapshots {
		data, err := models.MarshalAccount(snap.Account)
		if err != nil {
			return nil, fmt.Errorf("failed to encode snapshot of %s: %w", snap.UserID, err)
		}
		export.Snapshots = append(export.Snapshots, SnapshotExport{
			UserID:      snap.UserID,
			LastUpdated: snap.LastUpdated,
			Account:     data,
		})

		used, err := s.cache.GetUsedWordIDs(ctx, snap.UserID)
		if err != nil {
			return nil, err
		}
		export.UsedWords[snap.UserID] = used
	}
	for _, p := range export.Pending {
		if _, ok := export.UsedWords[p.UserID]; ok {
			continue
		}
		used, err := s.cache.GetUsedWordIDs(ctx, p.UserID)
		if err != nil {
			return nil, err
		}
		export.UsedWords[p.UserID] = used
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(export); err != nil {
		return nil, fmt.Errorf("failed to encode export: %w", err)
	}
	return export, nil
}

// ExportToFile writes the export to outputPath
func (s *ExportService) ExportToFile(ctx context.Context, outputPath string, withWords bool) error {
	log.Println("Starting cache export...")

	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	export, err := s.Export(ctx, file, withWords)
	if err != nil {
		return err
	}

	words := 0
	if export.WordList != nil {
		words = export.WordList.Count
	}
	log.Printf("Cache exported successfully to %s", outputPath)
	log.Printf("Exported: %d cached words, %d pending results, %d snapshots",
		words, len(export.Pending), len(export.Snapshots))
	return nil
}
