package archive

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// RunMeta describes one replicate of a batch.
type RunMeta struct {
	Index    int     `json:"index"`
	RunID    string  `json:"run_id"`
	Seed     int64   `json:"seed"`
	Status   string  `json:"status"`
	Error    string  `json:"error,omitempty"`
	EndTime  float64 `json:"end_time"`
	Agents   int     `json:"agents"`
	Snapshot string  `json:"snapshot,omitempty"`
}

type BatchMeta struct {
	BatchID      string    `json:"batch_id"`
	ParamsDigest string    `json:"params_digest"`
	BaseSeed     int64     `json:"base_seed"`
	CreatedAt    string    `json:"created_at"`
	Runs         []RunMeta `json:"runs"`
}

// ArchiveBatch copies every run's final snapshot into
// `dataDir/archives/batch_<id>/` and writes meta.json next to them. Runs
// without a snapshot are listed but not copied. It returns the archive
// directory.
func ArchiveBatch(dataDir string, meta BatchMeta) (string, error) {
	if meta.BatchID == "" {
		return "", fmt.Errorf("archive: empty batch id")
	}
	dir := filepath.Join(dataDir, "archives", "batch_"+meta.BatchID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	if meta.CreatedAt == "" {
		meta.CreatedAt = time.Now().UTC().Format(time.RFC3339Nano)
	}
	for i, r := range meta.Runs {
		if r.Snapshot == "" {
			continue
		}
		dst := filepath.Join(dir, fmt.Sprintf("%03d-%s", r.Index, filepath.Base(r.Snapshot)))
		if err := copyFile(r.Snapshot, dst); err != nil {
			return "", fmt.Errorf("archive run %s: %w", r.RunID, err)
		}
		meta.Runs[i].Snapshot = filepath.Base(dst)
	}
	b, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(dir, "meta.json"), b, 0o644); err != nil {
		return "", err
	}
	return dir, nil
}

func ReadBatchMeta(dir string) (BatchMeta, error) {
	var meta BatchMeta
	b, err := os.ReadFile(filepath.Join(dir, "meta.json"))
	if err != nil {
		return meta, err
	}
	err = json.Unmarshal(b, &meta)
	return meta, err
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
