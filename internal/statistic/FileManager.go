package statistic

import (
	"fmt"
	"os"
	"streamwatch/internal/providers"
	"streamwatch/internal/statistic/interfaces"
	"streamwatch/internal/storage"

	json "github.com/goccy/go-json"
)

// FileManager writes a store snapshot to disk as zstd-compressed JSON and
// reads it back.
type FileManager struct {
	store      storage.Snapshotter
	compressor interfaces.CompressorInterface
	logger     providers.Logger
}

func NewFileManager(compressor interfaces.CompressorInterface, store storage.Snapshotter, logger providers.Logger) *FileManager {
	return &FileManager{
		compressor: compressor,
		store:      store,
		logger:     logger,
	}
}

func (f *FileManager) SaveToFile(fileName string) error {
	snapshot := f.store.Snapshot()

	jsonData, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	data, err := f.compressor.Compress(jsonData)
	if err != nil {
		return err
	}

	tmpFile := fileName + ".tmp"
	file, err := os.Create(tmpFile)
	if err != nil {
		return err
	}

	_, err = file.Write(data)
	if err != nil {
		file.Close()
		os.Remove(tmpFile)
		return err
	}

	if err = file.Sync(); err != nil {
		file.Close()
		os.Remove(tmpFile)
		return err
	}

	if err = file.Close(); err != nil {
		os.Remove(tmpFile)
		return err
	}

	return os.Rename(tmpFile, fileName)
}

func (f *FileManager) Close() {
	f.compressor.Close()
}

// LoadFromFile restores the snapshot at fileName. A missing file is not an
// error; the store simply starts empty.
func (f *FileManager) LoadFromFile(fileName string) error {
	data, err := os.ReadFile(fileName)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	decompressedData, err := f.compressor.Decompress(data)
	if err != nil {
		return err
	}

	var snapshot storage.Snapshot
	if err := json.Unmarshal(decompressedData, &snapshot); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	if snapshot.Version == 0 {
		f.logger.Warnf(providers.TypeApp, "Snapshot %s has no version, assuming %d", fileName, storage.SnapshotVersion)
		snapshot.Version = storage.SnapshotVersion
	}
	if err := f.store.LoadSnapshot(&snapshot); err != nil {
		return err
	}

	f.logger.Infof(providers.TypeApp, "Restored %d groups, %d channels and %d samples from %s",
		len(snapshot.Groups), len(snapshot.Channels), len(snapshot.Samples), fileName)
	return nil
}
