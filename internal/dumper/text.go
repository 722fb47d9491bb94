package dumper

import (
	"Go2NetBandwidth/internal/config"
	"Go2NetBandwidth/internal/factory"
	"Go2NetBandwidth/internal/model"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

const snapshotDirLayout = "2006-01-02_15-04-05"

func init() {
	factory.RegisterDumper("text", func(_ *config.Config, def config.DumperDef) (model.Dumper, error) {
		if def.Text.RootPath == "" {
			return nil, fmt.Errorf("text.root_path is required")
		}
		return NewTextDumper(def.Text.RootPath), nil
	})
}

// TextDumper writes each snapshot to <root>/<timestamp>/hosts.txt in the console line format.
type TextDumper struct {
	rootPath string
}

// NewTextDumper creates a new text dumper rooted at rootPath.
func NewTextDumper(rootPath string) *TextDumper {
	return &TextDumper{rootPath: rootPath}
}

func (d *TextDumper) Name() string {
	return "text"
}

func (d *TextDumper) Emit(snapshot *model.Snapshot) error {
	snapshotDir := filepath.Join(d.rootPath, snapshot.Timestamp.Format(snapshotDirLayout))
	if err := os.MkdirAll(snapshotDir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	filePath := filepath.Join(snapshotDir, "hosts.txt")
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create snapshot file '%s': %w", filePath, err)
	}
	defer file.Close()

	if err := WriteSnapshot(file, snapshot); err != nil {
		return err
	}

	log.Printf("Successfully wrote %d hosts to %s", len(snapshot.Hosts), filePath)
	return nil
}
