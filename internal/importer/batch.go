package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// DescriptionFilename marks a directory as one product unit
const DescriptionFilename = "product_details.json"

// ErrDescriptionNotFound is the single structurally fatal import condition:
// the expected top-level description file does not exist
var ErrDescriptionNotFound = errors.New("product_details.json 未找到")

// Report is the externally visible result of every import operation
type Report struct {
	Total   int      `json:"total"`
	Created int      `json:"created"`
	Updated int      `json:"updated"`
	Errors  []string `json:"errors"`
}

// BatchImporter discovers product directories under a root and hands each to
// the Reconciler, strictly sequentially
type BatchImporter struct {
	reconciler *Reconciler
	logger     *zap.Logger
}

// NewBatchImporter creates a new BatchImporter
func NewBatchImporter(reconciler *Reconciler, logger *zap.Logger) *BatchImporter {
	return &BatchImporter{reconciler: reconciler, logger: logger}
}

// ImportDir walks root recursively. Any directory directly containing a
// description file is one product unit; it is not recursed into further (its
// images/ subdirectory is consulted by the reconciler). One unit's failure
// never blocks its siblings.
func (b *BatchImporter) ImportDir(ctx context.Context, root string) (Report, error) {
	report := Report{Errors: []string{}}

	info, err := os.Stat(root)
	if err != nil {
		return report, fmt.Errorf("导入目录不可用: %w", err)
	}
	if !info.IsDir() {
		return report, fmt.Errorf("导入路径不是目录: %s", root)
	}

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", filepath.Base(path), err))
			return nil
		}
		if !d.IsDir() {
			return nil
		}

		descPath := filepath.Join(path, DescriptionFilename)
		if _, err := os.Stat(descPath); err != nil {
			return nil
		}

		b.importUnit(ctx, path, descPath, &report)
		return fs.SkipDir
	})
	if walkErr != nil {
		return report, fmt.Errorf("failed to walk import tree: %w", walkErr)
	}

	b.logger.Info("Directory import finished",
		zap.String("root", root),
		zap.Int("total", report.Total),
		zap.Int("created", report.Created),
		zap.Int("updated", report.Updated),
		zap.Int("errors", len(report.Errors)),
	)
	return report, nil
}

// importUnit reconciles one product directory into the report
func (b *BatchImporter) importUnit(ctx context.Context, dir, descPath string, report *Report) {
	report.Total++
	name := filepath.Base(dir)

	items, err := readDescription(descPath)
	if err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", name, err))
		return
	}
	if len(items) == 0 {
		report.Errors = append(report.Errors, fmt.Sprintf("%s: 描述文件为空，跳过", name))
		return
	}
	if len(items) > 1 {
		// Image ingestion assumes a 1:1 directory-to-product mapping, so a
		// multi-record directory is rejected whole
		report.Errors = append(report.Errors, fmt.Sprintf("%s: 目录包含多条产品，跳过", name))
		return
	}

	res := b.reconciler.Reconcile(ctx, items[0], dir)
	switch res.Outcome {
	case OutcomeCreated:
		report.Created++
	case OutcomeUpdated:
		report.Updated++
	}
	for _, e := range res.Errors {
		report.Errors = append(report.Errors, fmt.Sprintf("%s: %s", name, e))
	}
}

// ImportJSON imports the single description file under dataDir. This is the
// one operation where a missing input is fatal rather than reported.
func (b *BatchImporter) ImportJSON(ctx context.Context, dataDir string) (Report, error) {
	report := Report{Errors: []string{}}

	path := filepath.Join(dataDir, DescriptionFilename)
	if _, err := os.Stat(path); err != nil {
		return report, ErrDescriptionNotFound
	}

	items, err := readDescription(path)
	if err != nil {
		return report, err
	}

	report.Total = len(items)
	for idx, item := range items {
		res := b.reconciler.Reconcile(ctx, item, "")
		switch res.Outcome {
		case OutcomeCreated:
			report.Created++
		case OutcomeUpdated:
			report.Updated++
		}
		for _, e := range res.Errors {
			report.Errors = append(report.Errors, fmt.Sprintf("index %d: %s", idx, e))
		}
	}

	b.logger.Info("JSON import finished",
		zap.String("path", path),
		zap.Int("total", report.Total),
		zap.Int("created", report.Created),
		zap.Int("updated", report.Updated),
		zap.Int("errors", len(report.Errors)),
	)
	return report, nil
}

// readDescription parses a description file holding either one product
// object or an array of them
func readDescription(path string) ([]ImportItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取描述文件失败: %w", err)
	}

	var items []ImportItem
	if err := json.Unmarshal(data, &items); err != nil {
		var single ImportItem
		if err := json.Unmarshal(data, &single); err != nil {
			return nil, fmt.Errorf("描述文件格式错误: %w", err)
		}
		items = []ImportItem{single}
	}
	return items, nil
}
