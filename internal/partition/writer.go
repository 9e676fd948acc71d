package partition

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/apidex/pkg/types"
)

// GroupFileName returns the file name of group i, counting from 1
func GroupFileName(i int) string {
	return fmt.Sprintf("entity_group_%d.json", i)
}

// WriteGroups writes each group to dir as entity_group_<i>.json (1-based),
// creating dir if needed. Files are written concurrently; the returned paths
// are in group order. Group files numbered above len(groups) are removed once
// every group is written.
func WriteGroups(ctx context.Context, dir string, groups [][]types.Entity) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	paths := make([]string, len(groups))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for i, group := range groups {
		path := filepath.Join(dir, GroupFileName(i+1))
		paths[i] = path

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return writeGroup(path, group)
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := removeStaleGroups(dir, len(groups)); err != nil {
		return nil, err
	}
	return paths, nil
}

// removeStaleGroups deletes group files numbered above count, left over from
// an earlier run with more groups
func removeStaleGroups(dir string, count int) error {
	matches, err := filepath.Glob(filepath.Join(dir, "entity_group_*.json"))
	if err != nil {
		return err
	}
	for _, path := range matches {
		var i int
		if _, err := fmt.Sscanf(filepath.Base(path), "entity_group_%d.json", &i); err != nil {
			continue
		}
		if i <= count || filepath.Base(path) != GroupFileName(i) {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove stale %s: %w", filepath.Base(path), err)
		}
	}
	return nil
}

func writeGroup(path string, group []types.Entity) error {
	if group == nil {
		group = []types.Entity{}
	}
	data, err := json.MarshalIndent(group, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}

	// Write to a sibling temp file and rename so readers never see half a group
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}

// ReadGroup loads one group file
func ReadGroup(path string) ([]types.Entity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var group []types.Entity
	if err := json.Unmarshal(data, &group); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}
	return group, nil
}
