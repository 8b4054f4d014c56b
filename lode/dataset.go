package lode

import (
	"context"
	"fmt"
	"strings"

	"github.com/justapithecus/lode/lode"

	"github.com/pithecene-io/joinery/types"
)

// NewReadDataset creates a Lode Dataset for reading.
// Uses the same codec and layout as the write path.
func NewReadDataset(dataset string, factory lode.StoreFactory) (lode.Dataset, error) {
	if dataset == "" {
		dataset = DefaultDataset
	}
	ds, err := newDataset(dataset, factory)
	if err != nil {
		return nil, WrapInitError(err, dataset)
	}
	return ds, nil
}

// NewReadDatasetFS creates a read Dataset with filesystem storage.
func NewReadDatasetFS(dataset, rootPath string) (lode.Dataset, error) {
	return NewReadDataset(dataset, lode.NewFSFactory(rootPath))
}

// NewReadDatasetS3 creates a read Dataset with S3 storage.
func NewReadDatasetS3(ctx context.Context, dataset string, s3cfg S3Config) (lode.Dataset, error) {
	factory, err := newS3Factory(ctx, s3cfg)
	if err != nil {
		return nil, err
	}
	return NewReadDataset(dataset, factory)
}

// ReadExamples returns every stored example for a join, in write order.
// An empty joinID matches all joins.
func ReadExamples(ctx context.Context, ds lode.Dataset, joinID string) ([]*types.Example, error) {
	snapshots, err := ds.Snapshots(ctx)
	if err != nil {
		return nil, WrapReadError(err, string(ds.ID())+"/snapshots")
	}

	// Snapshots are ordered by creation time and records keep their batch
	// order. A snapshot may repeat records of earlier ones, so records are
	// keyed by (join_id, seq).
	var out []*types.Example
	seen := make(map[string]struct{})
	for _, snap := range snapshots {
		if !snapshotMatchesFilter(snap, "record_kind", RecordKindExample) {
			continue
		}
		if !snapshotMatchesFilter(snap, "join_id", joinID) {
			continue
		}

		data, err := ds.Read(ctx, snap.ID)
		if err != nil {
			return nil, WrapReadError(err, fmt.Sprintf("%s/snapshot/%s", ds.ID(), snap.ID))
		}
		for _, item := range data {
			record, ok := item.(map[string]any)
			if !ok || record["record_kind"] != RecordKindExample {
				continue
			}
			id := toString(record["join_id"])
			if joinID != "" && id != joinID {
				continue
			}
			key := fmt.Sprintf("%s/%v", id, record["seq"])
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			ex, err := exampleFromRecord(record)
			if err != nil {
				return nil, fmt.Errorf("failed to decode stored example: %w", err)
			}
			out = append(out, ex)
		}
	}
	return out, nil
}

// snapshotMatchesFilter checks if a snapshot's file paths match
// the given partition key=value filter.
func snapshotMatchesFilter(snap *lode.DatasetSnapshot, key, value string) bool {
	if value == "" {
		return true
	}
	for _, f := range snap.Manifest.Files {
		if matchesPartitionValue(f.Path, key, value) {
			return true
		}
	}
	return false
}

// matchesPartitionValue checks if a Hive-partitioned path contains an exact
// key=value segment, so join_id=j-1 does not match join_id=j-10.
func matchesPartitionValue(path, key, value string) bool {
	segment := key + "=" + value
	for _, part := range strings.Split(path, "/") {
		if part == segment {
			return true
		}
	}
	return false
}
