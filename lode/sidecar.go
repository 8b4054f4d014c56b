package lode

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/justapithecus/lode/lode"
)

// Sidecar files live beside a join's example partitions under files/.
// They are written straight to the store, outside of any snapshot.

// PutFile streams r into the sidecar file name of the current join.
func (c *LodeClient) PutFile(ctx context.Context, name string, r io.Reader) error {
	if err := checkSidecarName(name); err != nil {
		return err
	}
	store, err := c.sidecarStore()
	if err != nil {
		return WrapInitError(err, c.config.Dataset)
	}
	key := c.FilePath(name)
	if err := store.Put(ctx, key, r); err != nil {
		return WrapWriteError(err, key)
	}
	return nil
}

// UploadFile copies a local file into the join's sidecar area under its
// base name and returns the store key.
func (c *LodeClient) UploadFile(ctx context.Context, local string) (string, error) {
	f, err := os.Open(local)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	name := filepath.Base(local)
	if err := c.PutFile(ctx, name, f); err != nil {
		return "", err
	}
	return c.FilePath(name), nil
}

// FilePath returns the store key of a sidecar file:
// datasets/<dataset>/partitions/source=<s>/day=<d>/join_id=<j>/files/<name>
func (c *LodeClient) FilePath(name string) string {
	return path.Join(
		"datasets", c.config.Dataset, "partitions",
		"source="+c.config.Source,
		"day="+c.config.Day,
		"join_id="+c.config.JoinID,
		"files", name,
	)
}

func (c *LodeClient) sidecarStore() (lode.Store, error) {
	c.storeOnce.Do(func() {
		c.store, c.storeErr = c.storeFactory()
	})
	return c.store, c.storeErr
}

func checkSidecarName(name string) error {
	if name == "" || name == "." || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return fmt.Errorf("invalid sidecar filename %q", name)
	}
	return nil
}
