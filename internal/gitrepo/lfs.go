package gitrepo

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"sort"
	"strconv"
	"strings"
)

// LFSTrack appends a git-lfs tracking pattern for path to .gitattributes
// and stages the file, the "promote to LFS" half of spec.md §4.8's
// threshold rule. The caller is expected to have already determined the
// enc-blob exceeded GIT_LFS_THRESH.
func (r *Repo) LFSTrack(ctx context.Context, pattern string) error {
	if _, err := r.run(ctx, "lfs", "track", pattern); err != nil {
		return err
	}
	return r.Add(ctx, false, ".gitattributes")
}

// LFSUntrack removes an LFS tracking pattern, used on delete of a
// previously LFS-tracked path. Failures are tolerated by the caller
// (spec.md §8's "LFS-untrack failures on delete are tolerated").
func (r *Repo) LFSUntrack(ctx context.Context, pattern string) error {
	_, err := r.run(ctx, "lfs", "untrack", pattern)
	return err
}

// GC reduces E's sparse cone to manifest/ and converts local packfiles
// into promisor markers: for each .pack file, write a sibling .promisor
// marker and delete the .pack/.idx pair, so the underlying VCS knows the
// blobs are fetchable lazily from a remote (spec.md §4.11).
func (r *Repo) GC(ctx context.Context) error {
	if err := r.SparseCheckoutSet(ctx, []string{"manifest/", selfCopyPattern}); err != nil {
		return err
	}

	packDir := r.gitDirPath() + "/objects/pack"
	entries, err := os.ReadDir(packDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, ent := range entries {
		name := ent.Name()
		if !strings.HasSuffix(name, ".pack") {
			continue
		}
		base := strings.TrimSuffix(name, ".pack")
		if err := os.WriteFile(packDir+"/"+base+".promisor", nil, 0o644); err != nil {
			return err
		}
		if err := os.Remove(packDir + "/" + name); err != nil {
			return err
		}
		if err := os.Remove(packDir + "/" + base + ".idx"); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

// BlobSize pairs a tracked path with its plaintext object size.
type BlobSize struct {
	Path string
	Size int64
}

// LargestBlobs reports the n largest blobs reachable from any ref,
// via `rev-list --objects` piped through `cat-file --batch-check`. Run
// against P, whose sizes are the true plaintext sizes a user tuning
// GIT_LFS_THRESH cares about (spec.md §4.11's added `largest` command).
func (r *Repo) LargestBlobs(ctx context.Context, n int) ([]BlobSize, error) {
	objects, err := r.run(ctx, "rev-list", "--objects", "--all")
	if err != nil {
		return nil, err
	}

	sizes, err := r.batchCheckSizes(ctx, objects)
	if err != nil {
		return nil, err
	}

	sort.Slice(sizes, func(i, j int) bool { return sizes[i].Size > sizes[j].Size })
	if n > 0 && len(sizes) > n {
		sizes = sizes[:n]
	}
	return sizes, nil
}

func (r *Repo) batchCheckSizes(ctx context.Context, objects []byte) ([]BlobSize, error) {
	var objNames bytes.Buffer
	paths := make(map[string]string) // object hash -> path
	sc := bufio.NewScanner(bytes.NewReader(objects))
	for sc.Scan() {
		line := sc.Text()
		fields := strings.SplitN(line, " ", 2)
		if len(fields) != 2 || fields[1] == "" {
			continue
		}
		objNames.WriteString(fields[0])
		objNames.WriteByte('\n')
		paths[fields[0]] = fields[1]
	}

	out, err := r.runStdin(ctx, objNames.Bytes(), "cat-file", "--batch-check=%(objectname) %(objecttype) %(objectsize)")
	if err != nil {
		return nil, err
	}

	var result []BlobSize
	bsc := bufio.NewScanner(bytes.NewReader(out))
	for bsc.Scan() {
		fields := strings.Fields(bsc.Text())
		if len(fields) != 3 || fields[1] != "blob" {
			continue
		}
		size, err := strconv.ParseInt(fields[2], 10, 64)
		if err != nil {
			continue
		}
		path, ok := paths[fields[0]]
		if !ok {
			continue
		}
		result = append(result, BlobSize{Path: path, Size: size})
	}
	return result, nil
}
