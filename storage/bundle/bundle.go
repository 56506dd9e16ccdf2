// Package bundle exports and imports registry entries as deterministic TAR archives.
//
// Layout:
//
//	entries/<name>/key    raw storage key bytes
//	entries/<name>/value  raw value bytes
//	index.json            optional, non-authoritative summary
//
// where <name> is cidutil.KeyName(key).
package bundle

import (
	"archive/tar"
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"xdao.co/idreg/cidutil"
	"xdao.co/idreg/storage"
)

// FormatVersion is the current bundle index schema version.
const FormatVersion = 1

// ErrNameMismatch is returned when an entry's directory name does not match its key.
var ErrNameMismatch = errors.New("bundle: entry name does not match key")

var epoch0 = time.Unix(0, 0).UTC()

// ExportOptions controls bundle export behavior.
type ExportOptions struct {
	// Labels is optional, non-authoritative metadata mapping names to storage keys.
	Labels map[string][]byte
	// IncludeIndex controls whether index.json is included.
	IncludeIndex bool
}

// Export writes a deterministic TAR bundle containing the entries for keys.
//
// The bundle bytes are deterministic: entry order is lexicographic by name and
// TAR headers are normalized. Missing keys fail the export.
func Export(w io.Writer, store storage.Store, keys [][]byte, opts ExportOptions) error {
	if store == nil {
		return fmt.Errorf("bundle: nil store")
	}
	uniq := make(map[string][]byte, len(keys))
	for _, k := range keys {
		if err := storage.CheckKey(k); err != nil {
			return err
		}
		uniq[cidutil.KeyName(k)] = k
	}
	entries := make([]storage.Entry, 0, len(uniq))
	for _, k := range uniq {
		v, err := store.Get(k)
		if err != nil {
			return fmt.Errorf("bundle: key %x: %w", k, err)
		}
		entries = append(entries, storage.Entry{Key: k, Value: v})
	}
	return write(w, entries, opts)
}

// ExportAll writes every entry of a scannable store.
func ExportAll(w io.Writer, store storage.Scanner, opts ExportOptions) error {
	if store == nil {
		return fmt.Errorf("bundle: nil store")
	}
	var entries []storage.Entry
	err := store.ForEach(func(key, value []byte) error {
		entries = append(entries, storage.Entry{Key: key, Value: value})
		return nil
	})
	if err != nil {
		return err
	}
	return write(w, entries, opts)
}

func write(w io.Writer, entries []storage.Entry, opts ExportOptions) error {
	named := make(map[string]storage.Entry, len(entries))
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		n := cidutil.KeyName(e.Key)
		if _, ok := named[n]; !ok {
			names = append(names, n)
		}
		named[n] = e
	}
	sort.Strings(names)

	tw := tar.NewWriter(w)

	idxEntries := make([]indexEntry, 0, len(names))
	for _, n := range names {
		e := named[n]
		if err := writeFile(tw, "entries/"+n+"/key", e.Key); err != nil {
			_ = tw.Close()
			return err
		}
		if err := writeFile(tw, "entries/"+n+"/value", e.Value); err != nil {
			_ = tw.Close()
			return err
		}
		valueCID, err := cidutil.RecordCID(e.Value)
		if err != nil {
			_ = tw.Close()
			return err
		}
		idxEntries = append(idxEntries, indexEntry{
			Name:     n,
			Key:      hex.EncodeToString(e.Key),
			ValueCID: valueCID.String(),
			Size:     len(e.Value),
		})
	}

	if opts.IncludeIndex {
		idx := indexJSON{
			Version:   FormatVersion,
			KeyNaming: "cidv1-raw-sha2-256",
			Entries:   idxEntries,
		}
		if len(opts.Labels) > 0 {
			keys := make([]string, 0, len(opts.Labels))
			for k := range opts.Labels {
				keys = append(keys, k)
			}
			sort.Strings(keys)

			labels := make([]indexLabel, 0, len(keys))
			for _, k := range keys {
				if k == "" {
					_ = tw.Close()
					return fmt.Errorf("bundle: empty label key")
				}
				v := opts.Labels[k]
				if err := storage.CheckKey(v); err != nil {
					_ = tw.Close()
					return err
				}
				labels = append(labels, indexLabel{Name: k, Entry: cidutil.KeyName(v)})
			}
			idx.Labels = labels
		}

		b, err := marshalCanonicalIndexJSON(idx)
		if err != nil {
			_ = tw.Close()
			return err
		}
		if err := writeFile(tw, "index.json", b); err != nil {
			_ = tw.Close()
			return err
		}
	}

	return tw.Close()
}

// ImportOptions controls bundle import behavior.
type ImportOptions struct {
	// IgnoreUnknown controls whether unknown TAR entries are ignored.
	//
	// Default (false) is fail-closed: unknown entries cause Import to return an error.
	IgnoreUnknown bool
}

// Import reads a bundle from r and writes all entries into store.
func Import(r io.Reader, store storage.Store) (int, error) {
	return ImportWithOptions(r, store, ImportOptions{})
}

// ImportWithOptions reads a bundle from r and writes all entries into store.
//
// The whole bundle is validated before anything is written. Entries are then
// written with storage.SetAll, so a batching store receives them atomically.
// It returns the number of entries written.
func ImportWithOptions(r io.Reader, store storage.Store, opts ImportOptions) (int, error) {
	if store == nil {
		return 0, fmt.Errorf("bundle: nil store")
	}

	tr := tar.NewReader(r)
	keys := map[string][]byte{}
	values := map[string][]byte{}

	for {
		h, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, err
		}
		name := cleanTarPath(h.Name)
		if name == "" {
			return 0, fmt.Errorf("bundle: invalid entry path: %q", h.Name)
		}

		if h.Typeflag != tar.TypeReg {
			if opts.IgnoreUnknown {
				continue
			}
			return 0, fmt.Errorf("bundle: unexpected tar entry type: %v (%s)", h.Typeflag, name)
		}

		// Non-authoritative metadata.
		if name == "index.json" {
			_, _ = io.Copy(io.Discard, tr)
			continue
		}

		parts := strings.Split(name, "/")
		if len(parts) != 3 || parts[0] != "entries" || (parts[2] != "key" && parts[2] != "value") {
			if opts.IgnoreUnknown {
				_, _ = io.Copy(io.Discard, tr)
				continue
			}
			return 0, fmt.Errorf("bundle: unknown entry: %s", name)
		}

		payload, rerr := io.ReadAll(tr)
		if rerr != nil {
			return 0, rerr
		}
		target := keys
		if parts[2] == "value" {
			target = values
		}
		if _, ok := target[parts[1]]; ok {
			return 0, fmt.Errorf("bundle: duplicate entry: %s", name)
		}
		target[parts[1]] = payload
	}

	names := make([]string, 0, len(keys))
	for n, k := range keys {
		if cidutil.KeyName(k) != n {
			return 0, ErrNameMismatch
		}
		if _, ok := values[n]; !ok {
			return 0, fmt.Errorf("bundle: entry %s has no value", n)
		}
		names = append(names, n)
	}
	for n := range values {
		if _, ok := keys[n]; !ok {
			return 0, fmt.Errorf("bundle: entry %s has no key", n)
		}
	}
	sort.Strings(names)

	entries := make([]storage.Entry, 0, len(names))
	for _, n := range names {
		entries = append(entries, storage.Entry{Key: keys[n], Value: values[n]})
	}
	if err := storage.SetAll(store, entries); err != nil {
		return 0, err
	}
	return len(entries), nil
}

type indexJSON struct {
	Version   int          `json:"version"`
	KeyNaming string       `json:"keyNaming"`
	Entries   []indexEntry `json:"entries"`
	Labels    []indexLabel `json:"labels,omitempty"`
}

type indexEntry struct {
	Name     string `json:"name"`
	Key      string `json:"key"`
	ValueCID string `json:"valueCid"`
	Size     int    `json:"size"`
}

type indexLabel struct {
	Name  string `json:"name"`
	Entry string `json:"entry"`
}

func marshalCanonicalIndexJSON(idx indexJSON) ([]byte, error) {
	// indexJSON is composed only of structs + slices; encoding/json will be deterministic.
	b, err := json.Marshal(idx)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

func writeFile(tw *tar.Writer, name string, content []byte) error {
	hdr := &tar.Header{
		Name:     name,
		Mode:     0o644,
		Size:     int64(len(content)),
		ModTime:  epoch0,
		Typeflag: tar.TypeReg,
		Format:   tar.FormatUSTAR,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	_, err := io.Copy(tw, bytes.NewReader(content))
	return err
}

func cleanTarPath(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, "\\", "/")
	name = strings.TrimPrefix(name, "./")
	name = strings.TrimPrefix(name, "/")
	if name == "" {
		return ""
	}

	parts := strings.Split(name, "/")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part == "" || part == "." || part == ".." {
			return ""
		}
		out = append(out, part)
	}
	return strings.Join(out, "/")
}
