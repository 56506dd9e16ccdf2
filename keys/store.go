package keys

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"xdao.co/idreg/model"
)

// KeyStore is a directory of named signing keys.
//
// EXPERIMENTAL: this filesystem layout is local tooling, not part of the
// registry protocol, and may change.
//
//	<Directory>/<name>/root.key
//	<Directory>/<name>/roles/<role>.key
//
// A key file holds one line, "<scheme>:<hex seed>". Role keys share the
// scheme of their root.
type KeyStore struct {
	Directory string
}

// KeyEntry is one listed key.
type KeyEntry struct {
	Name       string
	Identifier model.Identifier
	Roles      []string
}

const keyFileExt = ".key"

// GetDefaultDirectory returns ~/.xdao/idreg-keys.
func GetDefaultDirectory() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".xdao", "idreg-keys"), nil
}

// CreateKeyStore opens the store at directory, or at GetDefaultDirectory when
// directory is empty. Nothing is created until a key is written.
func CreateKeyStore(directory string) (*KeyStore, error) {
	if directory != "" {
		return &KeyStore{Directory: directory}, nil
	}
	dir, err := GetDefaultDirectory()
	if err != nil {
		return nil, err
	}
	return &KeyStore{Directory: dir}, nil
}

func (ks *KeyStore) rootFile(name string) keyFile {
	return keyFile(filepath.Join(ks.Directory, name, "root"+keyFileExt))
}

func (ks *KeyStore) roleFile(name, role string) keyFile {
	return keyFile(filepath.Join(ks.Directory, name, "roles", role+keyFileExt))
}

// CheckKeyName validates a key name: [A-Za-z0-9_-]+.
func CheckKeyName(name string) error { return checkLabel("key name", name) }

// CheckRole validates a role label with the same alphabet as key names.
func CheckRole(role string) error { return checkLabel("role", role) }

func checkLabel(what, s string) error {
	if s == "" {
		return model.NewError(model.KindInvalid, "IDREG-KEYS-001", what+" cannot be empty")
	}
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			return model.NewError(model.KindInvalid, "IDREG-KEYS-001", fmt.Sprintf("invalid character %q in %s", c, what))
		}
	}
	return nil
}

// ParseSeedHex decodes a SeedSize seed, tolerating surrounding space and a 0x prefix.
func ParseSeedHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	seed, err := hex.DecodeString(s)
	if err != nil {
		return nil, model.WrapError(model.KindInvalid, "IDREG-KEYS-002", "invalid seed hex", err)
	}
	if len(seed) != SeedSize {
		return nil, model.NewError(model.KindInvalid, "IDREG-KEYS-002", fmt.Sprintf("seed must be %d bytes, got %d", SeedSize, len(seed)))
	}
	return seed, nil
}

// keyFile is the path of a single "<scheme>:<hex seed>" file.
type keyFile string

func (f keyFile) write(scheme model.Scheme, seed []byte, overwrite bool) error {
	if _, err := model.ParseScheme(string(scheme)); err != nil {
		return err
	}
	if len(seed) != SeedSize {
		return model.NewError(model.KindInvalid, "IDREG-KEYS-002", fmt.Sprintf("seed must be %d bytes, got %d", SeedSize, len(seed)))
	}
	if err := os.MkdirAll(filepath.Dir(string(f)), 0o700); err != nil {
		return err
	}
	mode := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if overwrite {
		mode = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
	out, err := os.OpenFile(string(f), mode, 0o600)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return model.WrapError(model.KindAlreadyInitialized, "IDREG-KEYS-003", "key already exists (use --force to replace it)", err)
		}
		return err
	}
	if _, err := fmt.Fprintf(out, "%s:%x\n", scheme, seed); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func (f keyFile) read() (model.Scheme, []byte, error) {
	data, err := os.ReadFile(string(f))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil, model.WrapError(model.KindNotFound, "IDREG-KEYS-004", "no such key", err)
		}
		return "", nil, err
	}
	schemeName, seedHex, ok := strings.Cut(strings.TrimSpace(string(data)), ":")
	if !ok {
		return "", nil, model.NewError(model.KindInvalid, "IDREG-KEYS-005", filepath.Base(string(f))+": expected <scheme>:<hex seed>")
	}
	scheme, err := model.ParseScheme(schemeName)
	if err != nil {
		return "", nil, err
	}
	seed, err := ParseSeedHex(seedHex)
	if err != nil {
		return "", nil, err
	}
	return scheme, seed, nil
}

func (f keyFile) signer() (Signer, error) {
	scheme, seed, err := f.read()
	if err != nil {
		return nil, err
	}
	return NewSigner(scheme, seed)
}

// InitializeRootKey stores seed as the root key of name and returns its identifier.
func (ks *KeyStore) InitializeRootKey(name string, scheme model.Scheme, seed []byte, overwrite bool) (model.Identifier, string, error) {
	if err := CheckKeyName(name); err != nil {
		return model.Identifier{}, "", err
	}
	id, err := IdentifierFromSeed(scheme, seed)
	if err != nil {
		return model.Identifier{}, "", err
	}
	f := ks.rootFile(name)
	if err := f.write(scheme, seed, overwrite); err != nil {
		return model.Identifier{}, "", err
	}
	return id, string(f), nil
}

// DeriveKeyFromRole derives the role key of from and stores it next to the root.
func (ks *KeyStore) DeriveKeyFromRole(from, role string, overwrite bool) (model.Identifier, string, error) {
	if err := CheckKeyName(from); err != nil {
		return model.Identifier{}, "", err
	}
	if err := CheckRole(role); err != nil {
		return model.Identifier{}, "", err
	}
	scheme, rootSeed, err := ks.rootFile(from).read()
	if err != nil {
		return model.Identifier{}, "", err
	}
	seed, err := DeriveRoleSeed(scheme, rootSeed, role)
	if err != nil {
		return model.Identifier{}, "", err
	}
	id, err := IdentifierFromSeed(scheme, seed)
	if err != nil {
		return model.Identifier{}, "", err
	}
	f := ks.roleFile(from, role)
	if err := f.write(scheme, seed, overwrite); err != nil {
		return model.Identifier{}, "", err
	}
	return id, string(f), nil
}

// LoadSigner returns the root signer of name, or its role signer when role is set.
func (ks *KeyStore) LoadSigner(name, role string) (Signer, error) {
	if err := CheckKeyName(name); err != nil {
		return nil, err
	}
	if role == "" {
		return ks.rootFile(name).signer()
	}
	if err := CheckRole(role); err != nil {
		return nil, err
	}
	return ks.roleFile(name, role).signer()
}

// ResolveSigner picks the first available of: seedHex (with scheme), keyFile,
// or the stored key name (and role).
func (ks *KeyStore) ResolveSigner(scheme model.Scheme, seedHex, name, role, keyFilePath string) (Signer, error) {
	switch {
	case seedHex != "":
		seed, err := ParseSeedHex(seedHex)
		if err != nil {
			return nil, err
		}
		return NewSigner(scheme, seed)
	case keyFilePath != "":
		return keyFile(keyFilePath).signer()
	case name != "":
		return ks.LoadSigner(name, role)
	}
	return nil, model.NewError(model.KindInvalid, "IDREG-KEYS-006", "no signer provided (need a seed, key file or key name)")
}

// ListKeys lists the readable root keys by name. Entries whose root.key is
// missing or unreadable are skipped.
func (ks *KeyStore) ListKeys() ([]KeyEntry, error) {
	dirs, err := os.ReadDir(ks.Directory)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []KeyEntry
	for _, d := range dirs {
		if !d.IsDir() {
			continue
		}
		scheme, seed, err := ks.rootFile(d.Name()).read()
		if err != nil {
			continue
		}
		id, err := IdentifierFromSeed(scheme, seed)
		if err != nil {
			continue
		}
		out = append(out, KeyEntry{Name: d.Name(), Identifier: id, Roles: ks.roles(d.Name())})
	}
	return out, nil
}

func (ks *KeyStore) roles(name string) []string {
	matches, _ := filepath.Glob(filepath.Join(ks.Directory, name, "roles", "*"+keyFileExt))
	roles := make([]string, 0, len(matches))
	for _, m := range matches {
		roles = append(roles, strings.TrimSuffix(filepath.Base(m), keyFileExt))
	}
	slices.Sort(roles)
	if len(roles) == 0 {
		return nil
	}
	return roles
}
