package keys

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"xdao.co/nftmint/address"
)

// KeyStore holds named root seeds and the role seeds derived from them.
//
// EXPERIMENTAL: layout and API may change in MINOR releases.
//
// Layout:
//
//	<Directory>/<identifier>/root.key
//	<Directory>/<identifier>/roles/<role>.key
//
// Each file holds one hex-encoded seed and is created with mode 0600.
type KeyStore struct {
	Directory string
}

// KeyEntry lists one identifier and the roles derived under it.
type KeyEntry struct {
	Identifier string
	Roles      []string
}

func GetDefaultDirectory() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".xdao", "nftmint", "keys"), nil
}

func CreateKeyStore(directory string) (*KeyStore, error) {
	if directory == "" {
		var err error
		directory, err = GetDefaultDirectory()
		if err != nil {
			return nil, err
		}
	}
	return &KeyStore{Directory: directory}, nil
}

func (ks *KeyStore) rootPath(identifier string) string {
	return filepath.Join(ks.Directory, identifier, "root.key")
}

func (ks *KeyStore) rolePath(identifier, role string) string {
	return filepath.Join(ks.Directory, identifier, "roles", role+".key")
}

func checkName(kind, s string) error {
	if s == "" {
		return fmt.Errorf("%s cannot be empty", kind)
	}
	for _, char := range s {
		if (char >= 'a' && char <= 'z') || (char >= 'A' && char <= 'Z') || (char >= '0' && char <= '9') || char == '-' || char == '_' {
			continue
		}
		return fmt.Errorf("invalid character %q in %s", char, kind)
	}
	return nil
}

func CheckKeyName(identifier string) error { return checkName("identifier", identifier) }

func CheckRole(role string) error { return checkName("role", role) }

func ParseSeedHex(seedHex string) ([]byte, error) {
	seedHex = strings.TrimSpace(seedHex)
	seedHex = strings.TrimPrefix(seedHex, "0x")
	data, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, err
	}
	if len(data) != SeedSize {
		return nil, fmt.Errorf("expected seed length of %d bytes, got %d", SeedSize, len(data))
	}
	return data, nil
}

func (ks *KeyStore) saveSeed(filePath string, seed []byte, overwrite bool) error {
	if len(seed) != SeedSize {
		return fmt.Errorf("expected seed length of %d bytes", SeedSize)
	}
	if err := os.MkdirAll(filepath.Dir(filePath), 0o700); err != nil {
		return err
	}
	flags := os.O_WRONLY | os.O_CREATE
	if overwrite {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_EXCL
	}
	file, err := os.OpenFile(filePath, flags, 0o600)
	if err != nil {
		return err
	}
	defer file.Close()
	if _, err := file.WriteString(hex.EncodeToString(seed) + "\n"); err != nil {
		return err
	}
	return file.Close()
}

func (ks *KeyStore) loadSeed(filePath string) ([]byte, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return ParseSeedHex(string(data))
}

func addressOf(seed []byte) (address.Address, error) {
	kp, err := NewKeypairFromSeed(seed)
	if err != nil {
		return address.Address{}, err
	}
	return kp.Address(), nil
}

// InitializeRootKey stores seed as the root key of identifier.
func (ks *KeyStore) InitializeRootKey(identifier string, seed []byte, overwrite bool) (address.Address, string, error) {
	if err := CheckKeyName(identifier); err != nil {
		return address.Address{}, "", err
	}
	filePath := ks.rootPath(identifier)
	if err := ks.saveSeed(filePath, seed, overwrite); err != nil {
		return address.Address{}, "", err
	}
	addr, err := addressOf(seed)
	return addr, filePath, err
}

// DeriveKeyFromRole derives and stores the role key of identifier from.
func (ks *KeyStore) DeriveKeyFromRole(from, role string, overwrite bool) (address.Address, string, error) {
	if err := CheckKeyName(from); err != nil {
		return address.Address{}, "", err
	}
	if err := CheckRole(role); err != nil {
		return address.Address{}, "", err
	}
	rootSeed, err := ks.loadSeed(ks.rootPath(from))
	if err != nil {
		return address.Address{}, "", err
	}
	roleSeed, err := DeriveRoleSeed(rootSeed, role)
	if err != nil {
		return address.Address{}, "", err
	}
	filePath := ks.rolePath(from, role)
	if err := ks.saveSeed(filePath, roleSeed, overwrite); err != nil {
		return address.Address{}, "", err
	}
	addr, err := addressOf(roleSeed)
	return addr, filePath, err
}

// Load returns the keypair stored for identifier, or for one of its roles
// when role is non-empty.
func (ks *KeyStore) Load(identifier, role string) (*Keypair, error) {
	if err := CheckKeyName(identifier); err != nil {
		return nil, err
	}
	path := ks.rootPath(identifier)
	if role != "" {
		if err := CheckRole(role); err != nil {
			return nil, err
		}
		path = ks.rolePath(identifier, role)
	}
	seed, err := ks.loadSeed(path)
	if err != nil {
		return nil, err
	}
	return NewKeypairFromSeed(seed)
}

// LoadSigner resolves a signer from, in order: a hex seed, a key file, or a
// stored identifier/role.
func (ks *KeyStore) LoadSigner(seedHex, keyFile, identifier, role string) (*Keypair, error) {
	switch {
	case seedHex != "":
		seed, err := ParseSeedHex(seedHex)
		if err != nil {
			return nil, err
		}
		return NewKeypairFromSeed(seed)
	case keyFile != "":
		seed, err := ks.loadSeed(keyFile)
		if err != nil {
			return nil, err
		}
		return NewKeypairFromSeed(seed)
	case identifier != "":
		return ks.Load(identifier, role)
	}
	return nil, errors.New("no signer provided")
}

func (ks *KeyStore) ListKeys() ([]KeyEntry, error) {
	entries, err := os.ReadDir(ks.Directory)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var identifiers []string
	for _, entry := range entries {
		if entry.IsDir() {
			identifiers = append(identifiers, entry.Name())
		}
	}
	sort.Strings(identifiers)

	var result []KeyEntry
	for _, identifier := range identifiers {
		roleEntries, rerr := os.ReadDir(filepath.Join(ks.Directory, identifier, "roles"))
		var roles []string
		if rerr == nil {
			for _, roleEntry := range roleEntries {
				if !roleEntry.IsDir() && strings.HasSuffix(roleEntry.Name(), ".key") {
					roles = append(roles, strings.TrimSuffix(roleEntry.Name(), ".key"))
				}
			}
			sort.Strings(roles)
		}
		result = append(result, KeyEntry{Identifier: identifier, Roles: roles})
	}
	return result, nil
}
