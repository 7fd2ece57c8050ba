package securestore

import (
	"bytes"
	"context"
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	apperrors "github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/sessions"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// Sealed file layout: magic | salt | nonce | ciphertext
var magic = []byte("SES1")

const (
	saltLength = 16
	keyLength  = chacha20poly1305.KeySize

	// Argon2id parameters, tuned for an interactive unlock on a phone-class CPU
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4

	fileMode = 0o600
)

var keyNamePattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

var _ sessions.Store = (*Store)(nil)

// Store keeps the serialized session encrypted at rest in a single file per key.
type Store struct {
	dir        string
	key        string
	passphrase []byte
}

// New returns a store writing <dir>/<key>.enc. The directory is created if needed.
func New(dir, key, passphrase string) (*Store, error) {
	if passphrase == "" {
		return nil, apperrors.ErrMissingPassphrase
	}
	if !keyNamePattern.MatchString(key) {
		return nil, fmt.Errorf("securestore: invalid key name %q", key)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, apperrors.Join(sessions.ErrStorageUnavailable, err)
	}
	return &Store{dir: dir, key: key, passphrase: []byte(passphrase)}, nil
}

func (s *Store) path() string {
	return filepath.Join(s.dir, s.key+".enc")
}

func (s *Store) Save(ctx context.Context, serialized string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	sealed, err := s.seal([]byte(serialized))
	if err != nil {
		return apperrors.Wrapf(err, "securestore: seal %s", s.key)
	}

	tmp, err := os.CreateTemp(s.dir, s.key+".*.tmp")
	if err != nil {
		return apperrors.Join(sessions.ErrStorageUnavailable, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op once renamed

	if err := tmp.Chmod(fileMode); err != nil {
		tmp.Close()
		return apperrors.Join(sessions.ErrStorageUnavailable, err)
	}
	if _, err := tmp.Write(sealed); err != nil {
		tmp.Close()
		return apperrors.Join(sessions.ErrStorageUnavailable, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return apperrors.Join(sessions.ErrStorageUnavailable, err)
	}
	if err := tmp.Close(); err != nil {
		return apperrors.Join(sessions.ErrStorageUnavailable, err)
	}
	if err := os.Rename(tmpName, s.path()); err != nil {
		return apperrors.Join(sessions.ErrStorageUnavailable, err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	sealed, err := os.ReadFile(s.path())
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, apperrors.Join(sessions.ErrStorageUnavailable, err)
	}

	plain, err := s.open(sealed)
	if err != nil {
		return "", false, apperrors.Join(sessions.ErrStorageUnavailable, err)
	}
	return string(plain), true, nil
}

func (s *Store) Delete(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(s.path()); err != nil && !os.IsNotExist(err) {
		return apperrors.Join(sessions.ErrStorageUnavailable, err)
	}
	return nil
}

func (s *Store) deriveKey(salt []byte) []byte {
	return argon2.IDKey(s.passphrase, salt, argonTime, argonMemory, argonThreads, keyLength)
}

func (s *Store) seal(plain []byte) ([]byte, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.NewX(s.deriveKey(salt))
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(magic)+len(salt)+len(nonce)+len(plain)+aead.Overhead())
	out = append(out, magic...)
	out = append(out, salt...)
	out = append(out, nonce...)
	// The key name is bound as additional data so a file cannot be swapped between slots
	return aead.Seal(out, nonce, plain, []byte(s.key)), nil
}

func (s *Store) open(sealed []byte) ([]byte, error) {
	headerLength := len(magic) + saltLength + chacha20poly1305.NonceSizeX
	if len(sealed) < headerLength || !bytes.Equal(sealed[:len(magic)], magic) {
		return nil, apperrors.ErrCorrupt
	}
	salt := sealed[len(magic) : len(magic)+saltLength]
	nonce := sealed[len(magic)+saltLength : headerLength]

	aead, err := chacha20poly1305.NewX(s.deriveKey(salt))
	if err != nil {
		return nil, err
	}
	plain, err := aead.Open(nil, nonce, sealed[headerLength:], []byte(s.key))
	if err != nil {
		return nil, apperrors.Join(apperrors.ErrCorrupt, err)
	}
	return plain, nil
}
