package yure

import (
	"crypto/rand"
	"fmt"
	"io/ioutil"
	"math/big"
	"os"
	"path/filepath"
	"strings"
)

const (
	idAlphabet = "YUREyure"
	idLength   = 11
)

// GenerateID returns a fresh yure identifier: 11 characters from
// "YUREyure".
func GenerateID() (string, error) {
	var sb strings.Builder
	max := big.NewInt(int64(len(idAlphabet)))
	for i := 0; i < idLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("fail to generate yure id: %s", err)
		}
		sb.WriteByte(idAlphabet[n.Int64()])
	}
	return sb.String(), nil
}

// IsValidID reports whether id has the shape GenerateID produces.
func IsValidID(id string) bool {
	if len(id) != idLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		if strings.IndexByte(idAlphabet, id[i]) < 0 {
			return false
		}
	}
	return true
}

// LoadOrCreateID reads the identifier stored at path. When the file is
// missing or does not hold a valid identifier, a new one is generated
// and written there.
func LoadOrCreateID(path string) (string, error) {
	data, err := ioutil.ReadFile(path)
	if err == nil {
		id := strings.TrimSpace(string(data))
		if IsValidID(id) {
			return id, nil
		}
	} else if !os.IsNotExist(err) {
		return "", err
	}

	id, err := GenerateID()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return "", err
	}
	if err := ioutil.WriteFile(path, []byte(id+"\n"), 0600); err != nil {
		return "", err
	}
	return id, nil
}
