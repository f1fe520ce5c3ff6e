package cryptox

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const deviceKeyBytes = 32

// loadOrGenerateDeviceKey reads the device key material from path, creating
// it on first run. The generated file stands in for platform secure storage:
// it is the only secret that lives outside the vault, so it gets 0600.
func loadOrGenerateDeviceKey(path string) ([]byte, error) {
	path = filepath.Clean(path)

	if data, err := os.ReadFile(path); err == nil {
		raw, err := base64.RawStdEncoding.DecodeString(strings.TrimSpace(string(data)))
		if err != nil {
			return nil, fmt.Errorf("device key file %s is corrupt: %w", path, err)
		}
		return raw, nil
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read device key: %w", err)
	}

	raw := make([]byte, deviceKeyBytes)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("failed to generate device key: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("failed to create device key directory: %w", err)
	}
	encoded := base64.RawStdEncoding.EncodeToString(raw) + "\n"
	if err := os.WriteFile(path, []byte(encoded), 0600); err != nil {
		return nil, fmt.Errorf("failed to write device key: %w", err)
	}

	return raw, nil
}
