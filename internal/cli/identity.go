package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Identity is who this CLI acts as when creating rooms or chatting. It is
// generated on first use and persisted under the user's home directory, so
// repeated invocations stay the same player.
type Identity struct {
	UserID   string `json:"user_id"`
	FullName string `json:"full_name"`
}

func baseDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, ".mania")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return dir, nil
}

func identityPath() (string, error) {
	dir, err := baseDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "identity.json"), nil
}

// LoadOrCreateIdentity returns the saved identity, minting one when none
// exists yet.
func LoadOrCreateIdentity(fullName string) (Identity, error) {
	path, err := identityPath()
	if err != nil {
		return Identity{}, err
	}
	raw, err := os.ReadFile(path)
	if err == nil {
		var id Identity
		if err := json.Unmarshal(raw, &id); err == nil && id.UserID != "" {
			if strings.TrimSpace(fullName) != "" && fullName != id.FullName {
				id.FullName = fullName
				_ = saveIdentity(id)
			}
			return id, nil
		}
	} else if !os.IsNotExist(err) {
		return Identity{}, err
	}

	if strings.TrimSpace(fullName) == "" {
		fullName = "operator"
	}
	id := Identity{UserID: uuid.NewString(), FullName: fullName}
	if err := saveIdentity(id); err != nil {
		return Identity{}, err
	}
	return id, nil
}

func saveIdentity(id Identity) error {
	path, err := identityPath()
	if err != nil {
		return err
	}
	body, err := json.MarshalIndent(id, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, body, 0o600); err != nil {
		return fmt.Errorf("save identity: %w", err)
	}
	return nil
}
