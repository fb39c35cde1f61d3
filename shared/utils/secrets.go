package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SecretsDirEnv позволяет переопределить каталог секретов (для локального
// запуска вне Docker). По умолчанию используется стандартный путь
// Docker Secrets.
const SecretsDirEnv = "SECRETS_DIR"

const defaultSecretsDir = "/run/secrets"

// ReadSecret читает секрет из файла в каталоге секретов.
func ReadSecret(secretName string) (string, error) {
	dir := os.Getenv(SecretsDirEnv)
	if dir == "" {
		dir = defaultSecretsDir
	}
	filePath := filepath.Join(dir, secretName)
	secretBytes, err := os.ReadFile(filePath)
	if err != nil {
		// Не добавляем fallback на env var, чтобы поведение было консистентным
		return "", fmt.Errorf("failed to read secret file %s: %w", filePath, err)
	}
	secret := strings.TrimSpace(string(secretBytes))
	if secret == "" {
		return "", fmt.Errorf("secret file %s is empty", filePath)
	}
	return secret, nil
}
