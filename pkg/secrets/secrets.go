package secrets

import (
	"fmt"
	"os"
	"strings"
)

// Read reads a secret from the standard Docker Secrets path.
func Read(secretName string) (string, error) {
	filePath := fmt.Sprintf("/run/secrets/%s", secretName)
	secretBytes, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read secret file %s: %w", filePath, err)
	}
	secret := strings.TrimSpace(string(secretBytes))
	if secret == "" {
		return "", fmt.Errorf("secret file %s is empty", filePath)
	}
	return secret, nil
}

// ReadWithEnvFallback reads a secret file, falling back to an environment
// variable for environments that do not mount Docker secrets.
func ReadWithEnvFallback(secretName, envName string) (string, error) {
	if secret, err := Read(secretName); err == nil {
		return secret, nil
	}
	if value := strings.TrimSpace(os.Getenv(envName)); value != "" {
		return value, nil
	}
	return "", fmt.Errorf("secret %s not found in /run/secrets or $%s", secretName, envName)
}
