package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Config holds CLI configuration
type Config struct {
	ServerURL       string
	AccountID       string
	Token           string
	CredentialsFile string
	Output          string
}

// credentials is the on-disk shape of the saved session
type credentials struct {
	AccountID string `json:"account_id"`
	Token     string `json:"token"`
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		ServerURL:       getEnvOrDefault("CHESSROOM_SERVER", "http://localhost:8080"),
		AccountID:       os.Getenv("CHESSROOM_ACCOUNT"),
		Token:           os.Getenv("CHESSROOM_TOKEN"),
		CredentialsFile: getEnvOrDefault("CHESSROOM_CREDENTIALS_FILE", defaultCredentialsFile()),
		Output:          "text",
	}
}

// LoadCredentials loads the saved session from file if not already set
func (c *Config) LoadCredentials() error {
	if c.Token != "" && c.AccountID != "" {
		return nil
	}

	data, err := os.ReadFile(c.CredentialsFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // No credentials file is fine
		}
		return err
	}

	var creds credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return err
	}
	if c.AccountID == "" {
		c.AccountID = creds.AccountID
	}
	if c.Token == "" {
		c.Token = creds.Token
	}
	return nil
}

// SaveCredentials saves the session to the credentials file
func (c *Config) SaveCredentials(accountID, token string) error {
	c.AccountID = accountID
	c.Token = token

	dir := filepath.Dir(c.CredentialsFile)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	data, err := json.Marshal(credentials{AccountID: accountID, Token: token})
	if err != nil {
		return err
	}
	return os.WriteFile(c.CredentialsFile, data, 0600)
}

// ClearCredentials removes the credentials file
func (c *Config) ClearCredentials() error {
	err := os.Remove(c.CredentialsFile)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func defaultCredentialsFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".chessroom/credentials"
	}
	return filepath.Join(home, ".chessroom", "credentials")
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
