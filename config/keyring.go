package config

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// KeyringService is the OS keyring service the CalDAV password is stored under
const KeyringService = "freetime"

// ErrPasswordNotFound is returned when the keyring holds no password for the user
var ErrPasswordNotFound = errors.New("password not found in keyring")

// PasswordFromKeyring returns the CalDAV password stored for username
func PasswordFromKeyring(username string) (string, error) {
	password, err := keyring.Get(KeyringService, username)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrPasswordNotFound
		}
		return "", fmt.Errorf("read keyring: %w", err)
	}
	return password, nil
}

// StorePassword saves the CalDAV password for username in the OS keyring
func StorePassword(username, password string) error {
	if username == "" {
		return errors.New("username cannot be empty")
	}
	if password == "" {
		return errors.New("password cannot be empty")
	}
	if err := keyring.Set(KeyringService, username, password); err != nil {
		return fmt.Errorf("store password in keyring: %w", err)
	}
	return nil
}
