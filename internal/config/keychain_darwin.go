//go:build darwin

package config

import (
	"fmt"
	"os/exec"
)

// Secrets are generic passwords in the macOS Keychain, managed through
// the `security` CLI.

func secretGet(service, account string) ([]byte, error) {
	out, err := exec.Command(
		"security", "find-generic-password",
		"-s", service, "-a", account, "-w",
	).Output()
	if err != nil {
		return nil, err
	}
	return out, nil
}

// secretSet upserts the entry; -U replaces an existing password in place.
func secretSet(service, account, value string) error {
	err := exec.Command(
		"security", "add-generic-password", "-U",
		"-s", service, "-a", account, "-w", value,
	).Run()
	if err != nil {
		return fmt.Errorf("writing keychain entry %s/%s: %w", service, account, err)
	}
	return nil
}
