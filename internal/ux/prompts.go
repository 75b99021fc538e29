package ux

import (
	stderrors "errors"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
)

// ErrNotInteractive is returned when a prompt is needed but no terminal is attached
var ErrNotInteractive = stderrors.New("no terminal attached; pass the values as flags")

// Interactive reports whether stdin and stdout are both terminals
func Interactive() bool {
	return isTerminal(os.Stdin.Fd()) && isTerminal(os.Stdout.Fd())
}

func isTerminal(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func required(label string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return stderrors.New(label + " is required")
		}
		return nil
	}
}

// CredentialsForm builds the login form. Both fields are required, so the
// form cannot be submitted with an empty value.
func CredentialsForm(email, password *string) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Email").
				Placeholder("you@richmansdream.com").
				Value(email).
				Validate(required("email")),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(password).
				Validate(required("password")),
		).Title("Sign in to your CRM account"),
	)
}

// PromptCredentials asks for whichever of email and password is missing
func PromptCredentials(email, password string) (string, string, error) {
	if email != "" && password != "" {
		return email, password, nil
	}
	if !Interactive() {
		return email, password, ErrNotInteractive
	}
	if err := CredentialsForm(&email, &password).Run(); err != nil {
		return "", "", err
	}
	return strings.TrimSpace(email), password, nil
}

// Confirm prompts the user for yes/no confirmation. Without a terminal it
// returns defaultYes.
func Confirm(message string, defaultYes bool) bool {
	if !Interactive() {
		return defaultYes
	}
	answer := defaultYes
	if err := huh.NewConfirm().Title(message).Value(&answer).Run(); err != nil {
		return defaultYes
	}
	return answer
}
