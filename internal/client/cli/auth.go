package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/finkeeper/internal/common"
)

var (
	errLoginFailed    = errors.New("login failed")
	errNotLoggedIn    = errors.New("not logged in")
	errSecretMismatch = errors.New("passwords do not match")
	errResetAborted   = errors.New("reset aborted")
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Login prompts for credentials and hands them to the auth manager, which
// tries the server first and falls back to the stored profile.
//
// The password is wiped before returning. A rejected login yields errLoginFailed.
func (a *App) Login(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out, "Enter password: ")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if !a.auth.Login(ctx, userName, string(password)) {
		a.log.Info(ctx, "login rejected", "username", userName)
		return errLoginFailed
	}

	if u := a.auth.CurrentUser(); u != nil {
		printlnFn("Welcome,", u.Username)
	}
	return nil
}

// Logout ends the current session. It is a no-op when nobody is logged in.
func (a *App) Logout(ctx context.Context) error {
	a.auth.Logout(ctx)
	printlnFn("Logged out")
	return nil
}

// WhoAmI prints the authenticated user and when the session expires.
func (a *App) WhoAmI(ctx context.Context) error {
	u := a.auth.CurrentUser()
	if u == nil {
		return errNotLoggedIn
	}

	line := u.Username
	if u.HasRemoteID() {
		line = fmt.Sprintf("%s (id %d)", line, *u.RemoteID)
	} else {
		line += " (not linked to server)"
	}
	printlnFn(line)

	if s := a.auth.Session(); s != nil {
		printlnFn("Session expires", s.ExpiresAt.Local().Format(time.RFC1123))
	}
	return nil
}

// ChangeCredentials prompts for a new username and password and applies them
// through the auth manager. An empty username keeps the current one.
func (a *App) ChangeCredentials(ctx context.Context) error {
	u := a.auth.CurrentUser()
	if u == nil {
		return errNotLoggedIn
	}

	userName, err := getSimpleText(a.reader, fmt.Sprintf("New username (empty keeps %q)", u.Username), a.out)
	if err != nil {
		return err
	}
	if userName == "" {
		userName = u.Username
	}

	password, err := getPassword(a.out, "New password: ")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	confirm, err := getPassword(a.out, "Repeat password: ")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(confirm)

	if !bytes.Equal(password, confirm) {
		return errSecretMismatch
	}

	if err := a.auth.UpdateUser(ctx, userName, string(password)); err != nil {
		return err
	}

	printlnFn("Credentials updated")
	return nil
}

// Reset removes everything finkeeper stored on this device after the user
// confirms by typing "yes". Any session ends and the default identity is
// seeded again.
func (a *App) Reset(ctx context.Context) error {
	answer, err := getSimpleText(a.reader, "This removes the local profile and session. Type 'yes' to continue", a.out)
	if err != nil {
		return err
	}
	if answer != "yes" {
		return errResetAborted
	}

	n, err := a.auth.Forget(ctx)
	if err != nil {
		return err
	}
	printlnFn(fmt.Sprintf("Removed %d stored record(s)", n))
	return nil
}

// Sync schedules a background reconciliation of the local profile with the server.
func (a *App) Sync(ctx context.Context) error {
	if !a.auth.IsAuthenticated() {
		return errNotLoggedIn
	}
	a.auth.SyncWithBackend(ctx)
	printlnFn("Sync scheduled")
	return nil
}

// Status prints connectivity and session state.
func (a *App) Status(ctx context.Context) error {
	mode := a.Mode()
	if mode == "" {
		mode = "unknown"
	}
	printlnFn("Server:", a.config.ServerEndpointAddr, mode)

	if s := a.auth.Session(); s != nil && a.auth.IsAuthenticated() {
		printlnFn("Session:", s.User.Username, "valid for", time.Until(s.ExpiresAt).Round(time.Second))
	} else {
		printlnFn("Session: none")
	}
	return nil
}
