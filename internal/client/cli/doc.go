// Package cli provides the interactive finkeeper command-line client.
//
// It wires configuration, the local record store, the gRPC credential client
// and the auth manager behind a small REPL. On start the previous session is
// resumed if it is still valid, otherwise the user is asked to log in.
//
// Key features:
//   - Login / Logout (server first, stored profile as fallback)
//   - whoami / status: current user, session expiry and connectivity
//   - passwd: change username and password
//   - reset: remove the profile and session stored on this device
//   - sync: reconcile the local profile with the server
//
// Every command and every SIGCONT (unix) counts as user activity and
// revalidates the session. A background watcher pings the server and shows
// online/offline in the prompt. See App, StartOnlineStatusWatcher and runREPL.
package cli
