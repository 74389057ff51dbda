// Package ssh runs commands on remote hosts for ssh work items.
//
// Connections are dialed per Execute call with retry, using key-based
// authentication. Dialing and command execution both stop when the context
// is done. Host key verification is disabled unless a HostKeyCallback is
// configured.
package ssh
