// Package sshdevice implements a filter.Device backed by a command run
// over an SSH session, wiring golang.org/x/crypto/ssh and its agent
// package into the pipeline as a real transport underneath a base file.
package sshdevice

import (
	"fmt"
	"net"
	"os"

	gossh "golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"

	"github.com/mimecast/filterpipe/internal/io/logger"
)

// Agent returns an auth method backed by every key the local SSH agent
// offers.
func Agent() (gossh.AuthMethod, error) {
	return AgentWithKeyIndex(-1)
}

// AgentWithKeyIndex returns an auth method backed by a single key from the
// local SSH agent, selected by index, or every key if keyIndex is -1.
func AgentWithKeyIndex(keyIndex int) (gossh.AuthMethod, error) {
	sock, err := net.Dial("unix", os.Getenv("SSH_AUTH_SOCK"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SSH agent: %w", err)
	}
	agentClient := agent.NewClient(sock)
	keys, err := agentClient.List()
	if err != nil {
		return nil, fmt.Errorf("failed to list SSH agent keys: %w", err)
	}
	for i, key := range keys {
		logger.Debug("ssh agent public key", i, key.Comment)
	}

	if keyIndex < 0 {
		return gossh.PublicKeysCallback(agentClient.Signers), nil
	}
	if keyIndex >= len(keys) {
		return nil, fmt.Errorf("key index %d out of range (agent has %d keys)", keyIndex, len(keys))
	}
	logger.Debug("using ssh agent key at index", keyIndex)
	return gossh.PublicKeysCallback(func() ([]gossh.Signer, error) {
		signers, err := agentClient.Signers()
		if err != nil {
			return nil, err
		}
		if keyIndex >= len(signers) {
			return nil, fmt.Errorf("key index %d out of range (agent has %d signers)", keyIndex, len(signers))
		}
		return []gossh.Signer{signers[keyIndex]}, nil
	}), nil
}

// KeyFile returns an auth method backed by an unencrypted private key file.
func KeyFile(keyFile string) (gossh.AuthMethod, error) {
	buffer, err := os.ReadFile(keyFile)
	if err != nil {
		return nil, err
	}
	key, err := gossh.ParsePrivateKey(buffer)
	if err != nil {
		return nil, err
	}
	return gossh.PublicKeys(key), nil
}
