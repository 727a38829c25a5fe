// Package constants collects the numeric defaults shared across the filter
// pipeline: buffer sizes, crypto scratch sizes, and the handful of timeouts
// the device layer needs.
package constants

import "time"

const (
	// DefaultBufferSize is the default filter buffer size (matches the
	// teacher's default chunk size for bulk reads).
	DefaultBufferSize = 64 * 1024

	// ObFontBufferSize is the buffer size for ObFontDecode (§4.8).
	ObFontBufferSize = 1024

	// ObFontPreludeSize is the number of leading bytes ObFontDecode XORs.
	ObFontPreludeSize = 32

	// ObFontKeySize is the length of the derived XOR key, repeated once
	// to cover ObFontPreludeSize bytes.
	ObFontKeySize = 16

	// RC4ScratchSize is the scratch buffer size for RC4Decode/RC4Encode
	// (§4.6: "a scratch buffer of fixed size (≈ 4 KB)").
	RC4ScratchSize = 4096

	// RC4MaxKeySize is the maximum accepted RC4Key length.
	RC4MaxKeySize = 256

	// AESBlockSize mirrors crypto/aes.BlockSize for readability at call
	// sites that don't otherwise import crypto/aes.
	AESBlockSize = 16

	// MaxFilterNameLength is a sanity limit for filter template names
	// (§6.2). Filter creation does not check names against it.
	MaxFilterNameLength = 64

	// MaxGeneration is the generation counter ceiling from §3.2: valid
	// generations live in [1, MaxGeneration].
	MaxGeneration = 0x7FFE

	// SSHDialTimeout bounds sshdevice connection attempts.
	SSHDialTimeout = 30 * time.Second

	// LoggerBufferChannelMultiplier sizes the logger's non-blocking
	// channel as runtime.NumCPU() * this multiplier.
	LoggerBufferChannelMultiplier = 100
)
