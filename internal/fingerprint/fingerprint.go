// Package fingerprint derives a stable 16-hex-char identifier from an error's
// message and the first meaningful stack frame. Events sharing a fingerprint
// are treated as occurrences of the same error.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash/fnv"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// Length is the fingerprint length in hex characters.
	Length = 16
	// maxMessageLen caps the message portion fed to the hash.
	maxMessageLen = 500
)

// hexRe matches a well-formed fingerprint as accepted at the ingestion boundary.
var hexRe = regexp.MustCompile(`^[0-9a-f]{16}$`)

// Valid reports whether s is a well-formed fingerprint (16 lowercase hex chars).
func Valid(s string) bool {
	return hexRe.MatchString(s)
}

// Compute returns the fingerprint for message and an optional stack trace.
// Deterministic: the same inputs always produce the same output, across
// processes and over time. stack may be empty.
func Compute(message, stack string) string {
	input := canonicalInput(message, stack)
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])[:Length]
}

// ComputeFallback returns a fingerprint built from two independent 32-bit
// non-cryptographic hashes (FNV-1a and djb2) concatenated as 8+8 hex chars.
// Lower-assurance than Compute: it trades collision resistance for
// availability and exists only for environments without a usable
// cryptographic digest. Prefer Compute.
func ComputeFallback(message, stack string) string {
	input := canonicalInput(message, stack)
	h := fnv.New32a()
	_, _ = h.Write([]byte(input))
	return fmt.Sprintf("%08x%08x", h.Sum32(), djb2(input))
}

func djb2(s string) uint32 {
	var h uint32 = 5381
	for i := 0; i < len(s); i++ {
		h = h*33 + uint32(s[i])
	}
	return h
}

// canonicalInput normalizes message and stack into the hashed form
// "message :: frame" (message alone when no frame survives).
func canonicalInput(message, stack string) string {
	msg := strings.TrimSpace(message)
	if len(msg) > maxMessageLen {
		// Back up to a rune boundary so the hashed prefix is valid UTF-8.
		cut := maxMessageLen
		for cut > 0 && !utf8.RuneStart(msg[cut]) {
			cut--
		}
		msg = msg[:cut]
	}
	frame := firstMeaningfulFrame(stack)
	if frame == "" {
		return msg
	}
	return msg + " :: " + frame
}

// vendorMarkers flag frames originating from third-party or framework-internal
// code; grouping on those frames would merge unrelated errors.
var vendorMarkers = []string{
	"node_modules/",
	"node:internal",
	"webpack-internal:",
	"webpack/",
	"(native)",
	"chrome-extension://",
}

// frameLocRe strips trailing :line and :line:column suffixes (with or without
// a closing paren) so minor line shifts across builds keep the fingerprint stable.
var frameLocRe = regexp.MustCompile(`:\d+(?::\d+)?(\)?)$`)

// firstMeaningfulFrame scans the stack top to bottom and returns the first
// frame that points at first-party source, normalized to drop line/column
// numbers. Falls back to the first unfiltered frame, then to "".
func firstMeaningfulFrame(stack string) string {
	if stack == "" {
		return ""
	}
	fallback := ""
	for _, line := range strings.Split(stack, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !strings.HasPrefix(line, "at ") {
			continue
		}
		if fallback == "" {
			fallback = normalizeFrame(line)
		}
		if isVendorFrame(line) {
			continue
		}
		if !hasSourceLocation(line) {
			continue
		}
		return normalizeFrame(line)
	}
	return fallback
}

func isVendorFrame(line string) bool {
	for _, m := range vendorMarkers {
		if strings.Contains(line, m) {
			return true
		}
	}
	return false
}

// hasSourceLocation reports whether the frame carries an identifiable file
// path with a position, e.g. "at handler (src/app/page.tsx:12:5)".
func hasSourceLocation(line string) bool {
	if strings.Contains(line, "<anonymous>") {
		return false
	}
	return strings.ContainsAny(line, "/\\") && strings.Contains(line, ":")
}

func normalizeFrame(line string) string {
	return frameLocRe.ReplaceAllString(line, "$1")
}
