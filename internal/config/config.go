// Package config holds process-wide constants and settings (mirrors the
// teacher's own internal/config: a handful of version/extension
// constants plus a test-mode flag, no env/flag parsing of its own).
package config

// Version is the current parm version. Set at build time via
// -ldflags "-X github.com/chananele/parm/internal/config.Version=...".
var Version = "0.1.0"

const SignatureFileExt = ".parmsig"

// SignatureFileExtensions are all recognized signature-file extensions.
var SignatureFileExtensions = []string{".parmsig", ".sig.yaml", ".sig.yml"}

// HasSignatureExt returns true if path ends with any recognized
// signature-file extension.
func HasSignatureExt(path string) bool {
	for _, ext := range SignatureFileExtensions {
		if len(path) >= len(ext) && path[len(path)-len(ext):] == ext {
			return true
		}
	}
	return false
}

// IsTestMode is a process-wide test-mode flag (mirrors the teacher's own
// config.IsTestMode). The parmsig CLI never sets it, so it stays false
// unless a caller assigns it.
var IsTestMode = false
