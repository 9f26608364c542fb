// Package appid holds the application identity used for help text, config
// discovery, environment prefixes and telemetry namespaces.
package appid

import (
	"os"
	"strings"
)

// Identity describes how the binary names itself.
type Identity struct {
	Vendor      string
	BinaryName  string
	ConfigName  string
	EnvPrefix   string
	Description string
	Namespace   string
}

// EnvBinaryName overrides the binary name (and derived names) at runtime.
const EnvBinaryName = "SUMLENS_BINARY_NAME"

var defaultIdentity = Identity{
	Vendor:      "namelens",
	BinaryName:  "sumlens",
	ConfigName:  "sumlens",
	EnvPrefix:   "SUMLENS_",
	Description: "Summarization service with provider fallback and per-client quotas",
	Namespace:   "sumlens",
}

// Get returns the application identity. A non-empty SUMLENS_BINARY_NAME
// rebrands the binary, config and namespace names but keeps the env prefix
// stable so existing deployments keep working.
func Get() *Identity {
	identity := defaultIdentity
	if name := strings.TrimSpace(os.Getenv(EnvBinaryName)); name != "" {
		identity.BinaryName = name
		identity.ConfigName = name
		identity.Namespace = strings.ReplaceAll(name, "-", "_")
	}
	return &identity
}

// TelemetryNamespace returns the metrics namespace.
func (i *Identity) TelemetryNamespace() string {
	if i == nil || strings.TrimSpace(i.Namespace) == "" {
		return defaultIdentity.Namespace
	}
	return i.Namespace
}
