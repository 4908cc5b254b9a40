package instance

import "os"

// GetID returns the process identifier used for lock ownership and
// per-instance consumer names. It prefers STOREFRONT_INSTANCE_ID, then the
// hostname.
func GetID() string {
	if id := os.Getenv("STOREFRONT_INSTANCE_ID"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "storefront-0"
}
