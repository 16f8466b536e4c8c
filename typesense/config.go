package typesense

import (
	"fmt"
	"strings"
)

// Config holds the connection settings for the backing Typesense service.
// The client handle is rebuilt as a whole whenever any field changes;
// partial updates to a live client are never applied.
type Config struct {
	Host       string
	Protocol   string
	Port       int
	APIKey     string
	Collection string

	// QueryFields, when set, is used verbatim as the free-text query-field
	// list and skips schema introspection.
	QueryFields []string
}

func (c Config) baseURL() string {
	protocol := c.Protocol
	if protocol == "" {
		protocol = "https"
	}
	port := c.Port
	if port == 0 {
		port = 443
	}
	return fmt.Sprintf("%s://%s:%d", protocol, strings.TrimSpace(c.Host), port)
}

// clone returns a copy of the config with its own query-field slice
func (c Config) clone() Config {
	out := c
	if c.QueryFields != nil {
		out.QueryFields = append([]string(nil), c.QueryFields...)
	}
	return out
}
