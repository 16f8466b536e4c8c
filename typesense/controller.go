package typesense

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
)

// ConfigPatch is a partial configuration update. Nil fields are left
// unchanged; a non-nil field replaces the current value.
type ConfigPatch struct {
	Host        *string   `json:"host,omitempty"`
	Protocol    *string   `json:"protocol,omitempty"`
	Port        *int      `json:"port,omitempty"`
	APIKey      *string   `json:"apiKey,omitempty"`
	Collection  *string   `json:"collection,omitempty"`
	QueryFields *[]string `json:"queryFields,omitempty"`
}

// ConfigStatus is the effective configuration reported after a patch.
// The API key is expressed only as a length, never as its value.
type ConfigStatus struct {
	Host        string   `json:"host"`
	Protocol    string   `json:"protocol"`
	Port        int      `json:"port"`
	Collection  string   `json:"collection"`
	QueryFields []string `json:"queryFields,omitempty"`
	KeyLength   int      `json:"keyLength"`
}

// HealthStatus is the result of a connectivity probe
type HealthStatus struct {
	Connected  bool     `json:"connected"`
	Host       string   `json:"host"`
	Protocol   string   `json:"protocol"`
	Port       int      `json:"port"`
	Collection string   `json:"collection"`
	Fields     []string `json:"fields"`
	Error      string   `json:"error,omitempty"`
}

// Controller applies runtime configuration changes to a search adapter
// and probes its backend
type Controller struct {
	adapter *Adapter
	logger  *slog.Logger
}

// NewController creates a controller for the given adapter
func NewController(adapter *Adapter, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Controller{adapter: adapter, logger: logger}
}

// Apply overlays the supplied fields on the current configuration, then
// unconditionally discards the client handle and cached query-field list
// so both are rebuilt on next use. Returns the effective configuration.
func (c *Controller) Apply(patch ConfigPatch) ConfigStatus {
	a := c.adapter

	a.mu.Lock()
	if patch.Host != nil {
		a.cfg.Host = strings.TrimSpace(*patch.Host)
	}
	if patch.Protocol != nil {
		a.cfg.Protocol = strings.TrimSpace(*patch.Protocol)
	}
	if patch.Port != nil {
		a.cfg.Port = *patch.Port
	}
	if patch.APIKey != nil {
		a.cfg.APIKey = strings.TrimSpace(*patch.APIKey)
	}
	if patch.Collection != nil {
		a.cfg.Collection = strings.TrimSpace(*patch.Collection)
	}
	if patch.QueryFields != nil {
		a.cfg.QueryFields = append([]string(nil), (*patch.QueryFields)...)
	}

	a.client = nil
	a.queryFields = nil
	a.gen++

	status := configStatus(a.cfg)
	a.mu.Unlock()

	c.logger.Info("search adapter reconfigured",
		"host", status.Host,
		"collection", status.Collection,
		"keyLength", status.KeyLength)
	return status
}

// Status reports the current effective configuration without changing it
func (c *Controller) Status() ConfigStatus {
	a := c.adapter
	a.mu.Lock()
	defer a.mu.Unlock()
	return configStatus(a.cfg)
}

func configStatus(cfg Config) ConfigStatus {
	protocol := cfg.Protocol
	if protocol == "" {
		protocol = "https"
	}
	port := cfg.Port
	if port == 0 {
		port = 443
	}
	return ConfigStatus{
		Host:        cfg.Host,
		Protocol:    protocol,
		Port:        port,
		Collection:  cfg.Collection,
		QueryFields: append([]string(nil), cfg.QueryFields...),
		KeyLength:   len(cfg.APIKey),
	}
}

// Health probes backend connectivity with a cheap query over the cached
// fields, falling back to schema introspection before reporting the
// backend as unreachable.
func (c *Controller) Health(ctx context.Context) HealthStatus {
	status := c.Status()
	health := HealthStatus{
		Host:       status.Host,
		Protocol:   status.Protocol,
		Port:       status.Port,
		Collection: status.Collection,
		Fields:     []string{},
	}

	client, fields, err := c.adapter.snapshot(ctx)
	if err != nil {
		health.Error = err.Error()
		return health
	}
	health.Fields = fields

	_, probeErr := client.Search(ctx, SearchParams{
		Query:   "*",
		QueryBy: fields[:1],
		PerPage: 1,
	})
	if probeErr == nil {
		health.Connected = true
		return health
	}

	// The probe query can fail for reasons short of unreachability, e.g.
	// restricted credentials. Introspection settles connectivity; the
	// query failure is still surfaced.
	if _, schemaErr := client.Schema(ctx); schemaErr == nil {
		health.Connected = true
		health.Error = probeErr.Error()
	} else {
		health.Error = mostInformative(probeErr, schemaErr).Error()
	}
	return health
}

// mostInformative prefers an error carrying a backend response over a
// bare transport failure
func mostInformative(primary, secondary error) error {
	var apiErr *APIError
	if errors.As(primary, &apiErr) {
		return primary
	}
	if errors.As(secondary, &apiErr) {
		return secondary
	}
	return primary
}
