package typesense

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
)

// defaultQueryFields is the free-text field set used when no explicit
// list is configured and schema introspection is unavailable
var defaultQueryFields = []string{"name", "brand", "category", "item_type", "description"}

// identifierFields are the candidate fields tried in turn when resolving
// product identifiers
var identifierFields = []string{"objectID", "object_id", "sku", "mfr_part_number", "vendor_part_number"}

const keywordResultLimit = 20

// Adapter executes product searches against a Typesense collection. It
// owns the backend client handle and the resolved query-field list, both
// built lazily and discarded whenever the configuration changes.
//
// Searches capture the client and field list at their start; a search
// overlapping a reconfiguration may complete against the prior snapshot.
type Adapter struct {
	mu          sync.Mutex
	cfg         Config
	client      *Client
	queryFields []string
	gen         uint64

	httpClient *http.Client
	logger     *slog.Logger
}

// AdapterOption configures an Adapter
type AdapterOption func(*Adapter)

// WithHTTPClient sets the HTTP client used for backend requests
func WithHTTPClient(client *http.Client) AdapterOption {
	return func(a *Adapter) {
		a.httpClient = client
	}
}

// WithLogger sets the logger used by the adapter
func WithLogger(logger *slog.Logger) AdapterOption {
	return func(a *Adapter) {
		a.logger = logger
	}
}

// NewAdapter creates a search adapter with the given initial configuration
func NewAdapter(cfg Config, opts ...AdapterOption) *Adapter {
	a := &Adapter{
		cfg:    cfg.clone(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Config returns a copy of the current configuration
func (a *Adapter) Config() Config {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cfg.clone()
}

// SearchRequest selects either the identifier-driven or the
// keyword-driven search path. Identifiers win whenever any are present.
type SearchRequest struct {
	ObjectIDs []string
	Keywords  string
	Category  string
}

// Search returns canonical product records for the request. It never
// fails: backend unavailability degrades to placeholders on the
// identifier path and to an empty list on the keyword path.
func (a *Adapter) Search(ctx context.Context, req SearchRequest) []ProductRecord {
	ids := dedupeFold(req.ObjectIDs)
	if len(ids) > 0 {
		return a.searchByIdentifiers(ctx, ids)
	}
	return a.searchByKeywords(ctx, req.Keywords, req.Category)
}

// snapshot returns the client and query-field list for one search,
// building either lazily. Installation back into the adapter is skipped
// if a reconfiguration happened in between.
func (a *Adapter) snapshot(ctx context.Context) (*Client, []string, error) {
	a.mu.Lock()
	cfg := a.cfg
	client := a.client
	fields := a.queryFields
	gen := a.gen
	a.mu.Unlock()

	if client == nil {
		built, err := NewClient(cfg, a.httpClient)
		if err != nil {
			return nil, nil, err
		}
		client = built

		a.mu.Lock()
		if a.gen == gen {
			if a.client == nil {
				a.client = client
			}
			client = a.client
		}
		a.mu.Unlock()
	}

	if fields == nil {
		fields = a.resolveQueryFields(ctx, client, cfg)

		a.mu.Lock()
		if a.gen == gen {
			if a.queryFields == nil {
				a.queryFields = fields
			}
			fields = a.queryFields
		}
		a.mu.Unlock()
	}

	return client, fields, nil
}

// resolveQueryFields picks the free-text query fields: an explicit
// configured list verbatim, else the collection's string-typed fields,
// else the fixed default set. Introspection failure is not an error.
func (a *Adapter) resolveQueryFields(ctx context.Context, client *Client, cfg Config) []string {
	if len(cfg.QueryFields) > 0 {
		return append([]string(nil), cfg.QueryFields...)
	}

	schema, err := client.Schema(ctx)
	if err != nil {
		a.logger.Debug("schema introspection failed, using default query fields", "error", err)
		return append([]string(nil), defaultQueryFields...)
	}

	var fields []string
	for _, f := range schema {
		if f.Type == "string" || f.Type == "string[]" {
			fields = append(fields, f.Name)
		}
	}
	if len(fields) == 0 {
		return append([]string(nil), defaultQueryFields...)
	}
	return fields
}

// searchByIdentifiers resolves each identifier to a record, trying one
// batch lookup per candidate field, then per-identifier lookups for
// anything the batch missed, and finally synthesizing placeholders. The
// output always has one record per input identifier, in input order.
func (a *Adapter) searchByIdentifiers(ctx context.Context, ids []string) []ProductRecord {
	resolved := make(map[string]ProductRecord, len(ids))

	client, _, err := a.snapshot(ctx)
	if err != nil {
		a.logger.Debug("search backend unavailable", "error", err)
	} else {
		a.batchLookup(ctx, client, ids, resolved)
		a.fillMissing(ctx, client, ids, resolved)
	}

	out := make([]ProductRecord, 0, len(ids))
	for _, id := range ids {
		rec, ok := resolved[strings.ToLower(id)]
		if !ok {
			out = append(out, placeholderRecord(id))
			continue
		}
		// A record resolved through a secondary field (sku, part number)
		// may carry a different primary identifier; the slot stays keyed
		// to what was asked for.
		if !strings.EqualFold(rec.ObjectID, id) {
			rec.ObjectID = id
			rec.URL = productURL(id)
		}
		out = append(out, rec)
	}
	return out
}

// batchLookup filters the collection by all identifiers at once, one
// candidate field at a time, stopping at the first field yielding hits
func (a *Adapter) batchLookup(ctx context.Context, client *Client, ids []string, resolved map[string]ProductRecord) {
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[strings.ToLower(id)] = true
	}

	for _, field := range identifierFields {
		result, err := client.Search(ctx, SearchParams{
			Query:    "*",
			QueryBy:  []string{field},
			FilterBy: filterEquals(field, ids...),
			PerPage:  len(ids),
		})
		if err != nil {
			a.logger.Debug("batch identifier lookup failed", "field", field, "error", err)
			continue
		}
		if len(result.Hits) == 0 {
			continue
		}

		for _, hit := range result.Hits {
			key := strings.ToLower(stringField(hit.Document, field))
			if key == "" || !wanted[key] {
				continue
			}
			if _, seen := resolved[key]; seen {
				continue
			}
			if rec, ok := normalizeRecord(hit.Document); ok {
				resolved[key] = rec
			}
		}
		return
	}
}

// fillMissing issues one filtered lookup per unresolved identifier across
// the candidate fields
func (a *Adapter) fillMissing(ctx context.Context, client *Client, ids []string, resolved map[string]ProductRecord) {
	for _, id := range ids {
		key := strings.ToLower(id)
		if _, ok := resolved[key]; ok {
			continue
		}
		for _, field := range identifierFields {
			result, err := client.Search(ctx, SearchParams{
				Query:    "*",
				QueryBy:  []string{field},
				FilterBy: filterEquals(field, id),
				PerPage:  1,
			})
			if err != nil || len(result.Hits) == 0 {
				continue
			}
			if rec, ok := normalizeRecord(result.Hits[0].Document); ok {
				resolved[key] = rec
				break
			}
		}
	}
}

// searchByKeywords runs one ranked free-text query, retrying once with a
// minimal single-field query and once with the full default field set
// before giving up and returning an empty list
func (a *Adapter) searchByKeywords(ctx context.Context, keywords, category string) []ProductRecord {
	client, fields, err := a.snapshot(ctx)
	if err != nil {
		a.logger.Debug("search backend unavailable", "error", err)
		return []ProductRecord{}
	}

	query := strings.TrimSpace(keywords)
	if query == "" {
		query = "*"
	}
	filter := ""
	if category != "" {
		filter = filterEquals("category", category)
	}

	attempts := [][]string{fields, {"name"}, defaultQueryFields}
	for _, queryBy := range attempts {
		result, err := client.Search(ctx, SearchParams{
			Query:    query,
			QueryBy:  queryBy,
			FilterBy: filter,
			PerPage:  keywordResultLimit,
		})
		if err != nil {
			a.logger.Debug("keyword search failed", "query_by", strings.Join(queryBy, ","), "error", err)
			continue
		}

		out := make([]ProductRecord, 0, len(result.Hits))
		for _, hit := range result.Hits {
			if rec, ok := normalizeRecord(hit.Document); ok {
				out = append(out, rec)
			}
		}
		return out
	}
	return []ProductRecord{}
}

// dedupeFold trims and deduplicates identifiers case-insensitively,
// preserving first-seen order
func dedupeFold(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		key := strings.ToLower(id)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, id)
	}
	return out
}
