package search

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/meilisearch/meilisearch-go"

	"tecnomadas-portal/internal/apperr"
	"tecnomadas-portal/internal/models"
)

// Indexer keeps the full-text index in step with the catalog
type Indexer interface {
	IndexProperties(properties []models.Property) error
	DeleteProperty(id string) error
	Search(req SearchRequest) (*SearchResult, error)
	Reindex(properties []models.Property) error
}

// Document is the indexed view of an active property
type Document struct {
	ID          string   `json:"id"`
	Title       string   `json:"titulo"`
	Description string   `json:"descripcion"`
	Type        string   `json:"tipo_propiedad"`
	Location    string   `json:"ubicacion"`
	Price       float64  `json:"precio"`
	Bedrooms    *int     `json:"dormitorios,omitempty"`
	Bathrooms   *int     `json:"banos,omitempty"`
	Features    []string `json:"caracteristicas"`
	ImageURL    string   `json:"imagen,omitempty"`
	CreatedAt   int64    `json:"created_at"`
	Geo         *geo     `json:"_geo,omitempty"`
}

type geo struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// NewDocument flattens a property for indexing. Inline data: images are
// left out to keep documents small.
func NewDocument(p *models.Property) Document {
	doc := Document{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Type:        string(p.Type),
		Location:    p.Location,
		Price:       p.Price,
		Bedrooms:    p.Bedrooms,
		Bathrooms:   p.Bathrooms,
		Features:    p.Features,
		CreatedAt:   p.CreatedAt.Unix(),
	}
	if doc.Features == nil {
		doc.Features = []string{}
	}
	if img := p.PrimaryImage(); img != nil && !strings.HasPrefix(img.URL, "data:") {
		doc.ImageURL = img.URL
	}
	if p.Latitude != nil && p.Longitude != nil {
		doc.Geo = &geo{Lat: *p.Latitude, Lng: *p.Longitude}
	}
	return doc
}

// SearchRequest represents full-text search parameters
type SearchRequest struct {
	Query   string
	Filters Filters
	Limit   int64
	Offset  int64
}

// SearchResult holds the ranked hits of a query
type SearchResult struct {
	Hits           []Document `json:"hits"`
	TotalHits      int64      `json:"total_hits"`
	ProcessingTime int64      `json:"processing_time_ms"`
}

// IDs returns hit ids in rank order
func (r *SearchResult) IDs() []string {
	ids := make([]string, len(r.Hits))
	for i, h := range r.Hits {
		ids[i] = h.ID
	}
	return ids
}

type SearchClient struct {
	client *meilisearch.Client
	index  string
}

func NewSearchClient(host, apiKey, index string) *SearchClient {
	client := meilisearch.NewClient(meilisearch.ClientConfig{
		Host:   host,
		APIKey: apiKey,
	})
	if index == "" {
		index = "properties"
	}

	return &SearchClient{
		client: client,
		index:  index,
	}
}

// InitIndex initializes the Meilisearch index
func (s *SearchClient) InitIndex() error {
	// Create index if it doesn't exist
	_, err := s.client.CreateIndex(&meilisearch.IndexConfig{
		Uid:        s.index,
		PrimaryKey: "id",
	})
	if err != nil && !strings.Contains(err.Error(), "index_already_exists") {
		return err
	}

	idx := s.client.Index(s.index)
	if _, err = idx.UpdateSearchableAttributes(&[]string{
		"titulo",
		"ubicacion",
		"descripcion",
		"caracteristicas",
	}); err != nil {
		return err
	}

	if _, err = idx.UpdateFilterableAttributes(&[]string{
		"tipo_propiedad",
		"precio",
		"dormitorios",
		"banos",
		"_geo",
	}); err != nil {
		return err
	}

	if _, err = idx.UpdateSortableAttributes(&[]string{
		"precio",
		"created_at",
		"_geo",
	}); err != nil {
		return err
	}

	return nil
}

// IndexProperties adds or replaces documents for the given properties
func (s *SearchClient) IndexProperties(properties []models.Property) error {
	if len(properties) == 0 {
		return nil
	}
	docs := make([]Document, len(properties))
	for i := range properties {
		docs[i] = NewDocument(&properties[i])
	}
	_, err := s.client.Index(s.index).AddDocuments(docs, "id")
	return err
}

// DeleteProperty removes one document
func (s *SearchClient) DeleteProperty(id string) error {
	_, err := s.client.Index(s.index).DeleteDocument(id)
	return err
}

// Reindex drops every document and indexes properties from scratch
func (s *SearchClient) Reindex(properties []models.Property) error {
	if _, err := s.client.Index(s.index).DeleteAllDocuments(); err != nil {
		return err
	}
	return s.IndexProperties(properties)
}

// Search runs a ranked query. Structured filters are applied by the engine,
// the location substring becomes part of the query text.
func (s *SearchClient) Search(req SearchRequest) (*SearchResult, error) {
	if req.Limit == 0 {
		req.Limit = 20
	}

	searchReq := &meilisearch.SearchRequest{
		Limit:  req.Limit,
		Offset: req.Offset,
	}
	if filter := req.Filters.MeiliFilter(); filter != "" {
		searchReq.Filter = filter
	}

	query := strings.TrimSpace(strings.Join([]string{req.Query, req.Filters.Location}, " "))
	searchRes, err := s.client.Index(s.index).Search(query, searchReq)
	if err != nil {
		return nil, err
	}

	hits := make([]Document, 0, len(searchRes.Hits))
	for _, hit := range searchRes.Hits {
		doc, err := parseHit(hit)
		if err != nil {
			slog.Warn("skipping malformed search hit", "error", err)
			continue
		}
		hits = append(hits, doc)
	}

	return &SearchResult{
		Hits:           hits,
		TotalHits:      searchRes.EstimatedTotalHits,
		ProcessingTime: searchRes.ProcessingTimeMs,
	}, nil
}

// MeiliFilter renders the structured filter fields as a Meilisearch filter
// expression.
func (f Filters) MeiliFilter() string {
	var clauses []string
	if f.Type != "" {
		clauses = append(clauses, fmt.Sprintf("tipo_propiedad = %q", string(f.Type)))
	}
	if f.PriceMin != nil {
		clauses = append(clauses, "precio >= "+strconv.FormatFloat(*f.PriceMin, 'f', -1, 64))
	}
	if f.PriceMax != nil {
		clauses = append(clauses, "precio <= "+strconv.FormatFloat(*f.PriceMax, 'f', -1, 64))
	}
	if f.MinBedrooms != nil {
		clauses = append(clauses, fmt.Sprintf("dormitorios >= %d", *f.MinBedrooms))
	}
	if f.MinBathrooms != nil {
		clauses = append(clauses, fmt.Sprintf("banos >= %d", *f.MinBathrooms))
	}
	return strings.Join(clauses, " AND ")
}

// parseHit converts a search hit to a Document
func parseHit(hit interface{}) (Document, error) {
	raw, err := json.Marshal(hit)
	if err != nil {
		return Document{}, err
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// ErrDisabled is returned by searches when no engine is configured
var ErrDisabled = apperr.New(apperr.KindUnavailable, "full-text search is not enabled")

// Disabled is the Indexer used when no search engine is configured
type Disabled struct{}

func (Disabled) IndexProperties([]models.Property) error { return nil }
func (Disabled) DeleteProperty(string) error             { return nil }
func (Disabled) Reindex([]models.Property) error         { return nil }

func (Disabled) Search(SearchRequest) (*SearchResult, error) {
	return nil, ErrDisabled
}

// Sync mirrors the active state of p into idx, logging failures
func Sync(idx Indexer, p *models.Property) {
	var err error
	if p.Active {
		err = idx.IndexProperties([]models.Property{*p})
	} else {
		err = idx.DeleteProperty(p.ID)
	}
	if err != nil {
		slog.Warn("search index update failed", "property_id", p.ID, "error", err)
	}
}
