// Package search indexes the latest resolved records in Meilisearch so
// the dashboard can offer name/location lookup without another probe.
package search

import (
	"crypto/md5"
	"fmt"

	"github.com/meilisearch/meilisearch-go"

	"availability-portal/internal/models"
)

// IndexedRecord is the search document for one availability record.
// ID is derived from the name so re-indexing a newer snapshot overwrites
// the same entity instead of accumulating duplicates.
type IndexedRecord struct {
	ID             string `json:"id"`
	Date           string `json:"date"`
	Name           string `json:"name"`
	Category       string `json:"category"`
	Location       string `json:"location,omitempty"`
	DaysOut        int    `json:"days_until_available"`
	FirstAvailable string `json:"first_available,omitempty"`
	SignupURL      string `json:"signup_url,omitempty"`
}

type SearchClient struct {
	client *meilisearch.Client
	index  string
}

func NewSearchClient(host, apiKey string) *SearchClient {
	client := meilisearch.NewClient(meilisearch.ClientConfig{
		Host:   host,
		APIKey: apiKey,
	})

	return &SearchClient{
		client: client,
		index:  "availability_records",
	}
}

// InitIndex initializes the Meilisearch index
func (s *SearchClient) InitIndex() error {
	_, err := s.client.CreateIndex(&meilisearch.IndexConfig{
		Uid:        s.index,
		PrimaryKey: "id",
	})
	// Ignore error if index already exists
	if err != nil && err.Error() != "index already exists" {
		return err
	}

	_, err = s.client.Index(s.index).UpdateSearchableAttributes(&[]string{
		"name",
		"location",
		"category",
	})
	if err != nil {
		return err
	}

	_, err = s.client.Index(s.index).UpdateFilterableAttributes(&[]string{
		"category",
		"date",
		"days_until_available",
	})
	if err != nil {
		return err
	}

	_, err = s.client.Index(s.index).UpdateSortableAttributes(&[]string{
		"days_until_available",
		"name",
	})
	return err
}

// IndexSnapshot indexes every record of a resolved day.
func (s *SearchClient) IndexSnapshot(snap *models.DaySnapshot) error {
	if len(snap.Records) == 0 {
		return nil
	}
	docs := make([]IndexedRecord, 0, len(snap.Records))
	for _, r := range snap.Records {
		docs = append(docs, IndexedRecord{
			ID:             recordID(r.Name),
			Date:           snap.DateKey,
			Name:           r.Name,
			Category:       r.Category,
			Location:       r.Location,
			DaysOut:        r.DaysOut,
			FirstAvailable: r.FirstAvailable,
			SignupURL:      r.SignupURL,
		})
	}
	_, err := s.client.Index(s.index).AddDocuments(docs)
	return err
}

// Search runs a basic query over the indexed records.
func (s *SearchClient) Search(query string, limit int64) ([]IndexedRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	searchRes, err := s.client.Index(s.index).Search(query, &meilisearch.SearchRequest{
		Limit: limit,
	})
	if err != nil {
		return nil, err
	}

	records := make([]IndexedRecord, 0, len(searchRes.Hits))
	for _, hit := range searchRes.Hits {
		records = append(records, parseRecordFromHit(hit))
	}
	return records, nil
}

// parseRecordFromHit converts a search hit back into an IndexedRecord.
func parseRecordFromHit(hit interface{}) IndexedRecord {
	hitMap, ok := hit.(map[string]interface{})
	if !ok {
		return IndexedRecord{}
	}

	record := IndexedRecord{
		ID:             getString(hitMap, "id"),
		Date:           getString(hitMap, "date"),
		Name:           getString(hitMap, "name"),
		Category:       getString(hitMap, "category"),
		Location:       getString(hitMap, "location"),
		FirstAvailable: getString(hitMap, "first_available"),
		SignupURL:      getString(hitMap, "signup_url"),
		DaysOut:        models.UnknownWait,
	}
	if days, ok := hitMap["days_until_available"].(float64); ok {
		record.DaysOut = int(days)
	}
	return record
}

// getString safely extracts a string from map
func getString(m map[string]interface{}, key string) string {
	if val, ok := m[key].(string); ok {
		return val
	}
	return ""
}

func recordID(name string) string {
	hash := md5.Sum([]byte(name))
	return fmt.Sprintf("%x", hash)
}
