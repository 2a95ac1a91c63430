package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Key layout in the store
const (
	KeyPrefix           = "item:"
	KeyPattern          = KeyPrefix + "*"
	DescriptionIndexSet = "search:descriptions"
	RepositoryIndexSet  = "search:repositories"
	IndexMarkerKey      = "search:index"
)

// Hash field names
const (
	FieldID                    = "id"
	FieldRepositoryName        = "github_repository_name"
	FieldDescription           = "github_description"
	FieldHomepageURL           = "homepage_url"
	FieldURL                   = "url"
	FieldIsTemplate            = "is_template"
	FieldCategory              = "category"
	FieldCreatedAt             = "createdAt"
	FieldUpdatedAt             = "updatedAt"
	FieldDescriptionEmbeddings = "descriptionEmbeddings"
	FieldRepositoryEmbeddings  = "repositoryEmbeddings"
	FieldCombinedEmbeddings    = "combinedEmbeddings"
)

// TimestampLayout is RFC 3339 in UTC with millisecond precision
const TimestampLayout = "2006-01-02T15:04:05.000Z"

var nowFunc = time.Now

// ErrFieldMissing is returned when a record lacks a requested field
var ErrFieldMissing = errors.New("field missing from record")

// Item is a catalog entry with its three embeddings
type Item struct {
	ID                    string
	RepositoryName        string
	Description           string
	HomepageURL           string
	URL                   string
	IsTemplate            bool
	Category              string
	CreatedAt             string
	UpdatedAt             string
	DescriptionEmbeddings []float32
	RepositoryEmbeddings  []float32
	CombinedEmbeddings    []float32
}

// ItemView is the public projection of an item without embeddings
type ItemView struct {
	ID             string `json:"id"`
	RepositoryName string `json:"github_repository_name"`
	Description    string `json:"github_description"`
	HomepageURL    string `json:"homepage_url"`
	URL            string `json:"url"`
	IsTemplate     bool   `json:"is_template"`
	Category       string `json:"category"`
	CreatedAt      string `json:"createdAt"`
	UpdatedAt      string `json:"updatedAt"`
}

// NewItemID returns a fresh id of the form item:<unix-millis>:<suffix>
func NewItemID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("%s%d:%s", KeyPrefix, now.UnixMilli(), suffix)
}

// FormatTimestamp renders t in the stored timestamp layout
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// View returns the public projection of the item
func (i *Item) View() ItemView {
	return ItemView{
		ID:             i.ID,
		RepositoryName: i.RepositoryName,
		Description:    i.Description,
		HomepageURL:    i.HomepageURL,
		URL:            i.URL,
		IsTemplate:     i.IsTemplate,
		Category:       i.Category,
		CreatedAt:      i.CreatedAt,
		UpdatedAt:      i.UpdatedAt,
	}
}

// Fields encodes the item as hash fields. Embeddings are stored as JSON arrays.
func (i *Item) Fields() (map[string]string, error) {
	fields := map[string]string{
		FieldID:             i.ID,
		FieldRepositoryName: i.RepositoryName,
		FieldDescription:    i.Description,
		FieldHomepageURL:    i.HomepageURL,
		FieldURL:            i.URL,
		FieldIsTemplate:     fmt.Sprintf("%t", i.IsTemplate),
		FieldCategory:       i.Category,
		FieldCreatedAt:      i.CreatedAt,
		FieldUpdatedAt:      i.UpdatedAt,
	}

	embeddings := map[string][]float32{
		FieldDescriptionEmbeddings: i.DescriptionEmbeddings,
		FieldRepositoryEmbeddings:  i.RepositoryEmbeddings,
		FieldCombinedEmbeddings:    i.CombinedEmbeddings,
	}
	for field, vector := range embeddings {
		if len(vector) == 0 {
			return nil, fmt.Errorf("%s: %w", field, ErrFieldMissing)
		}
		encoded, err := json.Marshal(vector)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", field, err)
		}
		fields[field] = string(encoded)
	}

	return fields, nil
}

// Record is a raw item hash as read from the store
type Record map[string]string

// View projects the record for callers. The key is authoritative for the id.
func (r Record) View(key string) ItemView {
	return ItemView{
		ID:             key,
		RepositoryName: r[FieldRepositoryName],
		Description:    r[FieldDescription],
		HomepageURL:    r[FieldHomepageURL],
		URL:            r[FieldURL],
		IsTemplate:     r[FieldIsTemplate] == "true",
		Category:       r[FieldCategory],
		CreatedAt:      r[FieldCreatedAt],
		UpdatedAt:      r[FieldUpdatedAt],
	}
}

// Embedding decodes one of the embedding fields
func (r Record) Embedding(field string) ([]float32, error) {
	raw, ok := r[field]
	if !ok || raw == "" {
		return nil, ErrFieldMissing
	}

	var vector []float32
	if err := json.Unmarshal([]byte(raw), &vector); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", field, err)
	}
	return vector, nil
}

// CreatedAt parses the creation timestamp
func (r Record) CreatedAt() (time.Time, bool) {
	t, err := time.Parse(time.RFC3339Nano, r[FieldCreatedAt])
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
