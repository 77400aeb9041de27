package docstore

import (
	"path"
	"strings"
	"time"

	"github.com/fiscalia-cloud/fiscalia/internal/domain"
)

// documentDTO is the normalized JSON shape the collection pipeline writes
// to the object store. Field names follow the pipeline's French schema.
type documentDTO struct {
	ID        string `json:"id"`
	Titre     string `json:"titre"`
	Contenu   string `json:"contenu"`
	SourceURL string `json:"source_url"`
	Hostname  string `json:"hostname"`
	Taille    int64  `json:"taille"`
}

// toDomain converts the DTO into a domain Document. Missing optional
// fields are derived from the object key and payload.
func (d documentDTO) toDomain(key string, rawSize int64, cachedAt time.Time) domain.Document {
	id := d.ID
	if id == "" {
		id = strings.TrimSuffix(path.Base(key), ".json")
	}

	size := d.Taille
	if size == 0 {
		size = rawSize
	}

	hostname := d.Hostname
	if hostname == "" {
		hostname = hostnameFromURL(d.SourceURL)
	}

	return domain.Document{
		ID:        id,
		Title:     d.Titre,
		Content:   d.Contenu,
		SourceURL: d.SourceURL,
		Hostname:  hostname,
		Size:      size,
		CachedAt:  cachedAt,
	}
}

func hostnameFromURL(rawURL string) string {
	rest := rawURL
	if i := strings.Index(rest, "://"); i >= 0 {
		rest = rest[i+3:]
	}
	if i := strings.IndexAny(rest, "/?#"); i >= 0 {
		rest = rest[:i]
	}
	return rest
}
