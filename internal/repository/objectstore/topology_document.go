package objectstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/zzenonn/zpicker/internal/domain"
)

// TopologyDocument is the JSON layout of a stored topology. A bare JSON array
// of nodes is accepted as well.
type TopologyDocument struct {
	Nodes []domain.StorageNode `json:"nodes"`
}

// DocumentSource reads storage node reports from one object.
type DocumentSource struct {
	repo ObjectRepository
	key  string
}

// NewDocumentSource creates a source reading key from repo.
func NewDocumentSource(repo ObjectRepository, key string) *DocumentSource {
	return &DocumentSource{repo: repo, key: key}
}

// ListNodes downloads and decodes the topology document.
func (s *DocumentSource) ListNodes(ctx context.Context) ([]domain.StorageNode, error) {
	body, err := s.repo.Download(ctx, s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to download topology document %s: %w", s.key, err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read topology document %s: %w", s.key, err)
	}
	return DecodeTopology(data)
}

// DecodeTopology parses either a TopologyDocument or a bare node array.
func DecodeTopology(data []byte) ([]domain.StorageNode, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var nodes []domain.StorageNode
		if err := json.Unmarshal(data, &nodes); err != nil {
			return nil, fmt.Errorf("failed to decode topology: %w", err)
		}
		return nodes, nil
	}

	var doc TopologyDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode topology: %w", err)
	}
	return doc.Nodes, nil
}
