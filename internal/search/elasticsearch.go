package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"example.com/rfidscan/config"
	"example.com/rfidscan/internal/scanlog"

	"github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esapi"
	"github.com/pkg/errors"
)

// ErrDisabled is returned by searches when indexing is switched off
var ErrDisabled = errors.New("scan search is disabled")

// ScanIndexer indexes accepted scans and searches them by tag
type ScanIndexer interface {
	IndexScan(ctx context.Context, doc ScanDocument) error
	SearchByTag(ctx context.Context, account scanlog.Account, tag scanlog.TagID, limit int) ([]ScanDocument, error)
}

// ScanDocument is the indexed form of one scan. Generation counts resets of
// the log and Epoch is the first transaction time of that generation.
type ScanDocument struct {
	Account    string  `json:"account"`
	Generation uint32  `json:"generation"`
	Epoch      uint32  `json:"epoch"`
	Seq        uint32  `json:"seq"`
	DeviceID   uint32  `json:"device_id"`
	TagUID     string  `json:"tag_uid"`
	ScanTime   uint32  `json:"scan_time"`
	RecvTime   uint32  `json:"recv_time"`
	Latency    float64 `json:"latency"`
}

// ElasticClient provides integration with Elasticsearch
type ElasticClient struct {
	client *elasticsearch.Client
	config config.ElasticConfig
}

type disabledIndexer struct{}

// NewScanIndexer creates an Elasticsearch indexer, or a no-op one when
// disabled in config
func NewScanIndexer(cfg config.ElasticConfig) (ScanIndexer, error) {
	if !cfg.Enabled {
		return disabledIndexer{}, nil
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Elasticsearch client")
	}

	return &ElasticClient{client: client, config: cfg}, nil
}

// NewScanDocument builds the document for the transaction at pos
func NewScanDocument(account scanlog.Account, pos scanlog.Position, event scanlog.ScanEvent) ScanDocument {
	return ScanDocument{
		Account:    string(account),
		Generation: pos.Generation,
		Epoch:      pos.TimeFirstTx,
		Seq:        pos.Seq,
		DeviceID:   event.DeviceID,
		TagUID:     event.TagID.String(),
		ScanTime:   event.ScanTime,
		RecvTime:   event.RecvTime,
		Latency:    event.Latency(),
	}
}

// ID is stable for a given transaction, so a retried index request
// overwrites instead of duplicating. Transactions from different
// generations never share an ID.
func (d ScanDocument) ID() string {
	return fmt.Sprintf("%s-%d-%d-%d", d.Account, d.Generation, d.Epoch, d.Seq)
}

// IndexScan indexes one scan document
func (c *ElasticClient) IndexScan(ctx context.Context, doc ScanDocument) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "failed to marshal scan document")
	}

	req := esapi.IndexRequest{
		Index:      c.config.Index,
		DocumentID: doc.ID(),
		Body:       bytes.NewReader(body),
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return errors.Wrap(err, "failed to execute Elasticsearch index request")
	}
	defer res.Body.Close()

	if res.IsError() {
		var e map[string]interface{}
		if err := json.NewDecoder(res.Body).Decode(&e); err != nil {
			return errors.Wrap(err, "failed to parse Elasticsearch error response")
		}
		return errors.Errorf("Elasticsearch index error: %v", e)
	}

	return nil
}

// SearchByTag returns the most recent indexed scans of a tag for an account
func (c *ElasticClient) SearchByTag(ctx context.Context, account scanlog.Account, tag scanlog.TagID, limit int) ([]ScanDocument, error) {
	if limit <= 0 {
		limit = 50
	}

	query := map[string]interface{}{
		"size": limit,
		"sort": []interface{}{
			map[string]interface{}{"recv_time": map[string]string{"order": "desc"}},
		},
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": []interface{}{
					map[string]interface{}{"term": map[string]string{"account.keyword": string(account)}},
					map[string]interface{}{"term": map[string]string{"tag_uid.keyword": tag.String()}},
				},
			},
		},
	}

	body, err := json.Marshal(query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal search query")
	}

	req := esapi.SearchRequest{
		Index: []string{c.config.Index},
		Body:  bytes.NewReader(body),
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute Elasticsearch search request")
	}
	defer res.Body.Close()

	if res.IsError() {
		var e map[string]interface{}
		if err := json.NewDecoder(res.Body).Decode(&e); err != nil {
			return nil, errors.Wrap(err, "failed to parse Elasticsearch error response")
		}
		return nil, errors.Errorf("Elasticsearch search error: %v", e)
	}

	return decodeHits(res.Body)
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source ScanDocument `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func decodeHits(r io.Reader) ([]ScanDocument, error) {
	var result searchResponse
	if err := json.NewDecoder(r).Decode(&result); err != nil {
		return nil, errors.Wrap(err, "failed to parse Elasticsearch search response")
	}

	docs := make([]ScanDocument, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		docs = append(docs, hit.Source)
	}
	return docs, nil
}

func (disabledIndexer) IndexScan(context.Context, ScanDocument) error {
	return nil
}

func (disabledIndexer) SearchByTag(context.Context, scanlog.Account, scanlog.TagID, int) ([]ScanDocument, error) {
	return nil, ErrDisabled
}
