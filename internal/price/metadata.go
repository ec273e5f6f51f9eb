package price

import (
	"context"
	"fmt"

	"github.com/Klingon-tech/solwallet/internal/rpcclient"
	"github.com/Klingon-tech/solwallet/internal/walleterr"
)

// AssetMetadata is the display metadata of a token.
type AssetMetadata struct {
	Mint   string
	Name   string
	Symbol string
	Icon   string
}

// MetadataClient looks up token metadata from a DAS-style asset endpoint.
type MetadataClient struct {
	rpc *rpcclient.Client
}

// NewMetadataClient creates a client for the asset endpoint url.
func NewMetadataClient(url, apiKey string) *MetadataClient {
	return &MetadataClient{rpc: rpcclient.New(url, rpcclient.WithAPIKey(apiKey))}
}

type asset struct {
	ID      string `json:"id"`
	Content struct {
		Metadata struct {
			Name   string `json:"name"`
			Symbol string `json:"symbol"`
		} `json:"metadata"`
		Links struct {
			Image string `json:"image"`
		} `json:"links"`
		Files []struct {
			URI string `json:"uri"`
		} `json:"files"`
	} `json:"content"`
}

func (a asset) metadata() AssetMetadata {
	md := AssetMetadata{
		Mint:   a.ID,
		Name:   a.Content.Metadata.Name,
		Symbol: a.Content.Metadata.Symbol,
		Icon:   a.Content.Links.Image,
	}
	if md.Icon == "" && len(a.Content.Files) > 0 {
		md.Icon = a.Content.Files[0].URI
	}
	return md
}

// Asset returns the metadata of one mint.
func (c *MetadataClient) Asset(ctx context.Context, mint string) (AssetMetadata, error) {
	var res *asset
	if err := c.rpc.Call(ctx, "getAsset", map[string]string{"id": mint}, &res); err != nil {
		return AssetMetadata{}, fmt.Errorf("getAsset %s: %w", mint, err)
	}
	if res == nil {
		return AssetMetadata{}, fmt.Errorf("getAsset %s: %w", mint, walleterr.ErrNotFound)
	}
	return res.metadata(), nil
}

// AssetBatch returns the metadata of several mints. Unknown mints are
// skipped.
func (c *MetadataClient) AssetBatch(ctx context.Context, mints []string) ([]AssetMetadata, error) {
	if len(mints) == 0 {
		return nil, nil
	}
	var res []*asset
	if err := c.rpc.Call(ctx, "getAssetBatch", map[string][]string{"ids": mints}, &res); err != nil {
		return nil, fmt.Errorf("getAssetBatch: %w", err)
	}
	out := make([]AssetMetadata, 0, len(res))
	for _, a := range res {
		if a != nil {
			out = append(out, a.metadata())
		}
	}
	return out, nil
}
