package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const tokenHeader = "X-Shopify-Access-Token"

// ErrMalformedResponse is returned when the catalog API answers with a
// payload that cannot be interpreted. Pagination treats it as fatal: a
// silently truncated scan would leave stale prices on unseen variants.
var ErrMalformedResponse = errors.New("malformed catalog response")

// UserErrorsError carries the userErrors block of a failed price mutation.
type UserErrorsError struct {
	Errors []UserError
}

// UserError is a single field-level error from the catalog API.
type UserError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *UserErrorsError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, ue := range e.Errors {
		if ue.Field == "" {
			parts = append(parts, ue.Message)
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", ue.Field, ue.Message))
	}
	if len(parts) == 0 {
		return "price update rejected by catalog"
	}
	return "price update rejected by catalog: " + strings.Join(parts, "; ")
}

// Config holds catalog API client configuration
type Config struct {
	ShopName       string
	AdminToken     string
	APIVersion     string
	RequestTimeout time.Duration
}

// Client talks to the catalog's GraphQL admin API.
type Client struct {
	endpoint string
	token    string
	http     *http.Client
	logger   *slog.Logger
}

// NewClient creates a new catalog API client
func NewClient(cfg *Config, logger *slog.Logger) *Client {
	apiVersion := cfg.APIVersion
	if apiVersion == "" {
		apiVersion = "2024-10"
	}

	timeout := cfg.RequestTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		endpoint: fmt.Sprintf("https://%s.myshopify.com/admin/api/%s/graphql.json", cfg.ShopName, apiVersion),
		token:    cfg.AdminToken,
		http:     &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

// NewClientWithEndpoint creates a client against an explicit endpoint URL.
// Used by tests to point at a local stub server.
func NewClientWithEndpoint(endpoint, token string, logger *slog.Logger) *Client {
	return &Client{
		endpoint: endpoint,
		token:    token,
		http:     &http.Client{Timeout: 30 * time.Second},
		logger:   logger,
	}
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphqlError struct {
	Message string `json:"message"`
}

// metafieldConn and variantConn mirror the edges/node shape of the API.
type metafieldConn struct {
	Edges []struct {
		Node struct {
			Namespace string `json:"namespace"`
			Key       string `json:"key"`
			Value     string `json:"value"`
		} `json:"node"`
	} `json:"edges"`
}

type variantConn struct {
	Edges []struct {
		Node struct {
			ID    string `json:"id"`
			Title string `json:"title"`
			Price string `json:"price"`
		} `json:"node"`
	} `json:"edges"`
}

type productsResponse struct {
	Data struct {
		Products *struct {
			PageInfo struct {
				HasNextPage bool `json:"hasNextPage"`
			} `json:"pageInfo"`
			Edges []struct {
				Cursor string `json:"cursor"`
				Node   struct {
					ID         string        `json:"id"`
					Title      string        `json:"title"`
					Metafields metafieldConn `json:"metafields"`
					Variants   variantConn   `json:"variants"`
				} `json:"node"`
			} `json:"edges"`
		} `json:"products"`
	} `json:"data"`
	Errors []graphqlError `json:"errors"`
}

const productsQuery = `
query ($cursor: String, $pageSize: Int!) {
  products(first: $pageSize, after: $cursor, query: "status:active") {
    pageInfo {
      hasNextPage
    }
    edges {
      cursor
      node {
        id
        title
        metafields(first: 20) {
          edges {
            node {
              namespace
              key
              value
            }
          }
        }
        variants(first: 250) {
          edges {
            node {
              id
              title
              price
            }
          }
        }
      }
    }
  }
}`

// FetchPage fetches one page of products with their variants and attributes
// in a single query. An empty cursor starts from the beginning.
func (c *Client) FetchPage(ctx context.Context, cursor string, pageSize int) (Page, error) {
	variables := map[string]any{"pageSize": pageSize}
	if cursor != "" {
		variables["cursor"] = cursor
	}

	body, err := c.post(ctx, graphqlRequest{Query: productsQuery, Variables: variables})
	if err != nil {
		return Page{}, err
	}

	var resp productsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return Page{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if len(resp.Errors) > 0 {
		return Page{}, fmt.Errorf("%w: %s", ErrMalformedResponse, resp.Errors[0].Message)
	}

	block := resp.Data.Products
	if block == nil {
		return Page{}, fmt.Errorf("%w: missing products block", ErrMalformedResponse)
	}

	if len(block.Edges) == 0 {
		return Page{}, nil
	}

	page := Page{
		Products:   make([]ProductRecord, 0, len(block.Edges)),
		NextCursor: block.Edges[len(block.Edges)-1].Cursor,
		HasMore:    block.PageInfo.HasNextPage,
	}

	for _, edge := range block.Edges {
		product := ProductRecord{
			ID:         edge.Node.ID,
			Title:      edge.Node.Title,
			Attributes: make(map[string]string, len(edge.Node.Metafields.Edges)),
			Variants:   make([]VariantRecord, 0, len(edge.Node.Variants.Edges)),
		}

		for _, mf := range edge.Node.Metafields.Edges {
			product.Attributes[mf.Node.Key] = mf.Node.Value
		}

		for _, v := range edge.Node.Variants.Edges {
			price, _ := strconv.ParseFloat(v.Node.Price, 64)
			product.Variants = append(product.Variants, VariantRecord{
				ID:    v.Node.ID,
				Title: v.Node.Title,
				Price: price,
			})
		}

		page.Products = append(page.Products, product)
	}

	return page, nil
}

const updatePriceMutation = `
mutation UpdateVariantPrice($productId: ID!, $variants: [ProductVariantsBulkInput!]!) {
  productVariantsBulkUpdate(productId: $productId, variants: $variants) {
    productVariants {
      id
      price
    }
    userErrors {
      field
      message
    }
  }
}`

type updatePriceResponse struct {
	Data struct {
		ProductVariantsBulkUpdate *struct {
			UserErrors []UserError `json:"userErrors"`
		} `json:"productVariantsBulkUpdate"`
	} `json:"data"`
	Errors []graphqlError `json:"errors"`
}

// UpdateVariantPrice writes a new price for a single variant.
func (c *Client) UpdateVariantPrice(ctx context.Context, productID, variantID string, price float64) error {
	req := graphqlRequest{
		Query: updatePriceMutation,
		Variables: map[string]any{
			"productId": productID,
			"variants": []map[string]any{
				{
					"id":    variantID,
					"price": strconv.FormatFloat(price, 'f', 2, 64),
				},
			},
		},
	}

	body, err := c.post(ctx, req)
	if err != nil {
		return err
	}

	var resp updatePriceResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if len(resp.Errors) > 0 {
		return fmt.Errorf("price update failed: %s", resp.Errors[0].Message)
	}

	if resp.Data.ProductVariantsBulkUpdate == nil {
		return fmt.Errorf("%w: missing mutation result", ErrMalformedResponse)
	}

	if userErrors := resp.Data.ProductVariantsBulkUpdate.UserErrors; len(userErrors) > 0 {
		return &UserErrorsError{Errors: userErrors}
	}

	c.logger.Debug("Variant price updated",
		slog.String("product_id", productID),
		slog.String("variant_id", variantID),
		slog.Float64("price", price),
	)

	return nil
}

type shopResponse struct {
	Data struct {
		Shop *struct {
			Name string `json:"name"`
		} `json:"shop"`
	} `json:"data"`
	Errors []graphqlError `json:"errors"`
}

// Ping verifies API connectivity and credentials with a minimal shop query.
func (c *Client) Ping(ctx context.Context) (string, error) {
	body, err := c.post(ctx, graphqlRequest{Query: `{ shop { name } }`})
	if err != nil {
		return "", err
	}

	var resp shopResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if len(resp.Errors) > 0 {
		return "", fmt.Errorf("shop query failed: %s", resp.Errors[0].Message)
	}

	if resp.Data.Shop == nil {
		return "", fmt.Errorf("%w: missing shop block", ErrMalformedResponse)
	}

	return resp.Data.Shop.Name, nil
}

// post sends a GraphQL request and returns the raw response body.
func (c *Client) post(ctx context.Context, payload graphqlRequest) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(tokenHeader, c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return body, nil
}
