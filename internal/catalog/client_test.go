package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jewelcraft/reprice-service/shared/logger"
)

func newStubServer(t *testing.T, handler func(w http.ResponseWriter, req graphqlRequest)) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "test-token", r.Header.Get(tokenHeader))

		var req graphqlRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		handler(w, req)
	}))
}

func productsPayload(hasNextPage bool) map[string]any {
	return map[string]any{
		"data": map[string]any{
			"products": map[string]any{
				"pageInfo": map[string]any{"hasNextPage": hasNextPage},
				"edges": []map[string]any{
					{
						"cursor": "cursor-1",
						"node": map[string]any{
							"id":    "gid://shopify/Product/1",
							"title": "Solitaire Ring",
							"metafields": map[string]any{
								"edges": []map[string]any{
									{"node": map[string]any{"namespace": "jewellery", "key": "18kt_metal_weight", "value": "2.0"}},
									{"node": map[string]any{"namespace": "jewellery", "key": "diamond_total_weight", "value": "0.5"}},
									{"node": map[string]any{"namespace": "jewellery", "key": "gemstone_total_weight", "value": "-"}},
								},
							},
							"variants": map[string]any{
								"edges": []map[string]any{
									{"node": map[string]any{"id": "gid://shopify/ProductVariant/11", "title": "18KT-Yellow/HI SI", "price": "15000.00"}},
									{"node": map[string]any{"id": "gid://shopify/ProductVariant/12", "title": "14KT-Rose/GH I1-I2", "price": "9000.00"}},
								},
							},
						},
					},
				},
			},
		},
	}
}

func TestClient_FetchPage(t *testing.T) {
	var gotCursor any
	srv := newStubServer(t, func(w http.ResponseWriter, req graphqlRequest) {
		gotCursor = req.Variables["cursor"]
		assert.EqualValues(t, 10, req.Variables["pageSize"])
		json.NewEncoder(w).Encode(productsPayload(true))
	})
	defer srv.Close()

	client := NewClientWithEndpoint(srv.URL, "test-token", logger.NewDefault().Logger)

	page, err := client.FetchPage(context.Background(), "", 10)
	require.NoError(t, err)
	assert.Nil(t, gotCursor)

	require.Len(t, page.Products, 1)
	assert.True(t, page.HasMore)
	assert.Equal(t, "cursor-1", page.NextCursor)

	product := page.Products[0]
	assert.Equal(t, "gid://shopify/Product/1", product.ID)
	assert.Equal(t, "Solitaire Ring", product.Title)
	assert.Equal(t, "2.0", product.Attributes[AttrMetalWeight18kt])
	require.Len(t, product.Variants, 2)
	assert.Equal(t, "18KT-Yellow/HI SI", product.Variants[0].Title)
	assert.Equal(t, 15000.0, product.Variants[0].Price)

	// A later page passes the cursor through.
	_, err = client.FetchPage(context.Background(), "cursor-1", 10)
	require.NoError(t, err)
	assert.Equal(t, "cursor-1", gotCursor)
}

func TestClient_FetchPage_Empty(t *testing.T) {
	srv := newStubServer(t, func(w http.ResponseWriter, req graphqlRequest) {
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"products": map[string]any{
					"pageInfo": map[string]any{"hasNextPage": false},
					"edges":    []any{},
				},
			},
		})
	})
	defer srv.Close()

	client := NewClientWithEndpoint(srv.URL, "test-token", logger.NewDefault().Logger)

	page, err := client.FetchPage(context.Background(), "", 10)
	require.NoError(t, err)
	assert.Empty(t, page.Products)
	assert.False(t, page.HasMore)
}

func TestClient_FetchPage_Malformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "graphql errors", body: `{"errors":[{"message":"throttled"}]}`},
		{name: "missing products block", body: `{"data":{}}`},
		{name: "not json", body: `<html>gateway error</html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newStubServer(t, func(w http.ResponseWriter, req graphqlRequest) {
				w.Write([]byte(tt.body))
			})
			defer srv.Close()

			client := NewClientWithEndpoint(srv.URL, "test-token", logger.NewDefault().Logger)

			_, err := client.FetchPage(context.Background(), "", 10)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedResponse)
		})
	}
}

func TestClient_UpdateVariantPrice(t *testing.T) {
	srv := newStubServer(t, func(w http.ResponseWriter, req graphqlRequest) {
		assert.Equal(t, "gid://shopify/Product/1", req.Variables["productId"])

		variants, ok := req.Variables["variants"].([]any)
		require.True(t, ok)
		require.Len(t, variants, 1)
		variant := variants[0].(map[string]any)
		assert.Equal(t, "gid://shopify/ProductVariant/11", variant["id"])
		assert.Equal(t, "17500.00", variant["price"])

		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"productVariantsBulkUpdate": map[string]any{
					"productVariants": []map[string]any{{"id": variant["id"], "price": variant["price"]}},
					"userErrors":      []any{},
				},
			},
		})
	})
	defer srv.Close()

	client := NewClientWithEndpoint(srv.URL, "test-token", logger.NewDefault().Logger)

	err := client.UpdateVariantPrice(context.Background(), "gid://shopify/Product/1", "gid://shopify/ProductVariant/11", 17500)
	require.NoError(t, err)
}

func TestClient_UpdateVariantPrice_UserErrors(t *testing.T) {
	srv := newStubServer(t, func(w http.ResponseWriter, req graphqlRequest) {
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"productVariantsBulkUpdate": map[string]any{
					"productVariants": []any{},
					"userErrors": []map[string]any{
						{"field": "price", "message": "Price must be positive"},
					},
				},
			},
		})
	})
	defer srv.Close()

	client := NewClientWithEndpoint(srv.URL, "test-token", logger.NewDefault().Logger)

	err := client.UpdateVariantPrice(context.Background(), "p1", "v1", -1)
	require.Error(t, err)

	var userErrs *UserErrorsError
	require.ErrorAs(t, err, &userErrs)
	assert.Contains(t, userErrs.Error(), "price: Price must be positive")
}

func TestClient_UpdateVariantPrice_HTTPError(t *testing.T) {
	srv := newStubServer(t, func(w http.ResponseWriter, req graphqlRequest) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	})
	defer srv.Close()

	client := NewClientWithEndpoint(srv.URL, "test-token", logger.NewDefault().Logger)

	err := client.UpdateVariantPrice(context.Background(), "p1", "v1", 100)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
}

func TestClient_Ping(t *testing.T) {
	srv := newStubServer(t, func(w http.ResponseWriter, req graphqlRequest) {
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"shop": map[string]any{"name": "Aurora Jewels"}},
		})
	})
	defer srv.Close()

	client := NewClientWithEndpoint(srv.URL, "test-token", logger.NewDefault().Logger)

	name, err := client.Ping(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Aurora Jewels", name)
}
