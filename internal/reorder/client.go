// Package reorder suggests restock quantities. The reorder decision comes
// from an external stock prediction service when it is reachable and from
// a local minimum-stock heuristic when it is not, so advice stays
// available offline.
package reorder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/ScepterCode/Storemaster-sub002/internal/model"
	"github.com/ScepterCode/Storemaster-sub002/pkg/config"
)

// PredictionRequest mirrors the prediction service's input schema. The
// pricing fields and category are required by the model; profit margin is
// omitted and derived service-side.
type PredictionRequest struct {
	ProductID         string  `json:"product_id,omitempty"`
	CostPrice         float64 `json:"cost_price"`
	SellingPrice      float64 `json:"selling_price"`
	ReorderFrequency  int     `json:"reorder_frequency"`
	CurrentStock      int     `json:"current_stock"`
	MinimumStockLevel int     `json:"minimum_stock_level"`
	Category          string  `json:"category"`
	Brand             string  `json:"brand,omitempty"`
	Supplier          string  `json:"supplier,omitempty"`
}

// PredictionResponse is the service's classification: whether the product
// needs reordering and how confident the model is. The restock amount is
// derived locally from the stock levels.
type PredictionResponse struct {
	ReorderRequired      bool    `json:"reorder_required"`
	Confidence           float64 `json:"confidence"`
	ProbabilityReorder   float64 `json:"probability_reorder"`
	ProbabilityNoReorder float64 `json:"probability_no_reorder"`
	ModelVersion         string  `json:"model_version"`
}

// Suggestion is one restock recommendation.
type Suggestion struct {
	ProductID       string  `json:"product_id"`
	ProductName     string  `json:"product_name"`
	CurrentStock    int     `json:"current_stock"`
	SuggestedAmount int     `json:"suggested_amount"`
	Confidence      float64 `json:"confidence,omitempty"`

	// Source is "prediction" when the remote model answered and
	// "heuristic" when the local fallback did.
	Source string `json:"source"`
}

// Client calls the stock prediction service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a prediction service client.
func NewClient(cfg config.ReorderConfig, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    cfg.PredictionURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// Suggest returns a restock suggestion for the product, or nil when no
// restock is needed. Remote failure degrades to the heuristic rather than
// erroring.
func (c *Client) Suggest(ctx context.Context, product *model.Product) (*Suggestion, error) {
	// The model schema rejects non-positive prices, so products without
	// pricing data can only be scored locally.
	if product.CostPrice <= 0 || product.Price <= 0 {
		return heuristic(product), nil
	}

	resp, err := c.predict(ctx, product)
	if err != nil {
		c.logger.Warn("Prediction service unavailable, using heuristic",
			zap.String("product_id", product.ID),
			zap.Error(err))
		return heuristic(product), nil
	}
	if !resp.ReorderRequired {
		return nil, nil
	}
	amount := restockAmount(product)
	if amount <= 0 {
		return nil, nil
	}
	return &Suggestion{
		ProductID:       product.ID,
		ProductName:     product.Name,
		CurrentStock:    product.Stock,
		SuggestedAmount: amount,
		Confidence:      resp.Confidence,
		Source:          "prediction",
	}, nil
}

func (c *Client) predict(ctx context.Context, product *model.Product) (*PredictionResponse, error) {
	// The schema defaults the frequency to 30 days and rejects zero.
	freq := product.ReorderFrequency
	if freq < 1 {
		freq = 30
	}
	category := product.CategoryID
	if category == "" {
		category = "uncategorized"
	}

	body, err := json.Marshal(PredictionRequest{
		ProductID:         product.ID,
		CostPrice:         product.CostPrice,
		SellingPrice:      product.Price,
		ReorderFrequency:  freq,
		CurrentStock:      product.Stock,
		MinimumStockLevel: product.MinimumStockLevel,
		Category:          category,
		Brand:             product.Brand,
		Supplier:          product.Supplier,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("prediction service returned %d: %s", resp.StatusCode, string(respBody))
	}

	var out PredictionResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// restockAmount tops the product up to twice its minimum stock level,
// three times for products restocked less than monthly.
func restockAmount(product *model.Product) int {
	if product.MinimumStockLevel <= 0 {
		return 0
	}
	target := product.MinimumStockLevel * 2
	if product.ReorderFrequency > 30 {
		target = product.MinimumStockLevel * 3
	}
	return target - product.Stock
}

// heuristic suggests a top-up once the product drops to or below its
// minimum stock level.
func heuristic(product *model.Product) *Suggestion {
	if product.MinimumStockLevel <= 0 || product.Stock > product.MinimumStockLevel {
		return nil
	}
	amount := restockAmount(product)
	if amount <= 0 {
		return nil
	}
	return &Suggestion{
		ProductID:       product.ID,
		ProductName:     product.Name,
		CurrentStock:    product.Stock,
		SuggestedAmount: amount,
		Source:          "heuristic",
	}
}
