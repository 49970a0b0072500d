package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"shoplink/internal/config"
	"shoplink/internal/logger"
	"shoplink/internal/models"

	"gorm.io/gorm"
)

var (
	// ErrNotFound means the product does not exist.
	ErrNotFound = errors.New("enrich: product not found")
	// ErrForbidden means the product belongs to another merchant.
	ErrForbidden = errors.New("enrich: forbidden")
	// ErrUnknownKind means the requested enrichment kind is not supported.
	ErrUnknownKind = errors.New("enrich: unknown enrichment kind")
)

// fallbackModel is recorded when content came from the deterministic
// fallback instead of the model.
const fallbackModel = "fallback"

// Enricher rewrites product content with the merchant's preferred model,
// falling back to deterministic copy when the model is unavailable.
type Enricher struct {
	db         *gorm.DB
	config     *config.Config
	logger     *logger.Logger
	httpClient *http.Client
}

func New(db *gorm.DB, cfg *config.Config, log *logger.Logger) *Enricher {
	return &Enricher{
		db:     db,
		config: cfg,
		logger: log,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// OpenAI API structures
type openAIRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponse struct {
	Choices []choice `json:"choices"`
}

type choice struct {
	Message message `json:"message"`
}

// enrichmentResult holds the generated content for whichever fields the
// kind covers.
type enrichmentResult struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// Enrich generates content for the product and applies it. Every run is
// recorded as an EnrichmentLog row; runs that fell back after a model
// error keep the error message alongside the fallback output.
func (e *Enricher) Enrich(ctx context.Context, ownerID, productID string, kind models.EnrichmentKind) (*models.Product, *models.EnrichmentLog, error) {
	switch kind {
	case models.EnrichmentKindTitle, models.EnrichmentKindDescription,
		models.EnrichmentKindCategory, models.EnrichmentKindFull:
	default:
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}

	var product models.Product
	if err := e.db.WithContext(ctx).First(&product, "id = ?", productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}
	if product.OwnerID != ownerID {
		return nil, nil, ErrForbidden
	}

	settings := e.settingsFor(ctx, ownerID)
	input := models.JSONB{
		"name":     product.Name,
		"price":    product.Price,
		"currency": product.Currency,
	}
	if product.Description != nil {
		input["description"] = *product.Description
	}
	if product.Category != nil {
		input["category"] = *product.Category
	}

	started := time.Now()
	result, model, aiErr := e.generate(ctx, &product, settings, kind)
	if aiErr != nil {
		e.logger.Error("AI enrichment failed, using fallback: %v", aiErr)
		result = e.fallback(&product, kind)
		model = fallbackModel
	}

	output := models.JSONB{}
	if result.Name != "" && (kind == models.EnrichmentKindTitle || kind == models.EnrichmentKindFull) {
		product.Name = result.Name
		output["name"] = result.Name
	}
	if result.Description != "" && (kind == models.EnrichmentKindDescription || kind == models.EnrichmentKindFull) {
		product.Description = &result.Description
		output["description"] = result.Description
	}
	if result.Category != "" && (kind == models.EnrichmentKindCategory || kind == models.EnrichmentKindFull) {
		product.Category = &result.Category
		output["category"] = result.Category
	}

	now := time.Now().UTC()
	product.AIEnriched = true
	product.AIEnrichedAt = &now
	product.AIModelUsed = &model
	if product.Status == models.ProductStatusDraft {
		product.Status = models.ProductStatusReady
	}
	if err := e.db.WithContext(ctx).Save(&product).Error; err != nil {
		return nil, nil, err
	}

	logRow := models.EnrichmentLog{
		OwnerID:    ownerID,
		ProductID:  product.ID,
		Kind:       kind,
		Model:      model,
		Input:      input,
		Output:     output,
		DurationMs: time.Since(started).Milliseconds(),
		Status:     models.EnrichmentStatusSuccess,
	}
	if aiErr != nil {
		msg := aiErr.Error()
		logRow.Status = models.EnrichmentStatusFailed
		logRow.ErrorMessage = &msg
	}
	if err := e.db.WithContext(ctx).Create(&logRow).Error; err != nil {
		e.logger.Error("failed to record enrichment log: %v", err)
	}

	e.logger.Info("enriched product %s (%s) with %s in %dms", product.ID, kind, model, logRow.DurationMs)
	return &product, &logRow, nil
}

// History returns the merchant's enrichment runs for one product.
func (e *Enricher) History(ctx context.Context, ownerID, productID string) ([]models.EnrichmentLog, error) {
	var logs []models.EnrichmentLog
	err := e.db.WithContext(ctx).
		Where("owner_id = ? AND product_id = ?", ownerID, productID).
		Order("created_at DESC").
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}

func (e *Enricher) settingsFor(ctx context.Context, ownerID string) *models.MerchantSettings {
	var settings models.MerchantSettings
	err := e.db.WithContext(ctx).First(&settings, "owner_id = ?", ownerID).Error
	if err != nil {
		return &models.MerchantSettings{
			OwnerID:           ownerID,
			AITone:            "professional",
			AIModelPreference: "gpt-4",
		}
	}
	return &settings
}

func (e *Enricher) generate(ctx context.Context, product *models.Product, settings *models.MerchantSettings, kind models.EnrichmentKind) (enrichmentResult, string, error) {
	model := settings.AIModelPreference
	if model == "" {
		model = "gpt-4"
	}
	tone := settings.AITone
	if tone == "" {
		tone = "professional"
	}

	productJSON, err := json.Marshal(product)
	if err != nil {
		return enrichmentResult{}, model, fmt.Errorf("failed to marshal product: %v", err)
	}

	var prompt string
	switch kind {
	case models.EnrichmentKindTitle:
		prompt = fmt.Sprintf(`
You are an expert e-commerce copywriter. Rewrite this product name as a compelling marketplace listing title.

Product data: %s

Requirements:
- Keep under 70 characters
- Use a %s tone
- Include the most searchable keywords
- No quotes around the title

Return ONLY the title, no explanations.
`, string(productJSON), tone)
	case models.EnrichmentKindDescription:
		prompt = fmt.Sprintf(`
You are an expert e-commerce copywriter. Write a product description that converts browsers into buyers.

Product data: %s

Requirements:
- Two to three sentences, under 400 characters
- Use a %s tone
- Highlight key benefits and end with a call to action

Return ONLY the description, no explanations.
`, string(productJSON), tone)
	case models.EnrichmentKindCategory:
		prompt = fmt.Sprintf(`
You are an expert in marketplace taxonomy. Pick the single best category path for this product.

Product data: %s

Requirements:
- Use the form "Parent > Child", for example "Electronics > Audio"
- Pick the most specific category that fits

Return ONLY the category path, no explanations.
`, string(productJSON))
	case models.EnrichmentKindFull:
		prompt = fmt.Sprintf(`
You are an expert e-commerce copywriter. Rewrite this product for marketplace listing.

Product data: %s

Provide a JSON response with the following structure:
{
  "name": "Listing title under 70 characters",
  "description": "Persuasive description under 400 characters",
  "category": "Category path like Electronics > Audio"
}

Requirements:
- Use a %s tone throughout
- Keep the factual details accurate

Return ONLY the JSON response, no explanations.
`, string(productJSON), tone)
	}

	raw, err := e.callOpenAI(ctx, model, prompt)
	if err != nil {
		return enrichmentResult{}, model, err
	}

	if kind == models.EnrichmentKindFull {
		var result enrichmentResult
		if err := json.Unmarshal([]byte(raw), &result); err != nil {
			return enrichmentResult{}, model, fmt.Errorf("failed to parse AI response: %v", err)
		}
		return result, model, nil
	}

	text := strings.Trim(strings.TrimSpace(raw), `"`)
	if text == "" {
		return enrichmentResult{}, model, fmt.Errorf("empty response from model")
	}
	result := enrichmentResult{}
	switch kind {
	case models.EnrichmentKindTitle:
		result.Name = text
	case models.EnrichmentKindDescription:
		result.Description = text
	case models.EnrichmentKindCategory:
		result.Category = text
	}
	return result, model, nil
}

func (e *Enricher) callOpenAI(ctx context.Context, model, prompt string) (string, error) {
	if e.config.OpenAIAPIKey == "" {
		return "", fmt.Errorf("OpenAI API key not configured")
	}

	request := openAIRequest{
		Model:       model,
		Temperature: 0.7,
		MaxTokens:   500,
		Messages: []message{
			{
				Role:    "system",
				Content: "You are an expert e-commerce copywriter for online marketplaces.",
			},
			{
				Role:    "user",
				Content: prompt,
			},
		},
	}

	jsonData, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.openai.com/v1/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.config.OpenAIAPIKey)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to make request: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("OpenAI API error: %s", string(body))
	}

	var openAIResp openAIResponse
	if err := json.Unmarshal(body, &openAIResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %v", err)
	}
	if len(openAIResp.Choices) == 0 {
		return "", fmt.Errorf("no response from OpenAI")
	}
	return openAIResp.Choices[0].Message.Content, nil
}

// fallback produces deterministic content from the product's own fields.
func (e *Enricher) fallback(product *models.Product, kind models.EnrichmentKind) enrichmentResult {
	result := enrichmentResult{}

	if kind == models.EnrichmentKindTitle || kind == models.EnrichmentKindFull {
		title := product.Name
		if product.Category != nil && *product.Category != "" {
			title = fmt.Sprintf("%s (%s)", product.Name, *product.Category)
		}
		if len(title) > 70 {
			title = title[:67] + "..."
		}
		result.Name = title
	}

	if kind == models.EnrichmentKindDescription || kind == models.EnrichmentKindFull {
		if product.Description != nil && *product.Description != "" {
			result.Description = *product.Description
		} else {
			condition := "new"
			if product.Condition != "" {
				condition = string(product.Condition)
			}
			result.Description = fmt.Sprintf("High-quality %s in %s condition. Order now for fast delivery and reliable service.", product.Name, condition)
		}
	}

	if kind == models.EnrichmentKindCategory || kind == models.EnrichmentKindFull {
		if product.Category != nil && *product.Category != "" {
			result.Category = *product.Category
		} else {
			result.Category = "General"
		}
	}

	return result
}
