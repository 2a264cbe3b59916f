package bedrock

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"go.uber.org/zap"

	"github.com/smartshop/backend/internal/domain"
)

// Fallback suggestions when the model cannot name a list
var (
	fallbackSuggestion = domain.ListSuggestion{Name: "Nova Lista", Icon: domain.DefaultIcon}
	emptySuggestion    = domain.ListSuggestion{Name: "Minha Lista", Icon: domain.DefaultIcon}
)

type completer interface {
	Complete(ctx context.Context, prompt string, doc *Document) (string, error)
}

// Advisor implements domain.PriceAdvisor on top of a Bedrock model
type Advisor struct {
	llm     completer
	retrier *Retrier
}

var _ domain.PriceAdvisor = (*Advisor)(nil)

// NewAdvisor creates a price advisor
func NewAdvisor(llm completer, retrier *Retrier) *Advisor {
	if retrier == nil {
		retrier = NewRetrier(RetryConfig{})
	}
	return &Advisor{llm: llm, retrier: retrier}
}

// FetchItemPrices asks the model which nearby stores carry a single item
func (a *Advisor) FetchItemPrices(ctx context.Context, itemName string, loc domain.Location) ([]domain.StoreOffer, error) {
	prompt := itemPricesPrompt(itemName, loc)

	offers, err := Retry(ctx, a.retrier, func(ctx context.Context) ([]domain.StoreOffer, error) {
		text, err := a.llm.Complete(ctx, prompt, nil)
		if err != nil {
			return nil, err
		}
		return DecodeJSONArray[domain.StoreOffer](text)
	})
	if err != nil {
		return nil, fmt.Errorf("fetch prices for %q: %w", itemName, err)
	}

	zap.L().Debug("[Bedrock] item prices fetched", zap.String("item", itemName), zap.Int("stores", len(offers)))
	return offers, nil
}

// CompareList asks the model to price the whole list in one request
func (a *Advisor) CompareList(ctx context.Context, itemNames []string, loc domain.Location) ([]domain.StoreOffer, error) {
	prompt := compareListPrompt(itemNames, loc)

	offers, err := Retry(ctx, a.retrier, func(ctx context.Context) ([]domain.StoreOffer, error) {
		text, err := a.llm.Complete(ctx, prompt, nil)
		if err != nil {
			return nil, err
		}
		return DecodeJSONArray[domain.StoreOffer](text)
	})
	if err != nil {
		return nil, fmt.Errorf("compare list of %d items: %w", len(itemNames), err)
	}

	return offers, nil
}

// ParseReceipt extracts normalized product names from a base64 encoded PDF receipt
func (a *Advisor) ParseReceipt(ctx context.Context, base64PDF string) ([]string, error) {
	// Accept data URLs as produced by browser file readers.
	if idx := strings.Index(base64PDF, ","); idx >= 0 && strings.HasPrefix(base64PDF, "data:") {
		base64PDF = base64PDF[idx+1:]
	}

	pdf, err := base64.StdEncoding.DecodeString(strings.TrimSpace(base64PDF))
	if err != nil {
		return nil, fmt.Errorf("%w: receipt is not valid base64: %v", domain.ErrInvalidRequest, err)
	}
	if len(pdf) == 0 {
		return nil, fmt.Errorf("%w: receipt is empty", domain.ErrInvalidRequest)
	}

	doc := &Document{Name: "receipt", Format: types.DocumentFormatPdf, Bytes: pdf}

	names, err := Retry(ctx, a.retrier, func(ctx context.Context) ([]string, error) {
		text, err := a.llm.Complete(ctx, receiptPrompt, doc)
		if err != nil {
			return nil, err
		}
		return DecodeJSONArray[string](text)
	})
	if err != nil {
		return nil, fmt.Errorf("parse receipt: %w", err)
	}

	cleaned := make([]string, 0, len(names))
	for _, name := range names {
		if name = strings.TrimSpace(name); name != "" {
			cleaned = append(cleaned, name)
		}
	}
	return cleaned, nil
}

// SuggestListName proposes a display name and icon for a list.
// It never fails: model errors yield a generic suggestion.
func (a *Advisor) SuggestListName(ctx context.Context, itemNames []string) (domain.ListSuggestion, error) {
	text, err := a.llm.Complete(ctx, listNamePrompt(itemNames), nil)
	if err != nil {
		zap.L().Warn("[Bedrock] list name suggestion failed", zap.Error(err))
		return fallbackSuggestion, nil
	}
	if strings.TrimSpace(text) == "" {
		return emptySuggestion, nil
	}

	raw, err := DecodeJSON[struct {
		Name string `json:"name"`
		Icon string `json:"icon"`
	}](text)
	if err != nil {
		zap.L().Warn("[Bedrock] list name suggestion unparseable", zap.Error(err))
		return fallbackSuggestion, nil
	}

	suggestion := domain.ListSuggestion{
		Name: strings.TrimSpace(raw.Name),
		Icon: domain.ParseIcon(raw.Icon),
	}
	if suggestion.Name == "" {
		suggestion.Name = emptySuggestion.Name
	}
	return suggestion, nil
}
