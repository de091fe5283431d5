// Package statement turns bank-statement PDFs into expense items: a
// deterministic parser for the known card layout first, an LLM otherwise.
package statement

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fintrack/backend/internal/common"
	"github.com/fintrack/backend/internal/llm"
	"github.com/fintrack/backend/internal/models"
	"github.com/fintrack/backend/internal/services"
)

// Result sources.
const (
	SourceParser = "parser"
	SourceLLM    = "llm"
)

const (
	DefaultMaxChars = 10000
	minParsedRows   = 3
)

const systemPrompt = `You extract card transactions from Itaú Uruguay bank statements.
Answer with one JSON object of the form {"transactions":[...]} and nothing else.
Each transaction has: "date" (YYYY-MM-DD), "description", "amount" (positive number),
"currency" (UYU or USD), "type" ("expense" for purchases and charges, "income" for refunds
and credits), optionally "installments" ("n/m") and "category".
Skip headers, footers, promotions, previous and closing balances and card payments.`

// SchemaValidator validates raw JSON against a named schema.
type SchemaValidator interface {
	ValidateJSON(name string, raw []byte) error
}

type Result struct {
	Items  []Item `json:"items"`
	Source string `json:"source"`
	Model  string `json:"model,omitempty"`
}

type Options struct {
	// Provider may be nil; statements the parser cannot read then fail.
	Provider  llm.Provider
	Validator SchemaValidator
	MaxChars  int
	Logger    *slog.Logger
}

type Service struct {
	provider  llm.Provider
	validator SchemaValidator
	maxChars  int
	extract   func([]byte) (string, error)
	log       *slog.Logger
}

func NewService(opts Options) *Service {
	if opts.MaxChars <= 0 {
		opts.MaxChars = DefaultMaxChars
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Service{
		provider:  opts.Provider,
		validator: opts.Validator,
		maxChars:  opts.MaxChars,
		extract:   ExtractText,
		log:       opts.Logger,
	}
}

// Analyze extracts the items of a statement PDF. acc may be nil; when it
// carries its own AI key that key is used instead of the server's.
// Unusable AI output fails with common.ErrProviderDegraded.
func (s *Service) Analyze(ctx context.Context, acc *models.Account, pdf []byte) (*Result, error) {
	text, err := s.extract(pdf)
	if err != nil {
		return nil, err
	}
	return s.AnalyzeText(ctx, acc, text)
}

func (s *Service) AnalyzeText(ctx context.Context, acc *models.Account, text string) (*Result, error) {
	rows := ParseLines(text)
	if countKind(rows, KindTransaction) >= minParsedRows {
		items := ItemsFromRows(rows)
		s.log.Info("statement parsed", "rows", len(rows), "items", len(items))
		return &Result{Items: items, Source: SourceParser}, nil
	}

	if s.provider == nil {
		return nil, fmt.Errorf("%w: statement layout not recognised and no AI provider is configured", common.ErrProviderDegraded)
	}
	if strings.TrimSpace(text) == "" {
		return nil, common.NewValidationError("PDF contains no extractable text")
	}

	req := &llm.Request{
		SystemPrompt: systemPrompt,
		UserPrompt:   "Statement text:\n" + truncateRunes(text, s.maxChars),
		JSON:         true,
	}
	if acc != nil && acc.HasAIKey() {
		req.APIKey = *acc.AIAPIKey
	}
	resp, err := s.provider.Complete(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrProviderDegraded, err)
	}
	items, err := s.parseItems(resp.Content)
	if err != nil {
		s.log.Warn("AI statement analysis unusable", "model", resp.Model, "error", err)
		return nil, err
	}
	return &Result{Items: items, Source: SourceLLM, Model: resp.Model}, nil
}

// parseItems accepts only a JSON object matching the statement.items
// schema, optionally wrapped in a markdown code fence.
func (s *Service) parseItems(content string) ([]Item, error) {
	raw := []byte(stripFences(content))
	if s.validator != nil {
		if err := s.validator.ValidateJSON(services.SchemaStatementItems, raw); err != nil {
			return nil, fmt.Errorf("%w: AI response failed validation: %v", common.ErrProviderDegraded, err)
		}
	}
	var doc struct {
		Transactions []Item `json:"transactions"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: AI response is not valid JSON: %v", common.ErrProviderDegraded, err)
	}
	if doc.Transactions == nil {
		doc.Transactions = []Item{}
	}
	return doc.Transactions, nil
}

// stripFences removes a surrounding ```json ... ``` block, if any.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSpace(s)
	return strings.TrimSpace(strings.TrimSuffix(s, "```"))
}

func countKind(rows []Row, kind string) int {
	n := 0
	for _, r := range rows {
		if r.Kind == kind {
			n++
		}
	}
	return n
}
