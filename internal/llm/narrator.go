package llm

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// CategoryShare is one category slice of a report summary.
type CategoryShare struct {
	Name   string
	Amount int64
	Pct    float64
}

// ReportSummary carries the aggregate numbers a narrative is written from.
// Amounts are in minor units (cents).
type ReportSummary struct {
	Period        string
	Currency      string
	TotalExpenses int64
	TotalIncome   int64
	TopCategories []CategoryShare
	PrevChangePct *float64
}

// Narrator produces a short natural-language summary of a report.
type Narrator interface {
	Narrate(ctx context.Context, summary ReportSummary) (string, error)
}

// NewNarrator returns an OpenAI-backed narrator when an API key is set,
// otherwise a deterministic template narrator so report generation still works.
func NewNarrator(apiKey, model string) Narrator {
	if apiKey == "" {
		return &templateNarrator{}
	}
	return &openAINarrator{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

type openAINarrator struct {
	client *openai.Client
	model  string
}

func (n *openAINarrator) Narrate(ctx context.Context, summary ReportSummary) (string, error) {
	resp, err := n.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       n.model,
		Temperature: 0.4,
		MaxTokens:   300,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are a personal finance assistant. Write a concise, friendly 2-3 sentence summary of the user's spending period. Mention the largest categories and any notable change versus the previous period. Do not give investment advice.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildPrompt(summary),
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func buildPrompt(s ReportSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Period: %s\n", s.Period)
	fmt.Fprintf(&b, "Total expenses: %s\n", formatAmount(s.TotalExpenses, s.Currency))
	fmt.Fprintf(&b, "Total income: %s\n", formatAmount(s.TotalIncome, s.Currency))
	if s.PrevChangePct != nil {
		fmt.Fprintf(&b, "Expense change vs previous period: %+.1f%%\n", *s.PrevChangePct)
	}
	if len(s.TopCategories) > 0 {
		b.WriteString("Top categories:\n")
		for _, c := range s.TopCategories {
			fmt.Fprintf(&b, "- %s: %s (%.1f%%)\n", c.Name, formatAmount(c.Amount, s.Currency), c.Pct)
		}
	}
	return b.String()
}

// templateNarrator fills in a fixed narrative without calling any API.
type templateNarrator struct{}

func (n *templateNarrator) Narrate(_ context.Context, s ReportSummary) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "In %s you spent %s", s.Period, formatAmount(s.TotalExpenses, s.Currency))
	if s.TotalIncome > 0 {
		fmt.Fprintf(&b, " against %s of income", formatAmount(s.TotalIncome, s.Currency))
	}
	b.WriteString(".")
	if len(s.TopCategories) > 0 {
		top := s.TopCategories[0]
		fmt.Fprintf(&b, " Your largest category was %s at %s (%.1f%% of spending).",
			top.Name, formatAmount(top.Amount, s.Currency), top.Pct)
	}
	if s.PrevChangePct != nil {
		if *s.PrevChangePct >= 0 {
			fmt.Fprintf(&b, " Spending was up %.1f%% from the previous period.", *s.PrevChangePct)
		} else {
			fmt.Fprintf(&b, " Spending was down %.1f%% from the previous period.", -*s.PrevChangePct)
		}
	}
	return b.String(), nil
}

func formatAmount(cents int64, currency string) string {
	if currency == "" {
		currency = "USD"
	}
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, cents/100, cents%100, currency)
}
