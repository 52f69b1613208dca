package command

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pennywise/finance/shared/events"
	"github.com/pennywise/finance/shared/models"
)

const analysisSystemPrompt = `You are a personal finance assistant. Given a single new transaction and the
user's spending so far this month, write two or three short sentences of
practical commentary: how the transaction fits the month, and one concrete
suggestion if there is something worth acting on. Do not invent figures.`

const chatSystemPrompt = `You are a personal finance assistant chatting with the owner of the accounts
described below. Answer with reference to their actual figures where relevant.
Keep answers concise. If the data does not cover a question, say so.`

const reportSystemPrompt = `You are a personal finance assistant writing a monthly report. Use only the
figures provided. Structure the report as: an overview of income against
spending, the largest spending categories, notable changes from the previous
month, and up to three recommendations. Plain text, no tables.`

func analysisPrompt(req events.AnalysisRequest, spend []models.CategorySummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "New %s of %s in category %q on %s.\n",
		req.Type, req.Amount.StringFixed(2), req.Category, req.OccurredAt.UTC().Format(time.DateOnly))
	if req.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", req.Description)
	}
	b.WriteString("\nMonth to date:\n")
	writeSpend(&b, spend)
	return b.String()
}

func chatSystem(month time.Time, spend []models.CategorySummary) string {
	var b strings.Builder
	b.WriteString(chatSystemPrompt)
	fmt.Fprintf(&b, "\n\nTotals for %s so far:\n", month.Format("January 2006"))
	writeSpend(&b, spend)
	return b.String()
}

func reportPrompt(month time.Time, current, previous []models.CategorySummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Report for %s.\n\n", month.Format("January 2006"))
	writeSpend(&b, current)
	fmt.Fprintf(&b, "\nPrevious month (%s):\n", month.AddDate(0, -1, 0).Format("January 2006"))
	writeSpend(&b, previous)
	return b.String()
}

func writeSpend(b *strings.Builder, spend []models.CategorySummary) {
	if len(spend) == 0 {
		b.WriteString("- no records\n")
		return
	}
	income, expense := decimal.Zero, decimal.Zero
	for _, s := range spend {
		fmt.Fprintf(b, "- %s %s: %s (%d records)\n", s.Type, s.Category, s.Total.StringFixed(2), s.Count)
		if s.Type == models.RecordTypeIncome {
			income = income.Add(s.Total)
		} else {
			expense = expense.Add(s.Total)
		}
	}
	fmt.Fprintf(b, "Income %s, expenses %s, net %s\n",
		income.StringFixed(2), expense.StringFixed(2), income.Sub(expense).StringFixed(2))
}
