package llm

import (
	"strings"

	"github.com/dvloznov/agency-ledger/internal/domain"
	"google.golang.org/genai"
)

func categoryList() string {
	names := make([]string, len(domain.Categories))
	for i, c := range domain.Categories {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}

func statementPrompt() string {
	return "You are a bank statement parser for a UAE talent agency.\n\n" +
		"Task:\n" +
		"- Extract EVERY transaction line from the attached statement.\n" +
		"- Output a JSON array of objects and nothing else.\n\n" +
		"Each object has:\n" +
		"- \"date\": ISO date \"YYYY-MM-DD\"\n" +
		"- \"description\": the statement narrative\n" +
		"- \"amount\": positive number\n" +
		"- \"currency\": \"AED\" or \"USD\"\n" +
		"- \"type\": \"credit\" for money in, \"debit\" for money out\n" +
		"- \"category\": one of " + categoryList() + "\n" +
		"- \"vendor\": counterparty name, or null when unclear\n\n" +
		"Rules:\n" +
		"- If the statement has separate paid in / paid out columns, use them to set \"type\".\n" +
		"- Skip opening and closing balance rows.\n"
}

func contractPrompt() string {
	return "You read influencer marketing contracts and briefs.\n\n" +
		"Extract every paid deliverable as a JSON array of objects with:\n" +
		"- \"name\": short deliverable name, e.g. \"Instagram Reel\"\n" +
		"- \"platform\": Instagram, TikTok, YouTube, Snapchat, X or Other\n" +
		"- \"rate\": unit price as a number\n" +
		"- \"quantity\": number of units (default 1)\n" +
		"- \"currency\": \"AED\" or \"USD\"\n" +
		"Return [] if the document has no priced deliverables.\n"
}

func contactPrompt() string {
	return "You read company documents (trade licences, VAT certificates, invoices, email signatures).\n\n" +
		"Extract one JSON object with:\n" +
		"- \"name\": contact person, or null\n" +
		"- \"company\": legal company name, or null\n" +
		"- \"email\", \"phone\", \"address\": strings or null\n" +
		"- \"trn\": UAE tax registration number (15 digits), or null\n"
}

func rateCardPrompt() string {
	return "You read talent rate cards.\n\n" +
		"Extract every priced item as a JSON array of objects with:\n" +
		"- \"platform\": Instagram, TikTok, YouTube, Snapchat, X or Other\n" +
		"- \"deliverable\": e.g. \"Story (3 frames)\"\n" +
		"- \"rate\": price as a number\n" +
		"- \"currency\": \"AED\" or \"USD\"\n" +
		"- \"notes\": usage rights or conditions, or null\n"
}

const assistantInstruction = "You are the bookkeeping assistant of a UAE social-media talent agency. " +
	"Answer questions about the agency's books using the JSON snapshot provided. " +
	"Amounts are in AED unless stated otherwise. VAT is 5%. " +
	"If the snapshot does not contain the answer, say so instead of guessing."

func nullable(t genai.Type) *genai.Schema {
	yes := true
	return &genai.Schema{Type: t, Nullable: &yes}
}

var statementSchema = &genai.Schema{
	Type: genai.TypeArray,
	Items: &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"date":        {Type: genai.TypeString},
			"description": {Type: genai.TypeString},
			"amount":      {Type: genai.TypeNumber},
			"currency":    {Type: genai.TypeString, Enum: []string{"AED", "USD"}},
			"type":        {Type: genai.TypeString, Enum: []string{"credit", "debit"}},
			"category":    {Type: genai.TypeString},
			"vendor":      nullable(genai.TypeString),
		},
		Required: []string{"date", "description", "amount", "type"},
	},
}

var contractSchema = &genai.Schema{
	Type: genai.TypeArray,
	Items: &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"name":     {Type: genai.TypeString},
			"platform": nullable(genai.TypeString),
			"rate":     {Type: genai.TypeNumber},
			"quantity": nullable(genai.TypeNumber),
			"currency": nullable(genai.TypeString),
		},
		Required: []string{"name", "rate"},
	},
}

var contactSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"name":    nullable(genai.TypeString),
		"company": nullable(genai.TypeString),
		"email":   nullable(genai.TypeString),
		"phone":   nullable(genai.TypeString),
		"address": nullable(genai.TypeString),
		"trn":     nullable(genai.TypeString),
	},
}

var rateCardSchema = &genai.Schema{
	Type: genai.TypeArray,
	Items: &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"platform":    nullable(genai.TypeString),
			"deliverable": {Type: genai.TypeString},
			"rate":        {Type: genai.TypeNumber},
			"currency":    nullable(genai.TypeString),
			"notes":       nullable(genai.TypeString),
		},
		Required: []string{"deliverable", "rate"},
	},
}
