package mailbox

import (
	"context"
	"fmt"
	"strings"
)

// Category names. VendorSupplier, InternalTeam and LowPriority are part of
// the output taxonomy but no rule assigns them yet.
const (
	CategoryUrgentInvestor  = "urgent_investor"
	CategorySDARelated      = "sda_related"
	CategoryPropertyInquiry = "property_inquiry"
	CategoryLeadFollowup    = "lead_followup"
	CategoryVendorSupplier  = "vendor_supplier"
	CategoryInternalTeam    = "internal_team"
	CategoryLowPriority     = "low_priority"
	CategoryGeneral         = "general"
)

// Categories lists every category in output order.
var Categories = []string{
	CategoryUrgentInvestor,
	CategorySDARelated,
	CategoryPropertyInquiry,
	CategoryLeadFollowup,
	CategoryVendorSupplier,
	CategoryInternalTeam,
	CategoryLowPriority,
	CategoryGeneral,
}

var (
	urgencyKeywords  = []string{"urgent", "asap", "immediate", "critical", "important"}
	investorKeywords = []string{"investor", "investment", "portfolio", "returns", "capital"}
	sdaKeywords      = []string{"sda", "ndis", "disability", "participant", "support coordinator"}
	propertyKeywords = []string{"property", "viewing", "inspection", "lease", "rental", "tenant"}
	leadKeywords     = []string{"interested", "inquiry", "question", "looking for", "want to know"}
)

type rule struct {
	category string
	priority int
	match    func(content string) bool
}

// rules are evaluated in order; the first match wins.
var rules = []rule{
	{CategoryUrgentInvestor, 10, func(s string) bool {
		return containsAny(s, urgencyKeywords) && containsAny(s, investorKeywords)
	}},
	{CategorySDARelated, 8, func(s string) bool { return containsAny(s, sdaKeywords) }},
	{CategoryPropertyInquiry, 7, func(s string) bool { return containsAny(s, propertyKeywords) }},
	{CategoryLeadFollowup, 6, func(s string) bool { return containsAny(s, leadKeywords) }},
}

const generalPriority = 5

// CategorizedMessage is a Message with its assigned category.
type CategorizedMessage struct {
	Message
	Category string `json:"category"`
	Priority int    `json:"priority"`
}

// Classification is the result of Classify.
type Classification struct {
	TotalEmails int                             `json:"total_emails"`
	Categories  map[string][]CategorizedMessage `json:"categories"`
	Summary     string                          `json:"summary"`
}

// CategoryOf returns the category and priority for a single message.
func CategoryOf(m Message) (string, int) {
	content := strings.ToLower(m.Subject + " " + m.Text)
	for _, r := range rules {
		if r.match(content) {
			return r.category, r.priority
		}
	}
	return CategoryGeneral, generalPriority
}

// Classify assigns every message to exactly one category. Every category
// key is present in the result, including ones with no members.
func Classify(messages []Message) Classification {
	out := Classification{
		TotalEmails: len(messages),
		Categories:  make(map[string][]CategorizedMessage, len(Categories)),
	}
	for _, name := range Categories {
		out.Categories[name] = []CategorizedMessage{}
	}

	for _, m := range messages {
		category, priority := CategoryOf(m)
		out.Categories[category] = append(out.Categories[category], CategorizedMessage{
			Message:  m,
			Category: category,
			Priority: priority,
		})
	}

	active := 0
	for _, members := range out.Categories {
		if len(members) > 0 {
			active++
		}
	}
	out.Summary = fmt.Sprintf("Sorted %d emails into %d active categories", len(messages), active)

	return out
}

// InboxFolder is the folder triaged by Triage.
const InboxFolder = "INBOX"

// Triage fetches the newest limit messages from the inbox, read or not,
// and classifies them.
func Triage(ctx context.Context, f Fetcher, limit int) (Classification, error) {
	res, err := f.FetchMessages(ctx, InboxFolder, limit, false)
	if err != nil {
		return Classification{}, err
	}
	return Classify(res.Emails), nil
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
