package provider

import "strings"

// Defaults used when a lead's enrichment never produced the field. These feed
// the voice agent's opening script, so they must read naturally in a sentence.
const (
	defaultRole    = "professional in the real-estate sector"
	defaultCompany = "an independent agency"
)

// callVariables is the typed variable map handed to the voice agent for
// script templating. Building it as a struct rather than ad-hoc string
// concatenation keeps missing fields from leaking "<nil>" into a live call.
type callVariables struct {
	FullName   string
	FirstName  string
	Role       string
	Company    string
	ProfileURL string
	LeadID     string
}

func (v callVariables) Map() map[string]string {
	return map[string]string{
		"full_name":   v.FullName,
		"first_name":  v.FirstName,
		"role":        v.Role,
		"company":     v.Company,
		"profile_url": v.ProfileURL,
		"lead_id":     v.LeadID,
	}
}

func firstName(fullName string) string {
	fields := strings.Fields(fullName)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func orDefault(value *string, fallback string) string {
	if value == nil || strings.TrimSpace(*value) == "" {
		return fallback
	}
	return *value
}

func optional(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
