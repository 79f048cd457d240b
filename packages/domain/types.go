// Package domain
package domain

// Record is the flat set of fields extracted for one judgment. Fields that
// were not found on the page are simply absent.
type Record map[string]string

const (
	FieldTitle             = "title"
	FieldLink              = "link"
	FieldCourt             = "court"
	FieldNeutralCitation   = "neutral_citation"
	FieldCaseNumber        = "case_number"
	FieldLocation          = "location"
	FieldDate              = "date"
	FieldDownloadLink      = "download_link"
	FieldJudgmentReference = "judgment_reference"
	FieldAllHeaderText     = "all_header_text"
	FieldFullText          = "full_text"
	FieldLanguage          = "language"
)

const (
	FullTextNotFound      = "Judgment body not found."
	HeaderTextNotFound    = "Judgment headers not found."
	FullTextFetchFailed   = "Failed to retrieve content."
	HeaderTextFetchFailed = "Failed to retrieve headers."
	InvalidDate           = "Invalid Date"
	NotAvailable          = "N/A"
)

// Title returns the record's title, or "" when it has none.
func (r Record) Title() string {
	return r[FieldTitle]
}

// Workflow names one of the scraping passes. It labels metrics and reports.
type Workflow string

const (
	WorkflowHarvest Workflow = "harvest"
	WorkflowLinks   Workflow = "links"
	WorkflowHeaders Workflow = "headers"
	WorkflowListing Workflow = "listing"
	WorkflowAugment Workflow = "augment"
)

// Skip is one item a run did not write. URL is set for pages that could not
// be fetched or read; Key for stored records that were passed over.
type Skip struct {
	URL    string `json:"url,omitempty"`
	Key    string `json:"key,omitempty"`
	Reason string `json:"reason"`
}

// Report summarizes one workflow run so partial output files can be told
// apart from complete ones.
type Report struct {
	Workflow  Workflow `json:"workflow"`
	Attempted int      `json:"attempted"`
	Written   []string `json:"written"`
	Skipped   []Skip   `json:"skipped"`
}

func NewReport(w Workflow) *Report {
	return &Report{Workflow: w, Written: []string{}, Skipped: []Skip{}}
}

func (r *Report) AddWritten(key string) {
	r.Written = append(r.Written, key)
}

func (r *Report) AddSkip(url, reason string) {
	r.Skipped = append(r.Skipped, Skip{URL: url, Reason: reason})
}

func (r *Report) AddSkippedKey(key, reason string) {
	r.Skipped = append(r.Skipped, Skip{Key: key, Reason: reason})
}
