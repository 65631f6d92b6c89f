// Package crm implements the multi-variant contact lookup against the CRM's
// search endpoint.
package crm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"voice-webhook-router/internal/apperror"
	"voice-webhook-router/internal/config"
	"voice-webhook-router/internal/phone"
)

// The CRM indexes phone numbers inconsistently across two searchable fields,
// so every variant is tried against the primary field before any variant is
// tried against the secondary one.
var searchFields = [2]string{"mobile_number", "phone"}

// Lookup defines the contact lookup interface consumed by the router.
type Lookup interface {
	LookupByPhone(ctx context.Context, raw string) LookupResult
}

// Contact is the projection of a CRM contact the voice flow cares about.
type Contact struct {
	DisplayName       string   `json:"displayName"`
	MailboxID         string   `json:"mailboxId,omitempty"`
	ApprovalStatus    string   `json:"approvalStatus,omitempty"`
	NeedsResubmission bool     `json:"needsResubmission"`
	AccountID         string   `json:"accountId,omitempty"`
	Tags              []string `json:"tags,omitempty"`
}

// LookupResult reports one lookup attempt. On failure NeedsPhoneNumber tells
// the conversation layer whether asking the caller for an explicit number is
// likely to help.
type LookupResult struct {
	Found            bool     `json:"found"`
	Contact          *Contact `json:"contact,omitempty"`
	MatchedVariant   string   `json:"matchedVariant,omitempty"`
	MatchedField     string   `json:"matchedField,omitempty"`
	Error            string   `json:"error,omitempty"`
	NeedsPhoneNumber bool     `json:"needsPhoneNumber,omitempty"`
	VariantsTried    []string `json:"variantsTried,omitempty"`
}

type client struct {
	baseURL    string
	token      string
	log        *zap.Logger
	httpClient *http.Client
}

// New creates a CRM lookup client from the loaded configuration.
func New(cfg *config.Config, logger *zap.Logger) Lookup {
	return &client{
		baseURL:    cfg.CRMBaseURL,
		token:      cfg.CRMToken,
		log:        logger,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

// LookupByPhone tries every normalized variant of raw against both search
// fields, sequentially, returning on the first hit. Individual call failures
// are logged and swallowed; only full exhaustion is reported as a miss. Worst
// case is 3 variants x 2 fields = 6 outbound calls.
func (c *client) LookupByPhone(ctx context.Context, raw string) LookupResult {
	if c.token == "" {
		msg := apperror.ConfigMissing("CRM lookup", []string{"CRM_API_TOKEN"})
		c.log.Error("crm lookup skipped", zap.String("reason", msg))
		return LookupResult{Found: false, Error: msg}
	}

	norm := phone.Normalize(raw)
	if !norm.Valid {
		c.log.Warn("phone number below 10 digits, trying degenerate variant",
			zap.String("raw", raw))
	}

	for _, field := range searchFields {
		for _, variant := range norm.Variants {
			if variant == "" {
				continue
			}
			contact, err := c.search(ctx, variant, field)
			if err != nil {
				c.log.Warn("crm search attempt failed",
					zap.String("variant", variant),
					zap.String("field", field),
					zap.Error(err))
				continue
			}
			if contact == nil {
				continue
			}
			c.log.Info("crm contact matched",
				zap.String("variant", variant),
				zap.String("field", field),
				zap.String("displayName", contact.DisplayName))
			return LookupResult{
				Found:          true,
				Contact:        contact,
				MatchedVariant: variant,
				MatchedField:   field,
				VariantsTried:  norm.Variants,
			}
		}
	}

	c.log.Info("crm lookup exhausted all variants",
		zap.Strings("variants", norm.Variants))
	return LookupResult{
		Found:            false,
		Error:            "no contact found for the supplied phone number",
		NeedsPhoneNumber: true,
		VariantsTried:    norm.Variants,
	}
}

type searchResponse struct {
	Contacts struct {
		Contacts []contactRecord `json:"contacts"`
	} `json:"contacts"`
}

type contactRecord struct {
	DisplayName string         `json:"display_name"`
	CustomField map[string]any `json:"custom_field"`
	Tags        []string       `json:"tags"`
}

// search runs one GET against the lookup endpoint. A nil contact with nil
// error means the call succeeded but matched nothing.
func (c *client) search(ctx context.Context, variant, field string) (*Contact, error) {
	q := url.Values{}
	q.Set("q", variant)
	q.Set("f", field)
	q.Set("entities", "contact")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/lookup?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperror.ErrUpstreamUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: crm returned %d", apperror.ErrUpstreamUnreachable, resp.StatusCode)
	}

	var body searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode crm response: %w", err)
	}

	if len(body.Contacts.Contacts) == 0 {
		return nil, nil
	}
	return projectContact(body.Contacts.Contacts[0]), nil
}

func projectContact(rec contactRecord) *Contact {
	c := &Contact{
		DisplayName: rec.DisplayName,
		Tags:        rec.Tags,
	}
	c.MailboxID = customString(rec.CustomField, "mailbox_id")
	c.ApprovalStatus = customString(rec.CustomField, "approval_status")
	c.AccountID = customString(rec.CustomField, "account_id")
	c.NeedsResubmission = customBool(rec.CustomField, "needs_resubmission")
	return c
}

func customString(fields map[string]any, key string) string {
	s, _ := fields[key].(string)
	return s
}

// customBool tolerates both the boolean and string renderings the CRM has
// been seen to emit for checkbox custom fields.
func customBool(fields map[string]any, key string) bool {
	switch v := fields[key].(type) {
	case bool:
		return v
	case string:
		return v == "true" || v == "yes" || v == "1"
	default:
		return false
	}
}
