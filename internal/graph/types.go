package graph

import "time"

// Webhook payload constants, per the Meta webhook schema.
const (
	ObjectWhatsAppBusinessAccount = "whatsapp_business_account"

	FieldAccountUpdate  = "account_update"
	FieldMessages       = "messages"
	FieldTemplateStatus = "message_template_status_update"

	AccountEventPartnerAdded    = "PARTNER_ADDED"
	AccountEventAccountUpdate   = "ACCOUNT_UPDATE"
	AccountEventVerifiedAccount = "VERIFIED_ACCOUNT"
	AccountEventAccountVerified = "ACCOUNT_VERIFIED"
	AccountEventDisabledUpdate  = "DISABLED_UPDATE"

	MessagingProduct = "whatsapp"
)

// WebhookPayload is the top-level document POSTed by the platform.
type WebhookPayload struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

// Entry groups changes for one WhatsApp Business Account. ID is the WABA ID
// used for tenant routing.
type Entry struct {
	ID      string   `json:"id"`
	Time    int64    `json:"time,omitempty"`
	Changes []Change `json:"changes"`
}

// Change is a single notification inside an entry, discriminated by Field.
type Change struct {
	Field string      `json:"field"`
	Value ChangeValue `json:"value"`
}

// ChangeValue carries the field-specific payload. Only the sections relevant
// to the change's field are populated.
type ChangeValue struct {
	MessagingProduct string    `json:"messaging_product,omitempty"`
	Metadata         *Metadata `json:"metadata,omitempty"`
	Contacts         []Contact `json:"contacts,omitempty"`
	Messages         []Message `json:"messages,omitempty"`
	Statuses         []Status  `json:"statuses,omitempty"`

	// account_update fields
	Event    string    `json:"event,omitempty"`
	WabaInfo *WabaInfo `json:"waba_info,omitempty"`

	// message_template_status_update fields
	MessageTemplateID   int64  `json:"message_template_id,omitempty"`
	MessageTemplateName string `json:"message_template_name,omitempty"`
}

type Metadata struct {
	DisplayPhoneNumber string `json:"display_phone_number"`
	PhoneNumberID      string `json:"phone_number_id"`
}

type Contact struct {
	Profile ContactProfile `json:"profile"`
	WaID    string         `json:"wa_id"`
}

type ContactProfile struct {
	Name string `json:"name"`
}

type WabaInfo struct {
	WabaID   string `json:"waba_id"`
	WabaName string `json:"waba_name,omitempty"`
}

// Message is one inbound customer message.
type Message struct {
	From      string       `json:"from"`
	ID        string       `json:"id"`
	Timestamp string       `json:"timestamp"`
	Type      string       `json:"type"`
	Text      *Text        `json:"text,omitempty"`
	Image     *Media       `json:"image,omitempty"`
	Audio     *Media       `json:"audio,omitempty"`
	Video     *Media       `json:"video,omitempty"`
	Document  *Media       `json:"document,omitempty"`
	Location  *Location    `json:"location,omitempty"`
	Button    *Button      `json:"button,omitempty"`
	Interactive *Interactive `json:"interactive,omitempty"`
}

type Text struct {
	Body string `json:"body"`
}

type Media struct {
	ID       string `json:"id,omitempty"`
	Link     string `json:"link,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
	Filename string `json:"filename,omitempty"`
	Caption  string `json:"caption,omitempty"`
	SHA256   string `json:"sha256,omitempty"`
}

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Name      string  `json:"name,omitempty"`
	Address   string  `json:"address,omitempty"`
}

type Button struct {
	Payload string `json:"payload,omitempty"`
	Text    string `json:"text,omitempty"`
}

type Interactive struct {
	Type        string `json:"type"`
	ButtonReply *Reply `json:"button_reply,omitempty"`
	ListReply   *Reply `json:"list_reply,omitempty"`
}

type Reply struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Status is one delivery-status update for an outbound message.
type Status struct {
	ID          string        `json:"id"`
	Status      string        `json:"status"`
	Timestamp   string        `json:"timestamp"`
	RecipientID string        `json:"recipient_id,omitempty"`
	Errors      []StatusError `json:"errors,omitempty"`
}

type StatusError struct {
	Code    int    `json:"code"`
	Title   string `json:"title"`
	Message string `json:"message,omitempty"`
}

// Token is the OAuth token endpoint response.
type Token struct {
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token,omitempty"`
	TokenType    string     `json:"token_type,omitempty"`
	ExpiresIn    int64      `json:"expires_in"`
	ExpiresAt    *time.Time `json:"-"`
}

// SendMessageRequest is the body for the per-phone-number messages endpoint.
type SendMessageRequest struct {
	MessagingProduct string `json:"messaging_product"`
	RecipientType    string `json:"recipient_type"`
	To               string `json:"to"`
	Type             string `json:"type"`
	Text             *Text  `json:"text,omitempty"`
}

// SendMessageResponse carries the wamids assigned by the platform.
type SendMessageResponse struct {
	MessagingProduct string `json:"messaging_product"`
	Contacts         []struct {
		Input string `json:"input"`
		WaID  string `json:"wa_id"`
	} `json:"contacts"`
	Messages []SendMessageID `json:"messages"`
}

type SendMessageID struct {
	ID string `json:"id"`
}

// MessageID returns the first assigned wamid, empty when the platform sent none.
func (r *SendMessageResponse) MessageID() string {
	if len(r.Messages) == 0 {
		return ""
	}
	return r.Messages[0].ID
}

type registerRequest struct {
	MessagingProduct string `json:"messaging_product"`
	Pin              string `json:"pin"`
}
