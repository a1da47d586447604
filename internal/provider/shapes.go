package provider

// requestShape is one rung of the messaging fallback ladder.
type requestShape struct {
	name             string
	path             string
	recipientInQuery bool
	body             func(common templatePayload, msg TemplateMessage) any
}

type templatePayload struct {
	TemplateName  string          `json:"template_name"`
	BroadcastName string          `json:"broadcast_name"`
	Parameters    []TemplateParam `json:"parameters"`
	ChannelNumber string          `json:"channel_number,omitempty"`
}

type singleRecipientPayload struct {
	templatePayload
	WhatsappNumber string `json:"whatsappNumber"`
}

type recipientListPayload struct {
	templatePayload
	WhatsappNumbers []string `json:"whatsappNumbers"`
}

type receiver struct {
	WhatsappNumber string          `json:"whatsappNumber"`
	CustomParams   []TemplateParam `json:"customParams"`
}

type receiverListPayload struct {
	TemplateName  string     `json:"template_name"`
	BroadcastName string     `json:"broadcast_name"`
	ChannelNumber string     `json:"channel_number,omitempty"`
	Receivers     []receiver `json:"receivers"`
}

const (
	shapeQueryRecipient = "v2_query_recipient"
	shapeBodyRecipient  = "v1_body_recipient"
	shapeBulkNumbers    = "v1_bulk_numbers"
	shapeBulkReceivers  = "v1_bulk_receivers"
)

func defaultShapes() []requestShape {
	return []requestShape{
		{
			name:             shapeQueryRecipient,
			path:             "/api/v2/sendTemplateMessage",
			recipientInQuery: true,
			body: func(common templatePayload, _ TemplateMessage) any {
				return common
			},
		},
		{
			name: shapeBodyRecipient,
			path: "/api/v1/sendTemplateMessage",
			body: func(common templatePayload, msg TemplateMessage) any {
				return singleRecipientPayload{templatePayload: common, WhatsappNumber: msg.Recipient}
			},
		},
		{
			name: shapeBulkNumbers,
			path: "/api/v1/sendTemplateMessages",
			body: func(common templatePayload, msg TemplateMessage) any {
				return recipientListPayload{templatePayload: common, WhatsappNumbers: []string{msg.Recipient}}
			},
		},
		{
			name: shapeBulkReceivers,
			path: "/api/v1/sendTemplateMessages",
			body: func(common templatePayload, msg TemplateMessage) any {
				return receiverListPayload{
					TemplateName:  common.TemplateName,
					BroadcastName: common.BroadcastName,
					ChannelNumber: common.ChannelNumber,
					Receivers:     []receiver{{WhatsappNumber: msg.Recipient, CustomParams: common.Parameters}},
				}
			},
		},
	}
}
