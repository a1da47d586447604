package domain

// DeliverySummaryRow counts attendees sharing one (email, messaging) status pair.
type DeliverySummaryRow struct {
	EmailStatus     ChannelStatus
	MessagingStatus ChannelStatus
	Count           int64
}

// DeliverySummary aggregates delivery state for dashboards.
type DeliverySummary struct {
	TotalAttendees int64
	FullyDelivered int64
	CheckedIn      int64
	Rows           []DeliverySummaryRow
}
