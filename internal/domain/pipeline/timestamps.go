package pipeline

// stepTimestamps maps each step to the status column that records when the
// application first entered it. Steps absent from this map carry no timestamp.
var stepTimestamps = map[Step]string{
	StepContractSent:        "contract_sent_at",
	StepDocumentsUploaded:   "documents_uploaded_at",
	StepContractSigned:      "contract_signed_at",
	StepContractSubmitted:   "contract_submitted_at",
	StepApplicationApproved: "application_approved_at",
	StepInvoiceSent:         "invoice_sent_at",
	StepInvoicePaid:         "invoice_paid_at",
	StepGatewayIntegrated:   "gateway_integrated_at",
	StepAccountLive:         "account_live_at",
}

// TimestampColumn returns the timestamp column associated with entering the
// step, and whether one exists. The timestamp is set on first entry only;
// repeated transitions into the same step never overwrite it.
func TimestampColumn(s Step) (string, bool) {
	col, ok := stepTimestamps[s]
	return col, ok
}
