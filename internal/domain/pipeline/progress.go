package pipeline

// progressByStep maps each step to its completion percentage for UI and
// reporting. Values are non-decreasing along the canonical order.
var progressByStep = map[Step]int{
	StepCreated:             5,
	StepContractSent:        15,
	StepDocumentsUploaded:   25,
	StepDocumentsApproved:   35,
	StepContractSigned:      45,
	StepContractSubmitted:   55,
	StepApplicationApproved: 65,
	StepApprovalEmailSent:   70,
	StepInvoiceSent:         80,
	StepInvoicePaid:         85,
	StepGatewayIntegrated:   95,
	StepAccountLive:         100,
}

// Progress returns the completion percentage for a step. Unknown steps map to 0.
func Progress(s Step) int {
	return progressByStep[s]
}
