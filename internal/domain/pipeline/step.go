package pipeline

// Step represents an application's position in the onboarding pipeline
type Step string

const (
	StepCreated             Step = "created"
	StepContractSent        Step = "contract_sent"
	StepDocumentsUploaded   Step = "documents_uploaded"
	StepDocumentsApproved   Step = "documents_approved"
	StepContractSigned      Step = "contract_signed"
	StepContractSubmitted   Step = "contract_submitted"
	StepApplicationApproved Step = "application_approved"
	StepApprovalEmailSent   Step = "approval_email_sent"
	StepInvoiceSent         Step = "invoice_sent"
	StepInvoicePaid         Step = "invoice_paid"
	StepGatewayIntegrated   Step = "gateway_integrated"
	StepAccountLive         Step = "account_live"
)

// canonicalOrder is the only legal progression through the pipeline.
// Transitions may skip steps but never move backward.
var canonicalOrder = []Step{
	StepCreated,
	StepContractSent,
	StepDocumentsUploaded,
	StepDocumentsApproved,
	StepContractSigned,
	StepContractSubmitted,
	StepApplicationApproved,
	StepApprovalEmailSent,
	StepInvoiceSent,
	StepInvoicePaid,
	StepGatewayIntegrated,
	StepAccountLive,
}

var stepIndex = func() map[Step]int {
	m := make(map[Step]int, len(canonicalOrder))
	for i, s := range canonicalOrder {
		m[s] = i
	}
	return m
}()

// Steps returns the canonical pipeline order.
func Steps() []Step {
	out := make([]Step, len(canonicalOrder))
	copy(out, canonicalOrder)
	return out
}

// Index returns the position of the step in canonical order, or -1 if unknown.
func (s Step) Index() int {
	if i, ok := stepIndex[s]; ok {
		return i
	}
	return -1
}

// IsValid returns true if the step is part of the canonical pipeline.
func (s Step) IsValid() bool {
	_, ok := stepIndex[s]
	return ok
}

// Before returns true if s comes strictly earlier than other in canonical order.
// Unknown steps compare before everything valid.
func (s Step) Before(other Step) bool {
	return s.Index() < other.Index()
}

// IsTerminal returns true if no further transitions are allowed from the step.
func (s Step) IsTerminal() bool {
	return s == StepAccountLive
}

// IsEarlyStage returns true while an application has not progressed past
// contract sending. Document-completeness auto-transitions only fire here.
func (s Step) IsEarlyStage() bool {
	return s == StepCreated || s == StepContractSent
}

// String returns the string representation of the step.
func (s Step) String() string {
	return string(s)
}
