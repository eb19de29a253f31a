package contract

import (
	"fmt"
	"strings"

	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"
)

// Inspector sanity-checks contract PDFs before they go out for signature.
// It catches common authoring mistakes such as empty exports and wrong
// templates that lack a fee schedule.
type Inspector struct {
	requiredTerms []string
	maxPages      int
	logger        *zap.Logger
}

// NewInspector creates a new contract inspector. requiredTerms are phrases
// the contract text must contain; empty means only structural checks run.
func NewInspector(requiredTerms []string, maxPages int, logger *zap.Logger) *Inspector {
	if maxPages <= 0 {
		maxPages = 50
	}
	return &Inspector{
		requiredTerms: requiredTerms,
		maxPages:      maxPages,
		logger:        logger,
	}
}

// Inspect validates a contract PDF
func (i *Inspector) Inspect(pdf []byte) error {
	if len(pdf) == 0 {
		return fmt.Errorf("contract is empty")
	}

	doc, err := fitz.NewFromMemory(pdf)
	if err != nil {
		return fmt.Errorf("failed to open contract PDF: %w", err)
	}
	defer doc.Close()

	pages := doc.NumPage()
	if pages == 0 {
		return fmt.Errorf("contract has no pages")
	}
	if pages > i.maxPages {
		return fmt.Errorf("contract has %d pages, maximum is %d", pages, i.maxPages)
	}

	var text strings.Builder
	for p := 0; p < pages; p++ {
		pageText, err := doc.Text(p)
		if err != nil {
			return fmt.Errorf("failed to extract text from page %d: %w", p+1, err)
		}
		text.WriteString(pageText)
	}

	content := strings.ToLower(text.String())
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("contract has no text layer")
	}

	for _, term := range i.requiredTerms {
		if !strings.Contains(content, strings.ToLower(term)) {
			return fmt.Errorf("contract is missing required term %q", term)
		}
	}

	i.logger.Debug("Contract passed inspection", zap.Int("pages", pages))
	return nil
}
