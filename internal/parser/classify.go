package parser

import (
	"regexp"

	"expenseindex/internal/model"
)

var (
	expenseFilenameRe    = regexp.MustCompile(`(?i)(receipt|invoice|bill)`)
	statementFilenameRe  = regexp.MustCompile(`(?i)statement`)
	contractFilenameRe   = regexp.MustCompile(`(?i)(contract|agreement)`)
	reportFilenameRe     = regexp.MustCompile(`(?i)(report|summary)`)
	expenseContentRe     = regexp.MustCompile(`(?i)(total:|amount:|transaction)`)
	currencyMarkRe       = regexp.MustCompile(`[$£€¥]`)
)

// Classify assigns a DocumentClass using filename hints first, then
// content hints, falling back to general_document.
func Classify(filenameHint, text string) model.DocumentClass {
	switch {
	case expenseFilenameRe.MatchString(filenameHint):
		return model.ClassExpenseDocument
	case statementFilenameRe.MatchString(filenameHint):
		return model.ClassFinancialStatement
	case contractFilenameRe.MatchString(filenameHint):
		return model.ClassContract
	case reportFilenameRe.MatchString(filenameHint):
		return model.ClassReport
	}

	switch {
	case expenseContentRe.MatchString(text), currencyMarkRe.MatchString(text):
		return model.ClassExpenseDocument
	}

	return model.ClassGeneralDocument
}
