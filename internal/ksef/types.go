package ksef

import "time"

// InvoiceHeader is one entry of the exchange's purchase-invoice listing
type InvoiceHeader struct {
	KSeFID     string    `json:"ksefReferenceNumber"`
	Number     string    `json:"invoiceNumber"`
	IssueDate  time.Time `json:"invoicingDate"`
	AcquiredAt time.Time `json:"acquisitionTimestamp"`
}

// SubmitResult is the exchange's reply to a document submission
type SubmitResult struct {
	ReferenceNumber string `json:"elementReferenceNumber"`
	Status          string `json:"processingDescription"`
}

// SubmitStatus is the processing state of a submitted document
type SubmitStatus struct {
	ReferenceNumber string `json:"elementReferenceNumber"`
	Code            int    `json:"processingCode"`
	Description     string `json:"processingDescription"`
	KSeFID          string `json:"ksefReferenceNumber,omitempty"`
	UPOAvailable    bool   `json:"upoAvailable"`
}
