package donation

import (
	"errors"
	"fmt"
)

// Kind classifies a donation workflow failure.
type Kind string

const (
	KindSignatureInvalid           Kind = "SignatureInvalid"
	KindMissingDonor               Kind = "MissingDonor"
	KindNotPaid                    Kind = "NotPaid"
	KindAlreadyInvoiced            Kind = "AlreadyInvoiced"
	KindNoCustomerLinked           Kind = "NoCustomerLinked"
	KindMissingSettings            Kind = "MissingSettings"
	KindMissingLinkedItem          Kind = "MissingLinkedItem"
	KindMissingPaymentAccount      Kind = "MissingPaymentAccount"
	KindDuplicateIgnored           Kind = "DuplicateIgnored"
	KindUnclassifiedWebhookFailure Kind = "UnclassifiedWebhookFailure"
	KindInvalidPayload             Kind = "InvalidPayload"
	KindInvalidDonor               Kind = "InvalidDonor"
	KindInvalidDonation            Kind = "InvalidDonation"
)

// Error is a classified failure. Two errors match with errors.Is when their
// kinds are equal, so callers compare against the Err* values below.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

var (
	ErrSignatureInvalid           = &Error{Kind: KindSignatureInvalid, Message: "invalid webhook signature"}
	ErrMissingDonor               = &Error{Kind: KindMissingDonor, Message: "Please select a Donor"}
	ErrNotPaid                    = &Error{Kind: KindNotPaid, Message: "The payment for this donation is not paid"}
	ErrAlreadyInvoiced            = &Error{Kind: KindAlreadyInvoiced, Message: "An invoice is already linked to this document"}
	ErrNoCustomerLinked           = &Error{Kind: KindNoCustomerLinked, Message: "No customer linked to donor"}
	ErrMissingSettings            = &Error{Kind: KindMissingSettings, Message: "Non Profit Settings are incomplete"}
	ErrMissingLinkedItem          = &Error{Kind: KindMissingLinkedItem, Message: "Donor Type has no Linked Item"}
	ErrMissingPaymentAccount      = &Error{Kind: KindMissingPaymentAccount, Message: "Payment Account for donations is not set"}
	ErrDuplicateIgnored           = &Error{Kind: KindDuplicateIgnored, Message: "duplicate webhook delivery ignored"}
	ErrUnclassifiedWebhookFailure = &Error{Kind: KindUnclassifiedWebhookFailure, Message: "webhook processing failed"}
	ErrInvalidPayload             = &Error{Kind: KindInvalidPayload, Message: "invalid webhook payload"}
	ErrInvalidDonor               = &Error{Kind: KindInvalidDonor, Message: "invalid donor"}
	ErrInvalidDonation            = &Error{Kind: KindInvalidDonation, Message: "invalid donation"}
)

// ErrSettlementFailed marks a GenerateInvoice error raised after the invoice
// was created and attached, while settling it.
var ErrSettlementFailed = errors.New("payment settlement failed")

func newError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func wrapError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of a classified error anywhere in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// IsValidation reports whether err should be shown to the operator who
// triggered the action, as opposed to an internal failure.
func IsValidation(err error) bool {
	kind, ok := KindOf(err)
	if !ok {
		return false
	}
	switch kind {
	case KindMissingDonor, KindNotPaid, KindAlreadyInvoiced, KindNoCustomerLinked,
		KindMissingSettings, KindMissingLinkedItem, KindMissingPaymentAccount,
		KindInvalidDonor, KindInvalidDonation, KindInvalidPayload:
		return true
	}
	return false
}
