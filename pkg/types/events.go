package types

// Event names dispatched on fields, containers and the document.
const (
	EventChange            = "change"
	EventStoresInitialized = "form-prefill:stores-initialized"
	EventStoresFilled      = "form-prefill:stores-filled"
	EventHashStored        = "hash-values-stored.form-prefill"
	EventPrefilled         = "form-prefill:prefilled"
	EventPrefillFailed     = "form-prefill:failed"
	EventCleared           = "form-prefill:cleared"
)

// ChangeOrigin is the detail of change events fired by formprefill itself.
// Change events from user edits carry no detail.
type ChangeOrigin string

const (
	OriginPrefill ChangeOrigin = "prefill"
	OriginReset   ChangeOrigin = "reset"
)
